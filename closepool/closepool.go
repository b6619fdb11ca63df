// SPDX-License-Identifier: GPL-3.0-or-later

// Package closepool collects teardown hooks and runs them in
// reverse registration order in a single operation.
package closepool

import (
	"errors"
	"io"
	"slices"
	"sync"
)

// Func adapts a function to the [io.Closer] interface.
type Func func() error

var _ io.Closer = Func(nil)

// Close implements [io.Closer].
func (fx Func) Close() error {
	return fx()
}

// Pool collects teardown hooks.
//
// The zero value is ready to use. A pool may be reused after
// [*Pool.Close]: hooks added later run on the next Close.
type Pool struct {
	// hooks contains the hooks to run.
	hooks []io.Closer

	// mu provides mutual exclusion.
	mu sync.Mutex
}

// Add registers a hook. Nil hooks are ignored.
func (p *Pool) Add(hook io.Closer) {
	if hook == nil {
		return
	}
	p.mu.Lock()
	p.hooks = append(p.hooks, hook)
	p.mu.Unlock()
}

// AddFunc is like [*Pool.Add] but takes a function.
func (p *Pool) AddFunc(fx func() error) {
	if fx != nil {
		p.Add(Func(fx))
	}
}

// Len returns the number of hooks waiting to run.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hooks)
}

// Close runs and forgets the registered hooks, last registered first,
// so that a hook registered after its dependency runs before it.
// Every hook runs even when a previous one fails. The returned error
// joins the hook errors in the order they occurred.
func (p *Pool) Close() error {
	p.mu.Lock()
	hooks := p.hooks
	p.hooks = nil
	p.mu.Unlock()

	var errv []error
	for _, hook := range slices.Backward(hooks) {
		if err := hook.Close(); err != nil {
			errv = append(errv, err)
		}
	}
	return errors.Join(errv...)
}

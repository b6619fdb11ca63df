// SPDX-License-Identifier: GPL-3.0-or-later

// Package errctx implements an error context stack.
//
// Asynchronous or critical network failures are pushed on a [*Stack]
// so that a supervising component can inspect them later. Each
// entry is identified by its [errclass] code, which allows callers
// running in tight failure loops to avoid unbounded growth.
package errctx

import (
	"slices"
	"sync"

	"github.com/rbmk-project/ipstack/errclass"
)

// Error is an entry of the [*Stack].
type Error struct {
	// Code is the [errclass] of Err.
	Code string

	// Err is the original error.
	Err error

	// Keys contains optional context (e.g., the address
	// or hostname involved in the failure).
	Keys []string
}

// Error implements error.
func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap allows using [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	return e.Err
}

// Stack is a stack of errors.
//
// The zero value is ready to use.
type Stack struct {
	// entries contains the pushed errors.
	entries []*Error

	// mu provides mutual exclusion.
	mu sync.Mutex
}

// PushOnce pushes err along with the optional keys, unless an entry
// with the same code is already on the stack, and returns err unchanged
// so that it can be used in return statements. Pushing a nil error is
// a no-op.
func (s *Stack) PushOnce(err error, keys ...string) error {
	if err == nil {
		return nil
	}
	code := errclass.New(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(code) == nil {
		s.entries = append(s.entries, &Error{Code: code, Err: err, Keys: keys})
	}
	return err
}

// PushCombo pushes the native error followed by the implementation
// error, unless an entry with the implementation error code is
// already on the stack. Both entries carry the optional keys. It
// returns implErr unchanged.
func (s *Stack) PushCombo(implErr, nativeErr error, keys ...string) error {
	if implErr == nil {
		return nil
	}
	code := errclass.New(implErr)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(code) != nil {
		return implErr
	}
	if nativeErr != nil {
		s.entries = append(s.entries, &Error{Code: errclass.New(nativeErr), Err: nativeErr, Keys: keys})
	}
	s.entries = append(s.entries, &Error{Code: code, Err: implErr, Keys: keys})
	return implErr
}

// Find returns the most recent entry with the given code or nil.
func (s *Stack) Find(code string) *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(code)
}

// findLocked implements Find. The caller must hold mu.
func (s *Stack) findLocked(code string) *Error {
	for _, entry := range slices.Backward(s.entries) {
		if entry.Code == code {
			return entry
		}
	}
	return nil
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of the entries, oldest first.
func (s *Stack) Entries() []*Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Clear removes and returns all the entries.
func (s *Stack) Clear() []*Error {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()
	return entries
}

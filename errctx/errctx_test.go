// SPDX-License-Identifier: GPL-3.0-or-later

package errctx_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rbmk-project/ipstack/errclass"
	"github.com/rbmk-project/ipstack/errctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSockRead = errclass.NewError("ESOCKREAD", "socket read failed")

func TestStack(t *testing.T) {
	t.Run("push once returns the error and records keys", func(t *testing.T) {
		var stack errctx.Stack
		err := fmt.Errorf("%w: 2001:db8::1", errSockRead)
		assert.Equal(t, err, stack.PushOnce(err, "2001:db8::1", "443"))
		entry := stack.Find("ESOCKREAD")
		require.NotNil(t, entry)
		assert.Equal(t, []string{"2001:db8::1", "443"}, entry.Keys)
		assert.ErrorIs(t, entry, errSockRead)
		assert.Equal(t, err.Error(), entry.Error())
	})

	t.Run("nil errors are not pushed", func(t *testing.T) {
		var stack errctx.Stack
		assert.NoError(t, stack.PushOnce(nil))
		assert.NoError(t, stack.PushCombo(nil, errors.New("native")))
		assert.Equal(t, 0, stack.Len())
	})

	t.Run("push once deduplicates by code", func(t *testing.T) {
		var stack errctx.Stack
		for i := 0; i < 100; i++ {
			stack.PushOnce(errSockRead)
		}
		assert.Equal(t, 1, stack.Len())
	})

	t.Run("push combo prevents growth in failure loops", func(t *testing.T) {
		var stack errctx.Stack
		native := errors.New("connection reset by peer")
		for i := 0; i < 100; i++ {
			assert.Equal(t, errSockRead, stack.PushCombo(errSockRead, native, "10.0.0.1"))
		}
		entries := stack.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, native, entries[0].Err)
		assert.Equal(t, "ESOCKREAD", entries[1].Code)
		assert.Equal(t, []string{"10.0.0.1"}, entries[1].Keys)
	})

	t.Run("find returns the most recent entry", func(t *testing.T) {
		var stack errctx.Stack
		native := errors.New("connection refused")
		stack.PushCombo(errSockRead, native)
		stack.PushOnce(fmt.Errorf("%w: again", errSockRead))
		assert.Equal(t, errSockRead, stack.Find("ESOCKREAD").Err)
		assert.Equal(t, native, stack.Find(errclass.EGENERIC).Err)
		assert.Nil(t, stack.Find("EOTHER"))
	})

	t.Run("clear empties the stack", func(t *testing.T) {
		var stack errctx.Stack
		stack.PushOnce(errSockRead)
		assert.Len(t, stack.Clear(), 1)
		assert.Equal(t, 0, stack.Len())
	})

	t.Run("concurrent usage", func(t *testing.T) {
		var stack errctx.Stack
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					stack.PushOnce(errSockRead)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, stack.Len())
	})
}

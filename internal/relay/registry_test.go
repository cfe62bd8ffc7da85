package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	c1, _ := newTestConn("c1", chat.RoleCustomer)

	assert.Nil(t, reg.Register(c1))

	got, ok := reg.Lookup("c1")
	require.True(t, ok)
	assert.Same(t, c1, got)

	_, ok = reg.Lookup("c2")
	assert.False(t, ok)
	assert.Empty(t, reg.Operators(), "customers never join the operator set")
}

func TestRegistry_SecondRegistrationSupersedesFirst(t *testing.T) {
	reg := NewRegistry()
	first, firstSock := newTestConn("o1", chat.RoleOperator)
	second, secondSock := newTestConn("o1", chat.RoleOperator)

	reg.Register(first)
	prev := reg.Register(second)

	assert.Same(t, first, prev)
	assert.True(t, firstSock.isClosed(), "superseded socket is closed")
	assert.False(t, secondSock.isClosed())

	got, ok := reg.Lookup("o1")
	require.True(t, ok)
	assert.Same(t, second, got)

	ops := reg.Operators()
	require.Len(t, ops, 1)
	assert.Same(t, second, ops[0])
}

func TestRegistry_RoleChangeOnReconnect(t *testing.T) {
	reg := NewRegistry()
	asOperator, _ := newTestConn("u1", chat.RoleOperator)
	asCustomer, _ := newTestConn("u1", chat.RoleCustomer)

	reg.Register(asOperator)
	reg.Register(asCustomer)

	assert.Empty(t, reg.Operators())
	assert.Equal(t, 1, reg.Count(chat.RoleCustomer))
	assert.Equal(t, 0, reg.Count(chat.RoleOperator))
}

func TestRegistry_ReleaseOfSupersededConnKeepsReplacement(t *testing.T) {
	reg := NewRegistry()
	first, _ := newTestConn("o1", chat.RoleOperator)
	second, _ := newTestConn("o1", chat.RoleOperator)

	reg.Register(first)
	reg.Register(second)

	assert.False(t, reg.Release(first))

	got, ok := reg.Lookup("o1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Len(t, reg.Operators(), 1)

	assert.True(t, reg.Release(second))
	assert.False(t, reg.Release(second), "release is idempotent")
	assert.Empty(t, reg.Operators())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	o1, _ := newTestConn("o1", chat.RoleOperator)
	reg.Register(o1)

	assert.Same(t, o1, reg.Unregister("o1"))
	assert.Nil(t, reg.Unregister("o1"), "unregister is idempotent")
	assert.Nil(t, reg.Unregister("never-seen"))

	_, ok := reg.Lookup("o1")
	assert.False(t, ok)
	assert.Empty(t, reg.Operators(), "no orphaned operator membership")
}

func TestRegistry_Counts(t *testing.T) {
	reg := NewRegistry()
	for i := range 3 {
		c, _ := newTestConn(fmt.Sprintf("c%d", i), chat.RoleCustomer)
		reg.Register(c)
	}
	for i := range 2 {
		o, _ := newTestConn(fmt.Sprintf("o%d", i), chat.RoleOperator)
		reg.Register(o)
	}

	assert.Equal(t, 5, reg.Len())
	assert.Equal(t, 3, reg.Count(chat.RoleCustomer))
	assert.Equal(t, 2, reg.Count(chat.RoleOperator))
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry()
	c1, c1Sock := newTestConn("c1", chat.RoleCustomer)
	o1, o1Sock := newTestConn("o1", chat.RoleOperator)
	reg.Register(c1)
	reg.Register(o1)

	assert.Equal(t, 2, reg.CloseAll())
	assert.True(t, c1Sock.isClosed())
	assert.True(t, o1Sock.isClosed())
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Operators())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := range goroutines {
		go func(id int) {
			defer wg.Done()
			identity := fmt.Sprintf("u%d", id%4)
			role := chat.RoleCustomer
			if id%2 == 0 {
				role = chat.RoleOperator
			}
			for range 50 {
				c, _ := newTestConn(identity, role)
				reg.Register(c)
				_ = reg.Operators()
				_, _ = reg.Lookup(identity)
				reg.Release(c)
			}
		}(i)
	}

	wg.Wait()

	// Every operator-set member must also be the live connection for its identity.
	for _, op := range reg.Operators() {
		got, ok := reg.Lookup(op.Identity)
		require.True(t, ok, "operator %s missing from identity map", op.Identity)
		assert.Same(t, op, got)
	}
}

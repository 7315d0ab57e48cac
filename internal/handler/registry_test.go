package handler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndDeregister(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.IsOnline("u1"))

	connID := r.Register("u1")
	assert.True(t, r.IsOnline("u1"))

	r.Deregister("u1", connID)
	assert.False(t, r.IsOnline("u1"))
}

func TestRegistryReplacementIsLastWriteWins(t *testing.T) {
	r := NewRegistry()

	first := r.Register("u1")
	second := r.Register("u1")

	// The first connection's late teardown must not evict the second.
	r.Deregister("u1", first)
	assert.True(t, r.IsOnline("u1"))

	r.Deregister("u1", second)
	assert.False(t, r.IsOnline("u1"))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", i%10)
			connID := r.Register(userID)
			r.IsOnline(userID)
			r.Deregister(userID, connID)
		}(i)
	}
	wg.Wait()
}

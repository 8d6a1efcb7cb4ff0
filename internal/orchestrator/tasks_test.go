package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_CancelUnknownReturnsFalse(t *testing.T) {
	r := newRegistry()
	assert.False(t, r.cancel("missing"))
}

func TestRegistry_RegisterCancelUnregister(t *testing.T) {
	r := newRegistry()
	_, cancel := context.WithCancel(context.Background())
	cancelled := false
	r.register("src-1", func() { cancelled = true; cancel() })

	assert.True(t, r.isActive("src-1"))
	assert.True(t, r.cancel("src-1"))
	assert.True(t, cancelled)

	r.unregister("src-1")
	assert.False(t, r.isActive("src-1"))
	assert.False(t, r.cancel("src-1"))
}

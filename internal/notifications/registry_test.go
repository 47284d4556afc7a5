package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubHandler struct{}

func (stubHandler) OnApproved(context.Context, string, string) error { return nil }
func (stubHandler) OnRejected(context.Context, string, string) error { return nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register("Ticket", stubHandler{}))

	handler, ok := registry.Get(" ticket ")
	require.True(t, ok)
	require.NotNil(t, handler)

	_, ok = registry.Get("contract")
	require.False(t, ok)

	require.Equal(t, []string{"ticket"}, registry.ContextTypes())
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	registry := NewRegistry()

	require.ErrorIs(t, registry.Register("ticket", nil), ErrNilHandler)
	require.ErrorIs(t, registry.Register("  ", stubHandler{}), ErrEmptyContextType)

	require.NoError(t, registry.Register("ticket", stubHandler{}))
	require.ErrorIs(t, registry.Register("ticket", stubHandler{}), ErrDuplicateContextType)

	require.Panics(t, func() { registry.MustRegister("ticket", stubHandler{}) })
}

package notifications

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNilHandler signals an attempt to register a nil context handler.
	ErrNilHandler = errors.New("notifications: nil context handler")
	// ErrEmptyContextType indicates a registration without a context type.
	ErrEmptyContextType = errors.New("notifications: context type is required")
	// ErrDuplicateContextType indicates a context type registered twice.
	ErrDuplicateContextType = errors.New("notifications: context type already registered")
)

// ContextHandler receives approve/reject decisions taken on actionable notifications
// that reference an entity of its context type.
type ContextHandler interface {
	OnApproved(ctx context.Context, contextID, userID string) error
	OnRejected(ctx context.Context, contextID, userID string) error
}

// ActionHandler is implemented by context handlers that understand action types other
// than approve and reject.
type ActionHandler interface {
	OnAction(ctx context.Context, actionType, contextID, userID string) error
}

// Registry maps a notification context type to the handler owning that entity.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ContextHandler
}

// NewRegistry constructs an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ContextHandler)}
}

// Register binds handler to contextType.
func (r *Registry) Register(contextType string, handler ContextHandler) error {
	if handler == nil {
		return ErrNilHandler
	}
	contextType = normalizeContextType(contextType)
	if contextType == "" {
		return ErrEmptyContextType
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[contextType]; exists {
		return ErrDuplicateContextType
	}
	r.handlers[contextType] = handler
	return nil
}

// MustRegister wraps Register and panics on validation errors. Intended for boot-time wiring.
func (r *Registry) MustRegister(contextType string, handler ContextHandler) {
	if err := r.Register(contextType, handler); err != nil {
		panic(err)
	}
}

// Get returns the handler registered for contextType when present.
func (r *Registry) Get(contextType string) (ContextHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[normalizeContextType(contextType)]
	return handler, ok
}

// ContextTypes returns the registered context types sorted alphabetically.
func (r *Registry) ContextTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for contextType := range r.handlers {
		types = append(types, contextType)
	}
	sort.Strings(types)
	return types
}

func normalizeContextType(contextType string) string {
	return strings.ToLower(strings.TrimSpace(contextType))
}

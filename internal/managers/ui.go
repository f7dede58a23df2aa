package managers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/imgboot/internal/eventbus"
)

// TopicNotice carries user-facing notices.
const TopicNotice = "ui:notice"

var ErrUINotInitialized = errors.New("ui manager is not initialized")

// Action handles a UI action such as a file drop or a button press.
type Action func(ctx context.Context, payload any) error

// UI routes user actions to the feature that bound them.
type UI struct {
	bus *eventbus.Bus

	mu          sync.RWMutex
	initialized bool
	actions     map[string]Action
}

// NewUI creates the UI manager. It is not usable before Initialize.
func NewUI(bus *eventbus.Bus) *UI {
	return &UI{bus: bus, actions: make(map[string]Action)}
}

// Initialize implements registry.Initializer.
func (u *UI) Initialize(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.initialized {
		return errors.New("ui manager already initialized")
	}
	u.initialized = true
	u.bus.Publish(TopicDebug, "ui initialized")
	return nil
}

// Bind registers the handler for an action name.
func (u *UI) Bind(name string, fn Action) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.initialized {
		return ErrUINotInitialized
	}
	if _, exists := u.actions[name]; exists {
		return fmt.Errorf("ui action %q already bound", name)
	}
	u.actions[name] = fn
	return nil
}

// Trigger runs a bound action.
func (u *UI) Trigger(ctx context.Context, name string, payload any) error {
	u.mu.RLock()
	fn, ok := u.actions[name]
	u.mu.RUnlock()
	if !ok {
		return fmt.Errorf("ui action %q is not bound", name)
	}
	return fn(ctx, payload)
}

// Notify shows a notice to the user.
func (u *UI) Notify(msg string) {
	u.bus.Publish(TopicNotice, msg)
}

// Initialized reports whether Initialize ran.
func (u *UI) Initialized() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.initialized
}

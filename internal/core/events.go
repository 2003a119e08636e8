package core

import "sync"

// EventType identifies the kind of event fired on the bus.
type EventType int

const (
	// EventFilesChanged fires for every raw watcher notification.
	EventFilesChanged EventType = iota
	// EventTunnelStateChanged fires after a tunnel was brought up or down.
	EventTunnelStateChanged
	// EventConfigReloaded fires after ConfigManager.Load read a config file.
	EventConfigReloaded
)

// Event carries data about something that happened in the system.
type Event struct {
	Type    EventType
	Payload any
}

// FilesChangedPayload is the payload for EventFilesChanged.
type FilesChangedPayload struct {
	Path string
	Ops  string
}

// TunnelStatePayload is the payload for EventTunnelStateChanged.
type TunnelStatePayload struct {
	Name    string
	Enabled bool
	Success bool
}

// ConfigReloadedPayload is the payload for EventConfigReloaded.
type ConfigReloadedPayload struct {
	Config Config
}

// Handler is a callback for bus subscribers.
type Handler func(Event)

// EventBus provides pub/sub between system components.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a ready-to-use event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a given event type.
func (eb *EventBus) Subscribe(t EventType, h Handler) {
	eb.mu.Lock()
	eb.handlers[t] = append(eb.handlers[t], h)
	eb.mu.Unlock()
}

// Publish fires an event to all subscribed handlers synchronously.
func (eb *EventBus) Publish(e Event) {
	eb.mu.RLock()
	handlers := eb.handlers[e.Type]
	eb.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

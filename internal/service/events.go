package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventScanStarted    EventType = "scan_started"
	EventScanCompleted  EventType = "scan_completed"
	EventScanFailed     EventType = "scan_failed"
	EventScanExhausted  EventType = "scan_exhausted"
	EventManualScan     EventType = "manual_scan"
	EventRootResolved   EventType = "root_resolved"
	EventRootUnresolved EventType = "root_unresolved"
	EventMarkerCreated  EventType = "marker_created"
	EventMarkersReset   EventType = "markers_reset"
	EventRearmed        EventType = "rearmed"
)

// Event represents an event that occurred in the tracker
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers without blocking
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

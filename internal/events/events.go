// Package events provides an in-process event stream for replication activity.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPeerRegistered is emitted when a new address enters the peer registry
	EventPeerRegistered EventType = "peer_registered"
	// EventBootstrapSucceeded is emitted when a handshake with a configured peer completes
	EventBootstrapSucceeded EventType = "bootstrap_succeeded"
	// EventBootstrapFailed is emitted when a handshake with a configured peer fails
	EventBootstrapFailed EventType = "bootstrap_failed"
	// EventWriteApplied is emitted when a Set is applied to the local store
	EventWriteApplied EventType = "write_applied"
	// EventBroadcastFailed is emitted when forwarding a write to a peer fails
	EventBroadcastFailed EventType = "broadcast_failed"
)

// Origin tells where an applied write came from
type Origin string

const (
	OriginClient Origin = "client"
	OriginPeer   Origin = "peer"
)

// Event represents one replication event on a node
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Node      string    `json:"node"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Peer   string `json:"peer,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Origin Origin `json:"origin,omitempty"`
	Keys   int    `json:"keys,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newEvent(t EventType, node string, data EventData) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Node:      node,
		Data:      data,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewPeerRegisteredEvent creates a peer registration event
func NewPeerRegisteredEvent(node, peer string) Event {
	return newEvent(EventPeerRegistered, node, EventData{Peer: peer})
}

// NewBootstrapSucceededEvent creates a bootstrap success event; keys is the
// size of the snapshot received from the peer
func NewBootstrapSucceededEvent(node, peer string, keys int) Event {
	return newEvent(EventBootstrapSucceeded, node, EventData{Peer: peer, Keys: keys})
}

// NewBootstrapFailedEvent creates a bootstrap failure event
func NewBootstrapFailedEvent(node, peer string, err error) Event {
	return newEvent(EventBootstrapFailed, node, EventData{Peer: peer, Error: errString(err)})
}

// NewWriteAppliedEvent creates a write event
func NewWriteAppliedEvent(node, key, value string, origin Origin) Event {
	return newEvent(EventWriteApplied, node, EventData{Key: key, Value: value, Origin: origin})
}

// NewBroadcastFailedEvent creates a broadcast failure event
func NewBroadcastFailedEvent(node, peer, key string, err error) Event {
	return newEvent(EventBroadcastFailed, node, EventData{Peer: peer, Key: key, Error: errString(err)})
}

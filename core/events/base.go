package events

import "time"

type Kind string

// Event is the tagged union of inbound session events. Every message
// the live session delivers is converted into exactly one Event value
// and dispatched through the bridge's Handle entry point.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

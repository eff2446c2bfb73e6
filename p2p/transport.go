package p2p

import "iter"

// PeerID identifies one connection for the lifetime of that connection.
type PeerID string

type EventType uint8

const (
	EventConnected EventType = iota
	EventDisconnected
	EventReceived
)

func (e EventType) String() string {
	switch e {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventReceived:
		return "RECEIVED"
	default:
		return "INVALID"
	}
}

type Event struct {
	Type    EventType
	Peer    PeerID
	Payload []byte
}

type Sender interface {
	Send(peer PeerID, b []byte) error
	Broadcast(b []byte) error
}

// Transport delivers whole frames reliably and in order. PollEvents never
// blocks; it yields whatever has arrived since the last call.
type Transport interface {
	Sender
	Addr() string
	ListenAndAccept() error
	Connect(addr string) (PeerID, error)
	PollEvents() iter.Seq[Event]
	Flush() error
	Close() error
}

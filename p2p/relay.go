package p2p

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Relay turns session output into transport sends. The host fans out every
// cell and turn update so observers stay consistent; the joiner only ever
// talks to the host.
type Relay struct {
	role    Role
	sender  Sender
	peer    PeerID
	hasPeer bool
}

func NewRelay(role Role, sender Sender) *Relay {
	return &Relay{role: role, sender: sender}
}

func (r *Relay) Peer() (PeerID, bool) { return r.peer, r.hasPeer }

// Attach makes peer the opponent unless one is already attached. Later
// connections stay observers: they get broadcasts and are never unicast to.
func (r *Relay) Attach(peer PeerID) bool {
	if r.hasPeer {
		return false
	}
	r.peer = peer
	r.hasPeer = true
	return true
}

// Detach clears the handle if peer is the current opponent.
func (r *Relay) Detach(peer PeerID) bool {
	if !r.hasPeer || r.peer != peer {
		return false
	}
	r.peer = ""
	r.hasPeer = false
	return true
}

func (r *Relay) IsOpponent(peer PeerID) bool {
	return r.hasPeer && r.peer == peer
}

// Welcome sends the host grid to a new connection.
func (r *Relay) Welcome(peer PeerID, g *Grid) error {
	if r.role != RoleHost {
		return nil
	}
	b, err := Encode(NewGridSnapshot(g))
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"peer":   peer,
		"digest": g.Digest(),
	}).Debug("sending grid snapshot")
	return r.sender.Send(peer, b)
}

func (r *Relay) Route(msgs []Message) error {
	for _, m := range msgs {
		if err := r.route(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) route(m Message) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	if r.role == RoleHost && fanOut(m.Kind()) {
		return r.sender.Broadcast(b)
	}
	if !r.hasPeer {
		return fmt.Errorf("%w: dropping %s", ErrNoPeer, m.Kind())
	}
	return r.sender.Send(r.peer, b)
}

// Forward re-broadcasts a turn update the host received.
func (r *Relay) Forward(m Message) error {
	if r.role != RoleHost || m.Kind() != KindTurnUpdate {
		return nil
	}
	b, err := Encode(m)
	if err != nil {
		return err
	}
	return r.sender.Broadcast(b)
}

func fanOut(k MessageKind) bool {
	return k == KindCellUpdate || k == KindTurnUpdate
}

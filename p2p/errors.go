package p2p

import "errors"

var (
	ErrEmptyMessage      = errors.New("empty message")
	ErrUnknownMessage    = errors.New("unknown message kind")
	ErrMalformedMessage  = errors.New("malformed message")
	ErrOutOfRange        = errors.New("coordinate out of range")
	ErrUnexpectedMessage = errors.New("message not expected in current state")

	ErrIllegalPlacement = errors.New("illegal placement")
	ErrWrongPhase       = errors.New("action not allowed in current phase")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrAwaitingResult   = errors.New("waiting for the result of the previous shot")
	ErrAlreadyTargeted  = errors.New("cell already targeted")
	ErrNoPeer           = errors.New("no peer connected")

	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrVersionMismatch  = errors.New("version mismatch")
	ErrMaxPeers         = errors.New("max peers exceeded")
	ErrSessionEnded     = errors.New("session ended")
)

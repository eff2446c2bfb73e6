package p2p

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const handshakeTimeout = 3 * time.Second

type Handshake struct {
	Version    string `msgpack:"version"`
	ListenAddr string `msgpack:"listen_addr"`
}

func (t *TCPTransport) sendHandshake(p *tcpPeer) error {
	hs := Handshake{
		Version:    t.Version,
		ListenAddr: t.ListenAddr,
	}
	b, err := msgpack.Marshal(&hs)
	if err != nil {
		return err
	}
	if err := p.writeFrame(b); err != nil {
		return err
	}
	return p.flush()
}

// handshake runs on a fresh connection before it is visible to the game.
// Both ends write first and then read, so no ordering is needed.
func (t *TCPTransport) handshake(p *tcpPeer) (*Handshake, error) {
	p.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer p.conn.SetDeadline(time.Time{})

	if err := t.sendHandshake(p); err != nil {
		return nil, fmt.Errorf("send handshake: %w", err)
	}
	b, err := readFrame(p.r)
	if err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	hs := &Handshake{}
	if err := msgpack.Unmarshal(b, hs); err != nil {
		return nil, fmt.Errorf("decode handshake: %w", err)
	}
	if hs.Version != t.Version {
		return nil, fmt.Errorf("%w: want %s but got %s", ErrVersionMismatch, t.Version, hs.Version)
	}
	return hs, nil
}

package p2p

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxPeers = 32
	maxFrameSize    = 4 << 10
	eventBuffer     = 1024
	pollBurst       = 64
)

type tcpPeer struct {
	id         PeerID
	conn       net.Conn
	outbound   bool
	listenAddr string

	r  *bufio.Reader
	mu sync.Mutex
	w  *bufio.Writer
}

func newTCPPeer(conn net.Conn, outbound bool) *tcpPeer {
	return &tcpPeer{
		id:       PeerID(conn.RemoteAddr().String()),
		conn:     conn,
		outbound: outbound,
		r:        bufio.NewReader(conn),
		w:        bufio.NewWriter(conn),
	}
}

// writeFrame buffers a u16 big-endian length prefix and the payload.
func (p *tcpPeer) writeFrame(b []byte) error {
	if len(b) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(b), maxFrameSize)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(b)))
	if _, err := p.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := p.w.Write(b)
	return err
}

func (p *tcpPeer) flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Flush()
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds %d", n, maxFrameSize)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

type TCPTransportOpts struct {
	ListenAddr string
	Version    string
	MaxPeers   int
}

type TCPTransport struct {
	TCPTransportOpts

	listener net.Listener
	peerLock sync.RWMutex
	peers    map[PeerID]*tcpPeer
	eventch  chan Event

	closeOnce sync.Once
	quitch    chan struct{}
}

var _ Transport = (*TCPTransport)(nil)

func NewTCPTransport(opts TCPTransportOpts) *TCPTransport {
	if opts.MaxPeers <= 0 {
		opts.MaxPeers = defaultMaxPeers
	}
	return &TCPTransport{
		TCPTransportOpts: opts,
		peers:            make(map[PeerID]*tcpPeer),
		eventch:          make(chan Event, eventBuffer),
		quitch:           make(chan struct{}),
	}
}

func (t *TCPTransport) Addr() string {
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.ListenAddr
}

func (t *TCPTransport) ListenAndAccept() error {
	ln, err := net.Listen("tcp", t.ListenAddr)
	if err != nil {
		return err
	}
	t.listener = ln

	go t.acceptLoop()

	logrus.WithFields(logrus.Fields{
		"addr":      t.Addr(),
		"max_peers": t.MaxPeers,
	}).Info("TCP transport listening")
	return nil
}

func (t *TCPTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			logrus.Errorf("tcp accept error: %s", err)
			continue
		}
		go t.handleConn(conn)
	}
}

func (t *TCPTransport) handleConn(conn net.Conn) {
	peer := newTCPPeer(conn, false)
	if err := t.admit(peer); err != nil {
		logrus.WithFields(logrus.Fields{
			"peer": peer.id,
		}).Warnf("rejected incoming connection: %s", err)
		conn.Close()
		return
	}
	t.readLoop(peer)
}

// Connect dials addr and completes the handshake before returning.
func (t *TCPTransport) Connect(addr string) (PeerID, error) {
	conn, err := net.DialTimeout("tcp", addr, handshakeTimeout)
	if err != nil {
		return "", err
	}
	peer := newTCPPeer(conn, true)
	if err := t.admit(peer); err != nil {
		conn.Close()
		return "", err
	}
	go t.readLoop(peer)
	return peer.id, nil
}

func (t *TCPTransport) admit(p *tcpPeer) error {
	if t.peerCount() >= t.MaxPeers {
		return fmt.Errorf("%w (%d)", ErrMaxPeers, t.MaxPeers)
	}
	hs, err := t.handshake(p)
	if err != nil {
		return err
	}
	p.listenAddr = hs.ListenAddr

	t.peerLock.Lock()
	t.peers[p.id] = p
	t.peerLock.Unlock()

	logrus.WithFields(logrus.Fields{
		"peer":        p.id,
		"listen_addr": p.listenAddr,
		"outbound":    p.outbound,
		"version":     hs.Version,
	}).Info("peer handshake complete")

	t.emit(Event{Type: EventConnected, Peer: p.id})
	return nil
}

func (t *TCPTransport) readLoop(p *tcpPeer) {
	defer func() {
		t.peerLock.Lock()
		delete(t.peers, p.id)
		t.peerLock.Unlock()
		p.conn.Close()
		t.emit(Event{Type: EventDisconnected, Peer: p.id})
	}()
	for {
		b, err := readFrame(p.r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logrus.WithFields(logrus.Fields{
					"peer": p.id,
				}).Debugf("read error: %s", err)
			}
			return
		}
		if !t.emit(Event{Type: EventReceived, Peer: p.id, Payload: b}) {
			return
		}
	}
}

func (t *TCPTransport) emit(ev Event) bool {
	select {
	case t.eventch <- ev:
		return true
	case <-t.quitch:
		return false
	}
}

func (t *TCPTransport) PollEvents() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for i := 0; i < pollBurst; i++ {
			select {
			case ev := <-t.eventch:
				if !yield(ev) {
					return
				}
			default:
				return
			}
		}
	}
}

func (t *TCPTransport) peerCount() int {
	t.peerLock.RLock()
	defer t.peerLock.RUnlock()
	return len(t.peers)
}

func (t *TCPTransport) getPeer(id PeerID) (*tcpPeer, bool) {
	t.peerLock.RLock()
	defer t.peerLock.RUnlock()
	p, ok := t.peers[id]
	return p, ok
}

func (t *TCPTransport) allPeers() []*tcpPeer {
	t.peerLock.RLock()
	defer t.peerLock.RUnlock()
	peers := make([]*tcpPeer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	return peers
}

// Send buffers b for peer; Flush pushes it to the wire.
func (t *TCPTransport) Send(id PeerID, b []byte) error {
	p, ok := t.getPeer(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPeer, id)
	}
	return p.writeFrame(b)
}

func (t *TCPTransport) Broadcast(b []byte) error {
	var errs []error
	for _, p := range t.allPeers() {
		if err := p.writeFrame(b); err != nil {
			errs = append(errs, fmt.Errorf("broadcast to %s: %w", p.id, err))
		}
	}
	return errors.Join(errs...)
}

func (t *TCPTransport) Flush() error {
	var errs []error
	for _, p := range t.allPeers() {
		if err := p.flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", p.id, err))
		}
	}
	return errors.Join(errs...)
}

func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.quitch)
		if t.listener != nil {
			err = t.listener.Close()
		}
		for _, p := range t.allPeers() {
			p.conn.Close()
		}
	})
	return err
}

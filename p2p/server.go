package p2p

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultTickRate   = 60
	defaultListenAddr = ":7777"
	heartbeatInterval = 5 * time.Second
	inputBuffer       = 16
)

type ServerConfig struct {
	Version         string
	Role            Role
	ListenAddr      string
	ConnectAddr     string
	APIListenAddr   string
	MaxPeers        int
	TickRate        int
	TransitionDelay time.Duration
	Fleet           Fleet
}

type InputKind uint8

const (
	InputPlace InputKind = iota
	InputAttack
	InputToggleOrientation
	InputDismiss
)

func (k InputKind) String() string {
	switch k {
	case InputPlace:
		return "PLACE"
	case InputAttack:
		return "ATTACK"
	case InputToggleOrientation:
		return "TOGGLE-ORIENTATION"
	case InputDismiss:
		return "DISMISS"
	default:
		return "INVALID"
	}
}

// Input is a UI action. It is executed on the loop goroutine.
type Input struct {
	Kind  InputKind
	X, Y  int
	reply chan error
}

// Server runs one side of a game. Run is the only goroutine that touches
// the session; everything else talks to it through Submit and Snapshot.
type Server struct {
	ServerConfig

	transport Transport
	session   *Session
	relay     *Relay
	log       *logrus.Entry

	inputch  chan Input
	snapshot atomic.Pointer[SessionSnapshot]
	quitch   chan struct{}
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.ListenAddr == "" && cfg.Role == RoleHost {
		cfg.ListenAddr = defaultListenAddr
	}
	tr := NewTCPTransport(TCPTransportOpts{
		ListenAddr: cfg.ListenAddr,
		Version:    cfg.Version,
		MaxPeers:   cfg.MaxPeers,
	})
	return NewServerWithTransport(cfg, tr)
}

func NewServerWithTransport(cfg ServerConfig, tr Transport) (*Server, error) {
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	if cfg.Role == RoleJoiner && cfg.ConnectAddr == "" {
		return nil, fmt.Errorf("joiner needs an address to connect to")
	}
	session, err := NewSession(SessionConfig{
		Role:            cfg.Role,
		Fleet:           cfg.Fleet,
		TransitionDelay: cfg.TransitionDelay,
	})
	if err != nil {
		return nil, err
	}
	s := &Server{
		ServerConfig: cfg,
		transport:    tr,
		session:      session,
		relay:        NewRelay(cfg.Role, tr),
		log: logrus.WithFields(logrus.Fields{
			"session": session.ID(),
			"role":    cfg.Role,
		}),
		inputch: make(chan Input, inputBuffer),
		quitch:  make(chan struct{}),
	}
	s.publish()
	return s, nil
}

func (s *Server) Snapshot() SessionSnapshot {
	return *s.snapshot.Load()
}

// Submit hands an input to the loop and waits for its result.
func (s *Server) Submit(ctx context.Context, in Input) error {
	in.reply = make(chan error, 1)
	select {
	case s.inputch <- in:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quitch:
		return ErrSessionEnded
	}
	select {
	case err := <-in.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quitch:
		// the last input may have been answered just before Run returned
		select {
		case err := <-in.reply:
			return err
		default:
			return ErrSessionEnded
		}
	}
}

// Run blocks until the session ends, ctx is cancelled or the transport
// fails. A joiner returns ErrPeerDisconnected when the host goes away.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.quitch)
	defer s.transport.Close()

	if err := s.start(); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(s.TickRate), 1)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	last := time.Now()
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err := s.poll()

		s.handleInput()

		now := time.Now()
		s.dispatch(s.session.Tick(now.Sub(last)))
		last = now

		s.publish()
		if ferr := s.transport.Flush(); ferr != nil {
			s.log.Errorf("flush error: %s", ferr)
		}

		if err != nil {
			return err
		}
		if s.session.Ended() {
			s.log.Info("session ended")
			return nil
		}

		select {
		case <-heartbeat.C:
			s.logHeartbeat()
		default:
		}
	}
}

func (s *Server) start() error {
	if s.Role == RoleHost {
		if err := s.transport.ListenAndAccept(); err != nil {
			return fmt.Errorf("create host: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"addr": s.transport.Addr(),
		}).Info("waiting for opponent")
		return nil
	}
	peer, err := s.transport.Connect(s.ConnectAddr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", s.ConnectAddr, err)
	}
	s.log.WithFields(logrus.Fields{
		"peer": peer,
	}).Info("connected to host")
	return nil
}

func (s *Server) poll() error {
	for ev := range s.transport.PollEvents() {
		switch ev.Type {
		case EventConnected:
			s.handleConnected(ev.Peer)
		case EventDisconnected:
			if err := s.handleDisconnected(ev.Peer); err != nil {
				return err
			}
		case EventReceived:
			s.handleReceived(ev)
		}
	}
	return nil
}

func (s *Server) handleConnected(peer PeerID) {
	own := s.session.OwnGrid()
	if err := s.relay.Welcome(peer, &own); err != nil {
		s.log.Errorf("grid snapshot to %s failed: %s", peer, err)
	}
	if !s.relay.Attach(peer) {
		s.log.WithFields(logrus.Fields{
			"peer": peer,
		}).Info("observer connected")
		return
	}
	s.dispatch(s.session.OnPeerConnected())
}

func (s *Server) handleDisconnected(peer PeerID) error {
	if !s.relay.Detach(peer) {
		return nil
	}
	s.session.OnPeerDisconnected()
	if s.Role == RoleJoiner {
		return ErrPeerDisconnected
	}
	return nil
}

func (s *Server) handleReceived(ev Event) {
	if !s.relay.IsOpponent(ev.Peer) {
		s.log.Debugf("ignoring %d bytes from observer %s", len(ev.Payload), ev.Peer)
		return
	}
	msg, err := Decode(ev.Payload)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"peer": ev.Peer,
			"size": len(ev.Payload),
		}).Debugf("discarding message: %s", err)
		return
	}
	// turn updates are relayed whether or not this side accepts them
	if err := s.relay.Forward(msg); err != nil {
		s.log.Errorf("forward %s failed: %s", msg.Kind(), err)
	}
	out, err := s.session.Apply(msg)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"peer": ev.Peer,
			"kind": msg.Kind(),
		}).Debugf("discarding message: %s", err)
		return
	}
	s.dispatch(out)
}

func (s *Server) handleInput() {
	select {
	case in := <-s.inputch:
		in.reply <- s.execute(in)
	default:
	}
}

func (s *Server) execute(in Input) error {
	var (
		out []Message
		err error
	)
	switch in.Kind {
	case InputPlace:
		out, err = s.session.AttemptPlacement(in.X, in.Y)
	case InputAttack:
		out, err = s.session.AttemptAttack(in.X, in.Y)
	case InputToggleOrientation:
		err = s.session.ToggleOrientation()
	case InputDismiss:
		err = s.session.Dismiss()
	default:
		err = fmt.Errorf("unknown input %d", in.Kind)
	}
	if err != nil {
		return err
	}
	s.dispatch(out)
	return nil
}

func (s *Server) dispatch(msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	if err := s.relay.Route(msgs); err != nil && !errors.Is(err, ErrNoPeer) {
		s.log.Errorf("send error: %s", err)
	}
}

func (s *Server) publish() {
	snap := NewSessionSnapshot(s.session)
	prev := s.snapshot.Load()
	if prev != nil {
		if prev.sameState(snap) {
			return
		}
		snap.Version = prev.Version + 1
	}
	s.snapshot.Store(&snap)
}

func (s *Server) logHeartbeat() {
	peer, _ := s.relay.Peer()
	s.log.WithFields(logrus.Fields{
		"phase":       s.session.Phase(),
		"turn":        s.session.Turn(),
		"peer":        peer,
		"hits_taken":  s.session.HitsTaken(),
		"hits_landed": s.session.HitsLanded(),
		"own_digest":  s.session.ownGrid.Digest(),
	}).Info("Game State Heartbeat")
}

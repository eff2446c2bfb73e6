package p2p

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultTransitionDelay = 3 * time.Second

type SessionConfig struct {
	ID              string
	Role            Role
	Fleet           Fleet
	TransitionDelay time.Duration
}

// Session is the per-side game state. It is not safe for concurrent use;
// the process loop is its only owner. Methods return the messages that must
// be sent to the peer, routing is left to the Relay.
type Session struct {
	id   string
	role Role
	log  *logrus.Entry

	fleet         Fleet
	shipIndex     int
	ownGrid       Grid
	opponentGrid  Grid
	shipLocations ShipLocations

	phase   Phase
	turn    Turn
	outcome Outcome

	localPreparationDone  bool
	remotePreparationDone bool

	hitsTaken  int
	hitsLanded int
	shotsFired int

	awaitingResult bool
	peerConnected  bool
	ended          bool

	transitionDelay   time.Duration
	transitionElapsed time.Duration
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Fleet == nil {
		cfg.Fleet = DefaultFleet()
	}
	if err := cfg.Fleet.validate(); err != nil {
		return nil, fmt.Errorf("invalid fleet: %w", err)
	}
	if cfg.TransitionDelay <= 0 {
		cfg.TransitionDelay = defaultTransitionDelay
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Role != RoleHost && cfg.Role != RoleJoiner {
		return nil, fmt.Errorf("invalid role %d", cfg.Role)
	}

	return &Session{
		id:   cfg.ID,
		role: cfg.Role,
		log: logrus.WithFields(logrus.Fields{
			"session": cfg.ID,
			"role":    cfg.Role,
		}),
		fleet:           cfg.Fleet.clone(),
		shipLocations:   make(ShipLocations, cfg.Fleet.TotalCells()),
		phase:           PhasePreparing,
		turn:            TurnNone,
		transitionDelay: cfg.TransitionDelay,
	}, nil
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Role() Role                  { return s.role }
func (s *Session) Phase() Phase                { return s.phase }
func (s *Session) Turn() Turn                  { return s.turn }
func (s *Session) Outcome() Outcome            { return s.outcome }
func (s *Session) OwnGrid() Grid               { return s.ownGrid }
func (s *Session) OpponentGrid() Grid          { return s.opponentGrid }
func (s *Session) HitsTaken() int              { return s.hitsTaken }
func (s *Session) HitsLanded() int             { return s.hitsLanded }
func (s *Session) ShotsFired() int             { return s.shotsFired }
func (s *Session) FleetTotal() int             { return s.fleet.TotalCells() }
func (s *Session) Connected() bool             { return s.peerConnected }
func (s *Session) Ended() bool                 { return s.ended }
func (s *Session) LocalPreparationDone() bool  { return s.localPreparationDone }
func (s *Session) RemotePreparationDone() bool { return s.remotePreparationDone }
func (s *Session) IsMyTurn() bool              { return s.turn == s.role.turn() }

// PendingShip returns the next ship to place, if any.
func (s *Session) PendingShip() (Ship, bool) {
	if s.shipIndex >= len(s.fleet) {
		return Ship{}, false
	}
	return s.fleet[s.shipIndex], true
}

func (s *Session) ShipsRemaining() int { return len(s.fleet) - s.shipIndex }

// OnPeerConnected re-announces a finished preparation so a peer that joins
// after it still learns about it.
func (s *Session) OnPeerConnected() []Message {
	s.peerConnected = true
	s.log.Info("peer connected")
	if s.localPreparationDone && s.phase == PhasePreparing {
		return []Message{FinishedPreparing{Finished: 1}}
	}
	return nil
}

func (s *Session) OnPeerDisconnected() {
	s.peerConnected = false
	s.awaitingResult = false
	s.log.WithFields(logrus.Fields{
		"phase": s.phase,
	}).Warn("peer disconnected")
}

func (s *Session) AttemptPlacement(x, y int) ([]Message, error) {
	if err := s.checkInput(PhasePreparing); err != nil {
		return nil, err
	}
	ship, ok := s.PendingShip()
	if !ok {
		return nil, fmt.Errorf("%w: fleet already placed", ErrWrongPhase)
	}
	if !ApplyPlacement(&s.ownGrid, x, y, ship.Length, ship.Horizontal) {
		return nil, fmt.Errorf("%w: %s at (%d,%d)", ErrIllegalPlacement, ship, x, y)
	}
	s.shipLocations.record(x, y, ship)
	s.shipIndex++

	s.log.WithFields(logrus.Fields{
		"ship":      ship,
		"x":         x,
		"y":         y,
		"remaining": s.ShipsRemaining(),
	}).Debug("ship placed")

	if s.shipIndex < len(s.fleet) {
		return nil, nil
	}
	s.localPreparationDone = true
	s.log.Info("fleet placed, preparation finished")
	s.maybeStartTransition()
	return []Message{FinishedPreparing{Finished: 1}}, nil
}

func (s *Session) ToggleOrientation() error {
	if err := s.checkInput(PhasePreparing); err != nil {
		return err
	}
	if s.shipIndex >= len(s.fleet) {
		return fmt.Errorf("%w: fleet already placed", ErrWrongPhase)
	}
	s.fleet[s.shipIndex].Horizontal = !s.fleet[s.shipIndex].Horizontal
	return nil
}

func (s *Session) AttemptAttack(x, y int) ([]Message, error) {
	if err := s.checkInput(PhaseBattle); err != nil {
		return nil, err
	}
	if !s.IsMyTurn() {
		return nil, ErrNotYourTurn
	}
	if s.awaitingResult {
		return nil, ErrAwaitingResult
	}
	if !InBounds(x, y) {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, x, y)
	}
	if s.opponentGrid.CellAt(x, y).Resolved() {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrAlreadyTargeted, x, y)
	}
	s.shotsFired++
	s.awaitingResult = true
	return []Message{CellRequest{X: uint16(x), Y: uint16(y)}}, nil
}

// Dismiss closes the finished screen and ends the session.
func (s *Session) Dismiss() error {
	if s.phase != PhaseFinished {
		return fmt.Errorf("%w: game is %s", ErrWrongPhase, s.phase)
	}
	s.ended = true
	return nil
}

func (s *Session) checkInput(want Phase) error {
	if s.ended {
		return ErrSessionEnded
	}
	if !s.peerConnected {
		return ErrNoPeer
	}
	if s.phase != want {
		return fmt.Errorf("%w: game is %s", ErrWrongPhase, s.phase)
	}
	return nil
}

// Apply feeds a decoded peer message into the state machine. A returned
// error means the message was discarded and nothing changed.
func (s *Session) Apply(msg Message) ([]Message, error) {
	var (
		out []Message
		err error
	)
	switch m := msg.(type) {
	case CellRequest:
		out, err = s.resolveAttack(m)
	case CellUpdate:
		err = s.applyAttackResult(m)
	case GridSnapshot:
		err = s.applySnapshot(m)
	case FinishedPreparing:
		err = s.applyFinishedPreparing(m)
	case TurnUpdate:
		err = s.applyTurnUpdate(m)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
	if err != nil {
		return nil, err
	}
	s.maybeStartTransition()
	return out, nil
}

func (s *Session) applyFinishedPreparing(m FinishedPreparing) error {
	if s.phase != PhasePreparing {
		return fmt.Errorf("%w: %s during %s", ErrUnexpectedMessage, m.Kind(), s.phase)
	}
	if m.Finished != 1 {
		return nil
	}
	if !s.remotePreparationDone {
		s.log.Info("opponent finished preparing")
	}
	s.remotePreparationDone = true
	return nil
}

func (s *Session) applyTurnUpdate(m TurnUpdate) error {
	if s.phase != PhaseTransition && s.phase != PhaseBattle {
		return fmt.Errorf("%w: %s during %s", ErrUnexpectedMessage, m.Kind(), s.phase)
	}
	s.setTurn(m.Turn)
	return nil
}

func (s *Session) setTurn(t Turn) {
	if s.turn == t {
		return
	}
	s.turn = t
	s.awaitingResult = false
	s.log.WithFields(logrus.Fields{
		"turn": t,
	}).Debug("turn changed")
}

func (s *Session) maybeStartTransition() {
	if s.phase != PhasePreparing || !s.localPreparationDone || !s.remotePreparationDone {
		return
	}
	s.transitionElapsed = 0
	s.setPhase(PhaseTransition)
}

// Tick advances the transition timer. Time does not pass while the side is
// waiting for a peer.
func (s *Session) Tick(dt time.Duration) []Message {
	if s.phase != PhaseTransition || !s.peerConnected {
		return nil
	}
	s.transitionElapsed += dt
	if s.transitionElapsed < s.transitionDelay {
		return nil
	}
	s.setPhase(PhaseBattle)
	s.opponentGrid.Reset(CellEmpty)
	if s.role != RoleHost {
		return nil
	}
	s.setTurn(TurnHost)
	return []Message{TurnUpdate{Turn: TurnHost}}
}

func (s *Session) setPhase(p Phase) {
	s.log.WithFields(logrus.Fields{
		"from": s.phase,
		"to":   p,
	}).Info("phase changed")
	s.phase = p
}

func (s *Session) finish(o Outcome) {
	s.outcome = o
	s.turn = TurnNone
	s.awaitingResult = false
	s.setPhase(PhaseFinished)
	s.log.WithFields(logrus.Fields{
		"outcome":     o,
		"hits_taken":  s.hitsTaken,
		"hits_landed": s.hitsLanded,
		"shots_fired": s.shotsFired,
	}).Info("game finished")
}

func (s *Session) Headline() string {
	if !s.peerConnected && s.phase != PhaseFinished {
		if s.role == RoleHost {
			return "Waiting for opponent to connect..."
		}
		return "Connecting to host..."
	}
	switch s.phase {
	case PhasePreparing:
		if s.localPreparationDone && !s.remotePreparationDone {
			return "Waiting for other player to finish..."
		}
		if s.role == RoleHost {
			return "Host: Preparing Phase"
		}
		return "Joiner: Preparing Phase"
	case PhaseTransition:
		return "BATTLE START!"
	case PhaseBattle:
		if s.IsMyTurn() {
			if s.role == RoleHost {
				return "Your Turn (Host)"
			}
			return "Your Turn (Joiner)"
		}
		if s.role == RoleHost {
			return "Enemy's Turn - Your Ships"
		}
		return "Waiting for opponent..."
	case PhaseFinished:
		if s.outcome == OutcomeVictory {
			return "Victory!"
		}
		return "Defeat"
	}
	return ""
}

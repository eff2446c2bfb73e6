package p2p

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// resolveAttack answers a shot at the own grid. The defender is the only
// side that knows where its ships are, so its answer is final.
func (s *Session) resolveAttack(m CellRequest) ([]Message, error) {
	x, y := int(m.X), int(m.Y)
	if !InBounds(x, y) {
		return nil, fmt.Errorf("%w: %s (%d,%d)", ErrOutOfRange, m.Kind(), x, y)
	}
	if s.phase != PhaseTransition && s.phase != PhaseBattle {
		return nil, fmt.Errorf("%w: %s during %s", ErrUnexpectedMessage, m.Kind(), s.phase)
	}
	if s.IsMyTurn() {
		return nil, fmt.Errorf("%w: %s while holding the turn", ErrUnexpectedMessage, m.Kind())
	}

	idx := CellIndex(x, y)
	fresh := !s.ownGrid[idx].Resolved()
	result := CellMiss
	if s.shipLocations.Contains(idx) {
		result = CellHit
	}
	s.ownGrid[idx] = result

	if result == CellHit && fresh {
		s.hitsTaken++
		if s.hitsTaken >= s.fleet.TotalCells() && s.phase != PhaseFinished {
			s.finish(OutcomeDefeat)
		}
	}

	s.log.WithFields(logrus.Fields{
		"x":          x,
		"y":          y,
		"result":     result,
		"repeat":     !fresh,
		"hits_taken": s.hitsTaken,
	}).Debug("resolved incoming shot")

	out := []Message{CellUpdate{X: m.X, Y: m.Y, Result: result}}
	if result == CellMiss && s.phase != PhaseFinished {
		s.setTurn(s.role.turn())
		out = append(out, TurnUpdate{Turn: s.role.turn()})
	}
	return out, nil
}

// applyAttackResult records an answer. While holding the turn the answer
// is about the opponent grid; otherwise it is an echo about our own grid.
func (s *Session) applyAttackResult(m CellUpdate) error {
	x, y := int(m.X), int(m.Y)
	if !InBounds(x, y) {
		return fmt.Errorf("%w: %s (%d,%d)", ErrOutOfRange, m.Kind(), x, y)
	}
	idx := CellIndex(x, y)

	if s.IsMyTurn() {
		prev := s.opponentGrid[idx]
		s.opponentGrid[idx] = m.Result
		s.awaitingResult = false
		if m.Result == CellHit && prev != CellHit && s.phase != PhaseFinished && s.outcome != OutcomeDefeat {
			s.hitsLanded++
			if s.hitsLanded >= s.fleet.TotalCells() {
				s.finish(OutcomeVictory)
			}
		}
		return nil
	}

	if s.phase != PhaseTransition && s.phase != PhaseBattle {
		return fmt.Errorf("%w: %s during %s", ErrUnexpectedMessage, m.Kind(), s.phase)
	}
	if s.ownGrid[idx].Resolved() {
		return nil
	}
	s.ownGrid[idx] = m.Result
	return nil
}

// applySnapshot takes the host's initial grid into the joiner's opponent
// view. Ship cells are masked, only attack history is kept.
func (s *Session) applySnapshot(m GridSnapshot) error {
	if s.role != RoleJoiner || s.phase != PhasePreparing {
		return fmt.Errorf("%w: %s for %s during %s", ErrUnexpectedMessage, m.Kind(), s.role, s.phase)
	}
	for i, c := range m.Cells {
		if c == CellShip {
			c = CellEmpty
		}
		s.opponentGrid[i] = c
	}
	s.log.WithFields(logrus.Fields{
		"digest": m.Cells.Digest(),
	}).Debug("applied grid snapshot")
	return nil
}

package p2p

import (
	"reflect"

	"github.com/dariubs/percent"
)

type ShipResponse struct {
	Length     int  `json:"length"`
	Horizontal bool `json:"horizontal"`
}

// SessionSnapshot is the read-only view handed to the presentation layer.
type SessionSnapshot struct {
	Version               uint64        `json:"version"`
	SessionID             string        `json:"session_id"`
	Role                  string        `json:"role"`
	Phase                 string        `json:"phase"`
	Turn                  string        `json:"turn"`
	IsMyTurn              bool          `json:"is_my_turn"`
	Headline              string        `json:"headline"`
	Outcome               string        `json:"outcome"`
	Connected             bool          `json:"connected"`
	Ended                 bool          `json:"ended"`
	OwnGrid               []string      `json:"own_grid"`
	OpponentGrid          []string      `json:"opponent_grid"`
	OwnGridDigest         string        `json:"own_grid_digest"`
	PendingShip           *ShipResponse `json:"pending_ship,omitempty"`
	ShipsRemaining        int           `json:"ships_remaining"`
	LocalPreparationDone  bool          `json:"local_preparation_done"`
	RemotePreparationDone bool          `json:"remote_preparation_done"`
	HitsTaken             int           `json:"hits_taken"`
	HitsLanded            int           `json:"hits_landed"`
	ShotsFired            int           `json:"shots_fired"`
	FleetTotal            int           `json:"fleet_total"`
	Accuracy              float64       `json:"accuracy"`
}

func NewSessionSnapshot(s *Session) SessionSnapshot {
	own := s.OwnGrid()
	opp := s.OpponentGrid()

	snap := SessionSnapshot{
		SessionID:             s.ID(),
		Role:                  s.Role().String(),
		Phase:                 s.Phase().String(),
		Turn:                  s.Turn().String(),
		IsMyTurn:              s.IsMyTurn(),
		Headline:              s.Headline(),
		Outcome:               s.Outcome().String(),
		Connected:             s.Connected(),
		Ended:                 s.Ended(),
		OwnGrid:               own.Rows(),
		OpponentGrid:          opp.Rows(),
		OwnGridDigest:         own.Digest(),
		ShipsRemaining:        s.ShipsRemaining(),
		LocalPreparationDone:  s.LocalPreparationDone(),
		RemotePreparationDone: s.RemotePreparationDone(),
		HitsTaken:             s.HitsTaken(),
		HitsLanded:            s.HitsLanded(),
		ShotsFired:            s.ShotsFired(),
		FleetTotal:            s.FleetTotal(),
	}
	if ship, ok := s.PendingShip(); ok {
		snap.PendingShip = &ShipResponse{Length: ship.Length, Horizontal: ship.Horizontal}
	}
	if snap.ShotsFired > 0 {
		snap.Accuracy = percent.PercentOf(snap.HitsLanded, snap.ShotsFired)
	}
	return snap
}

// sameState compares everything except the version.
func (a SessionSnapshot) sameState(b SessionSnapshot) bool {
	a.Version, b.Version = 0, 0
	return reflect.DeepEqual(a, b)
}

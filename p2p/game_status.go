package p2p

import "fmt"

type Role uint8

const (
	RoleHost Role = iota
	RoleJoiner
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "HOST"
	case RoleJoiner:
		return "JOINER"
	default:
		return "INVALID"
	}
}

func (r Role) turn() Turn {
	if r == RoleHost {
		return TurnHost
	}
	return TurnJoiner
}

func (r Role) opponent() Turn {
	if r == RoleHost {
		return TurnJoiner
	}
	return TurnHost
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "host", "HOST":
		return RoleHost, nil
	case "join", "joiner", "JOIN", "JOINER":
		return RoleJoiner, nil
	default:
		return 0, fmt.Errorf("unknown role %q (want host or join)", s)
	}
}

type Phase uint8

const (
	PhasePreparing Phase = iota
	PhaseTransition
	PhaseBattle
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "PREPARING"
	case PhaseTransition:
		return "TRANSITION"
	case PhaseBattle:
		return "BATTLE"
	case PhaseFinished:
		return "FINISHED"
	default:
		return "INVALID"
	}
}

type Turn uint8

const (
	TurnNone Turn = iota
	TurnHost
	TurnJoiner
)

func (t Turn) String() string {
	switch t {
	case TurnNone:
		return "NONE"
	case TurnHost:
		return "HOST"
	case TurnJoiner:
		return "JOINER"
	default:
		return "INVALID"
	}
}

func (t Turn) other() Turn {
	switch t {
	case TurnHost:
		return TurnJoiner
	case TurnJoiner:
		return TurnHost
	default:
		return TurnNone
	}
}

// wire values: 0 = host, 1 = joiner
func (t Turn) wire() (uint8, error) {
	switch t {
	case TurnHost:
		return 0, nil
	case TurnJoiner:
		return 1, nil
	default:
		return 0, fmt.Errorf("turn %s has no wire value", t)
	}
}

func turnFromWire(b uint8) (Turn, bool) {
	switch b {
	case 0:
		return TurnHost, true
	case 1:
		return TurnJoiner, true
	default:
		return TurnNone, false
	}
}

type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeDefeat
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "NONE"
	case OutcomeVictory:
		return "VICTORY"
	case OutcomeDefeat:
		return "DEFEAT"
	default:
		return "INVALID"
	}
}

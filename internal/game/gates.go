package game

import (
	mathrand "math/rand"
)

type Gate string

const (
	GateAND  Gate = "AND"
	GateOR   Gate = "OR"
	GateXOR  Gate = "XOR"
	GateNAND Gate = "NAND"
	GateNOR  Gate = "NOR"
	GateNOT  Gate = "NOT"
)

var gates = []Gate{GateAND, GateOR, GateXOR, GateNAND, GateNOR, GateNOT}

const (
	gateRewardMoney = int64(15)
	gateRewardExp   = int64(10)
)

// GateChallenge asks for the output of a single logic gate. NOT ignores B.
type GateChallenge struct {
	Gate Gate `json:"gate"`
	A    bool `json:"a"`
	B    bool `json:"b"`
}

func NewGateChallenge(r *mathrand.Rand) GateChallenge {
	return GateChallenge{
		Gate: gates[r.Intn(len(gates))],
		A:    r.Intn(2) == 1,
		B:    r.Intn(2) == 1,
	}
}

func (c GateChallenge) Solution() (bool, error) {
	switch c.Gate {
	case GateAND:
		return c.A && c.B, nil
	case GateOR:
		return c.A || c.B, nil
	case GateXOR:
		return c.A != c.B, nil
	case GateNAND:
		return !(c.A && c.B), nil
	case GateNOR:
		return !(c.A || c.B), nil
	case GateNOT:
		return !c.A, nil
	default:
		return false, ErrUnknownGate
	}
}

func CheckGate(c GateChallenge, answer bool) (Outcome, error) {
	want, err := c.Solution()
	if err != nil {
		return Outcome{}, err
	}
	if answer != want {
		return Outcome{ToxicityDelta: 1}, nil
	}
	return Outcome{
		Correct:    true,
		MoneyDelta: gateRewardMoney,
		ExpDelta:   gateRewardExp,
	}, nil
}

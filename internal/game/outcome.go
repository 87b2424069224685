package game

import (
	"errors"

	"bitquest/internal/store"
)

var (
	ErrUnknownGate       = errors.New("unknown gate")
	ErrUnknownItem       = errors.New("unknown item")
	ErrItemNotHeld       = errors.New("item not in inventory")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientStock = errors.New("insufficient shares")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrBadChallenge      = errors.New("malformed challenge")
	ErrBadQuantity       = errors.New("quantity must be positive")
)

// Outcome is the state transition a resolved game hands back to the caller.
type Outcome struct {
	Correct       bool  `json:"correct"`
	MoneyDelta    int64 `json:"money_delta"`
	ExpDelta      int64 `json:"exp_delta"`
	ToxicityDelta int64 `json:"toxicity_delta"`
}

// ApplyTo mutates the in-memory record; the caller persists it.
func (o Outcome) ApplyTo(u *store.User) {
	u.Money += o.MoneyDelta
	if u.Money < 0 {
		u.Money = 0
	}
	u.Exp += o.ExpDelta
	if u.Exp < 0 {
		u.Exp = 0
	}
	u.Toxicity += o.ToxicityDelta
	if u.Toxicity < 0 {
		u.Toxicity = 0
	}
}

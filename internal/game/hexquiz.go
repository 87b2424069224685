package game

import (
	"encoding/hex"
	"fmt"
	mathrand "math/rand"
	"strings"
)

var hexWords = []string{
	"stack", "queue", "kernel", "pointer", "socket",
	"mutex", "thread", "packet", "buffer", "opcode",
}

const (
	hexMoneyPerByte = int64(3)
	hexExpPerByte   = int64(2)
)

// HexChallenge carries a hex-encoded ASCII phrase the player must decode.
type HexChallenge struct {
	Encoded string `json:"encoded"`
}

func NewHexChallenge(r *mathrand.Rand) HexChallenge {
	n := 2 + r.Intn(2)
	words := make([]string, n)
	for i := range words {
		words[i] = hexWords[r.Intn(len(hexWords))]
	}
	plain := strings.Join(words, " ")
	return HexChallenge{Encoded: hex.EncodeToString([]byte(plain))}
}

// CheckHex validates the decoded answer. Rewards scale with payload length.
func CheckHex(c HexChallenge, answer string) (Outcome, error) {
	decoded, err := hex.DecodeString(c.Encoded)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrBadChallenge, err)
	}
	if strings.TrimSpace(answer) != string(decoded) {
		return Outcome{ToxicityDelta: 1}, nil
	}
	n := int64(len(decoded))
	return Outcome{
		Correct:    true,
		MoneyDelta: n * hexMoneyPerByte,
		ExpDelta:   n * hexExpPerByte,
	}, nil
}

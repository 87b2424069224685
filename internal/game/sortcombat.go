package game

import (
	"errors"
	mathrand "math/rand"
	"sort"
)

var (
	ErrBattleOver = errors.New("battle already resolved")
	ErrBadStrike  = errors.New("strike index out of range")
)

const (
	sortBountyPerValue = int64(25)
	sortExpPerValue    = int64(12)
)

// SortBattle is a duel against a scrambled slice. Each round the player
// names the index selection sort would swap into the cursor position next;
// a correct strike advances the sort and damages the bug.
type SortBattle struct {
	Values []int `json:"values"`
	Cursor int   `json:"cursor"`
	Misses int   `json:"misses"`
}

func NewSortBattle(r *mathrand.Rand, size int) SortBattle {
	if size < 3 {
		size = 3
	}
	values := make([]int, size)
	for i, p := range r.Perm(size * 3)[:size] {
		values[i] = p + 1
	}
	return SortBattle{Values: values}
}

func (b SortBattle) Done() bool {
	return b.Cursor >= len(b.Values)
}

// NextSwap returns the index of the minimum of the unsorted tail, the value
// selection sort moves to the cursor next.
func (b SortBattle) NextSwap() int {
	min := b.Cursor
	for i := b.Cursor + 1; i < len(b.Values); i++ {
		if b.Values[i] < b.Values[min] {
			min = i
		}
	}
	return min
}

// Strike resolves one round. A correct pick swaps and advances the cursor;
// a wrong pick counts a miss and leaves the slice untouched.
func (b *SortBattle) Strike(index int) (hit bool, err error) {
	if b.Done() {
		return false, ErrBattleOver
	}
	if index < 0 || index >= len(b.Values) {
		return false, ErrBadStrike
	}
	want := b.NextSwap()
	if index != want && b.Values[index] != b.Values[want] {
		b.Misses++
		return false, nil
	}
	b.Values[b.Cursor], b.Values[want] = b.Values[want], b.Values[b.Cursor]
	b.Cursor++
	return true, nil
}

// Settle converts a finished battle into rewards. Misses shave the bounty;
// an unfinished battle earns nothing.
func (b SortBattle) Settle() Outcome {
	if !b.Done() || !sort.IntsAreSorted(b.Values) {
		return Outcome{}
	}
	n := int64(len(b.Values))
	money := n*sortBountyPerValue - int64(b.Misses)*sortBountyPerValue/2
	if money < 0 {
		money = 0
	}
	return Outcome{
		Correct:       true,
		MoneyDelta:    money,
		ExpDelta:      n * sortExpPerValue,
		ToxicityDelta: int64(b.Misses),
	}
}

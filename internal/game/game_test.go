package game

import (
	"encoding/hex"
	"errors"
	mathrand "math/rand"
	"testing"

	"bitquest/internal/store"
)

func TestGateSolutions(t *testing.T) {
	tests := []struct {
		gate Gate
		a, b bool
		want bool
	}{
		{GateAND, true, true, true},
		{GateAND, true, false, false},
		{GateOR, false, false, false},
		{GateOR, true, false, true},
		{GateXOR, true, true, false},
		{GateXOR, true, false, true},
		{GateNAND, true, true, false},
		{GateNOR, false, false, true},
		{GateNOT, true, false, false},
		{GateNOT, false, true, true},
	}
	for _, tc := range tests {
		got, err := GateChallenge{Gate: tc.gate, A: tc.a, B: tc.b}.Solution()
		if err != nil {
			t.Fatalf("%s(%v,%v): %v", tc.gate, tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("%s(%v,%v)=%v want %v", tc.gate, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCheckGate(t *testing.T) {
	c := GateChallenge{Gate: GateXOR, A: true, B: false}

	out, err := CheckGate(c, true)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !out.Correct || out.MoneyDelta <= 0 || out.ExpDelta <= 0 {
		t.Fatalf("expected reward on correct answer: %+v", out)
	}

	out, err = CheckGate(c, false)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if out.Correct || out.MoneyDelta != 0 || out.ToxicityDelta != 1 {
		t.Fatalf("expected toxicity bump on wrong answer: %+v", out)
	}

	if _, err := CheckGate(GateChallenge{Gate: "XAND"}, true); !errors.Is(err, ErrUnknownGate) {
		t.Fatalf("expected ErrUnknownGate, got %v", err)
	}
}

func TestSortBattlePlayedPerfectly(t *testing.T) {
	r := mathrand.New(mathrand.NewSource(7))
	b := NewSortBattle(r, 6)

	for !b.Done() {
		hit, err := b.Strike(b.NextSwap())
		if err != nil {
			t.Fatalf("strike: %v", err)
		}
		if !hit {
			t.Fatalf("expected hit on correct index")
		}
	}
	out := b.Settle()
	if !out.Correct || out.MoneyDelta != 6*sortBountyPerValue || out.ToxicityDelta != 0 {
		t.Fatalf("unexpected settle: %+v", out)
	}
}

func TestSortBattleMisses(t *testing.T) {
	r := mathrand.New(mathrand.NewSource(7))
	b := NewSortBattle(r, 5)

	wrong := b.NextSwap() + 1
	if wrong >= len(b.Values) {
		wrong = b.NextSwap() - 1
	}
	hit, err := b.Strike(wrong)
	if err != nil {
		t.Fatalf("strike: %v", err)
	}
	if hit {
		t.Fatalf("expected miss")
	}
	if b.Cursor != 0 || b.Misses != 1 {
		t.Fatalf("miss mutated battle: %+v", b)
	}

	if out := b.Settle(); out.Correct || out.MoneyDelta != 0 {
		t.Fatalf("unfinished battle must not pay out: %+v", out)
	}

	if _, err := b.Strike(99); !errors.Is(err, ErrBadStrike) {
		t.Fatalf("expected ErrBadStrike, got %v", err)
	}
}

func TestHexChallengeRoundTrip(t *testing.T) {
	r := mathrand.New(mathrand.NewSource(11))
	c := NewHexChallenge(r)

	out, err := CheckHex(c, "definitely wrong")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if out.Correct {
		t.Fatalf("wrong answer accepted")
	}

	decoded, err := hex.DecodeString(c.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err = CheckHex(c, string(decoded))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !out.Correct || out.MoneyDelta != int64(len(decoded))*hexMoneyPerByte {
		t.Fatalf("unexpected reward: %+v", out)
	}

	if _, err := CheckHex(HexChallenge{Encoded: "zz"}, "x"); err == nil {
		t.Fatalf("expected error on malformed challenge")
	}
}

func TestHeapFirstFit(t *testing.T) {
	h := NewHeap(64)

	off, err := h.Alloc("a", 16)
	if err != nil || off != 0 {
		t.Fatalf("alloc a: off=%d err=%v", off, err)
	}
	off, err = h.Alloc("b", 16)
	if err != nil || off != 16 {
		t.Fatalf("alloc b: off=%d err=%v", off, err)
	}
	off, err = h.Alloc("c", 16)
	if err != nil || off != 32 {
		t.Fatalf("alloc c: off=%d err=%v", off, err)
	}

	if err := h.Free("b"); err != nil {
		t.Fatalf("free b: %v", err)
	}
	// First fit reuses the hole left by b.
	off, err = h.Alloc("d", 8)
	if err != nil || off != 16 {
		t.Fatalf("alloc d: off=%d err=%v", off, err)
	}

	if _, err := h.Alloc("huge", 999); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
	if _, err := h.Alloc("a", 4); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := h.Free("nope"); !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("expected ErrUnknownBlock, got %v", err)
	}
}

func TestHeapCoalesce(t *testing.T) {
	h := NewHeap(64)
	for i, id := range []string{"a", "b", "c", "d"} {
		if _, err := h.Alloc(id, 16); err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
	}
	h.Free("b")
	h.Free("c")
	if got := h.LargestFree(); got != 32 {
		t.Fatalf("expected coalesced free block of 32, got %d", got)
	}
	if frag := h.Fragmentation(); frag != 0 {
		t.Fatalf("contiguous free space should have zero fragmentation, got %f", frag)
	}
}

func TestRunHeapScoring(t *testing.T) {
	out, err := RunHeap(64, []HeapAction{
		{Op: "alloc", ID: "a", Size: 32},
		{Op: "alloc", ID: "b", Size: 32},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Correct || out.MoneyDelta != 128 || out.ExpDelta != 64 {
		t.Fatalf("unexpected score: %+v", out)
	}

	if _, err := RunHeap(64, []HeapAction{{Op: "realloc", ID: "a"}}); !errors.Is(err, ErrBadHeapAction) {
		t.Fatalf("expected ErrBadHeapAction, got %v", err)
	}
}

func TestTitleForLevel(t *testing.T) {
	if got := TitleForLevel(0); got != "Script Kiddie" {
		t.Fatalf("level 0 clamps to first title, got %q", got)
	}
	if got := TitleForLevel(1); got != "Script Kiddie" {
		t.Fatalf("unexpected title for level 1: %q", got)
	}
	if got := TitleForLevel(999); got != "Root of All Eval" {
		t.Fatalf("level 999 clamps to top title, got %q", got)
	}
}

func TestLevelForExp(t *testing.T) {
	tests := []struct {
		exp  int64
		want int64
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{450, 5},
		{1_000_000, int64(len(levelTitles))},
	}
	for _, tc := range tests {
		if got := LevelForExp(tc.exp); got != tc.want {
			t.Fatalf("exp=%d got=%d want=%d", tc.exp, got, tc.want)
		}
	}
}

func TestBuyAndUseItem(t *testing.T) {
	u := store.User{ID: "x", Money: 100, Inventory: map[string]int64{}}

	if err := BuyItem(&u, "coffee"); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if u.Money != 70 || u.Inventory["coffee"] != 1 {
		t.Fatalf("buy did not apply: %+v", u)
	}

	if err := BuyItem(&u, "gold_bar"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := BuyItem(&u, "bogus"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}

	out, err := UseItem(&u, "coffee")
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	out.ApplyTo(&u)
	if u.Exp != out.ExpDelta || u.Exp <= 0 {
		t.Fatalf("effect not applied: %+v", u)
	}
	if _, held := u.Inventory["coffee"]; held {
		t.Fatalf("consumed item should leave the inventory")
	}

	if _, err := UseItem(&u, "coffee"); !errors.Is(err, ErrItemNotHeld) {
		t.Fatalf("expected ErrItemNotHeld, got %v", err)
	}
}

func TestStockTrade(t *testing.T) {
	u := store.User{ID: "x", Money: 1000, Stocks: map[string]int64{}}

	if err := BuyStock(&u, "BIT", 3, 100); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if u.Money != 700 || u.Stocks["BIT"] != 3 {
		t.Fatalf("buy did not apply: %+v", u)
	}

	if err := BuyStock(&u, "BIT", 100, 100); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := SellStock(&u, "BIT", 5, 100); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := SellStock(&u, "BIT", 0, 100); !errors.Is(err, ErrBadQuantity) {
		t.Fatalf("expected ErrBadQuantity, got %v", err)
	}

	if err := SellStock(&u, "BIT", 3, 110); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if u.Money != 1030 {
		t.Fatalf("sell proceeds wrong: %d", u.Money)
	}
	if _, held := u.Stocks["BIT"]; held {
		t.Fatalf("fully sold position should leave the stocks map")
	}
}

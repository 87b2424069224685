package market

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.json")
	return NewEngine(path, nil, 0, nil)
}

func TestLoadMissingFile(t *testing.T) {
	e := newTestEngine(t)
	st := e.Load()
	if len(st.Prices) != 0 || len(st.History) != 0 || st.LastUpdate != 0 {
		t.Fatalf("expected zero state, got %+v", st)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	e := newTestEngine(t)
	if err := os.WriteFile(e.path, []byte("{nope"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	st := e.Load()
	if len(st.Prices) != 0 || st.LastUpdate != 0 {
		t.Fatalf("expected recovery to zero state, got %+v", st)
	}
}

func TestRefreshNotStale(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()

	seed := State{
		Prices:     map[string]int64{"BIT": 100},
		History:    []Snapshot{},
		LastUpdate: now.Add(-1900 * time.Millisecond).UnixMilli(),
	}
	if err := e.Save(seed); err != nil {
		t.Fatalf("save: %v", err)
	}

	st, err := e.RefreshIfStale(now)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if st.LastUpdate != seed.LastUpdate {
		t.Fatalf("state refreshed inside staleness window")
	}
	if st.Prices["BIT"] != 100 {
		t.Fatalf("price changed inside staleness window: %d", st.Prices["BIT"])
	}
}

func TestRefreshStale(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()

	seed := State{
		Prices:     map[string]int64{},
		History:    []Snapshot{},
		LastUpdate: now.Add(-2100 * time.Millisecond).UnixMilli(),
	}
	for _, ins := range DefaultInstruments() {
		seed.Prices[ins.Code] = ins.BasePrice
	}
	if err := e.Save(seed); err != nil {
		t.Fatalf("save: %v", err)
	}

	st, err := e.RefreshIfStale(now)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if st.LastUpdate != now.UnixMilli() {
		t.Fatalf("last_update not advanced: %d", st.LastUpdate)
	}
	for _, ins := range DefaultInstruments() {
		got := st.Prices[ins.Code]
		prev := seed.Prices[ins.Code]
		lo := int64(float64(prev)*0.97) - 1
		hi := int64(float64(prev)*1.03) + 1
		if got < lo || got > hi {
			t.Fatalf("%s price %d outside [%d, %d]", ins.Code, got, lo, hi)
		}
		if got < 1 {
			t.Fatalf("%s price below floor: %d", ins.Code, got)
		}
	}
	if len(st.History) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(st.History))
	}

	// The write must be durable: a second engine on the same file sees it.
	other := NewEngine(e.path, nil, 0, nil)
	if other.Load().LastUpdate != st.LastUpdate {
		t.Fatalf("refresh was not persisted")
	}
}

func TestRefreshSeedsFromBasePrices(t *testing.T) {
	e := newTestEngine(t)
	st, err := e.RefreshIfStale(time.Now())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	for _, ins := range DefaultInstruments() {
		got, ok := st.Prices[ins.Code]
		if !ok {
			t.Fatalf("missing instrument %s", ins.Code)
		}
		lo := int64(float64(ins.BasePrice)*0.97) - 1
		hi := int64(float64(ins.BasePrice)*1.03) + 1
		if got < lo || got > hi {
			t.Fatalf("%s price %d outside [%d, %d] of base", ins.Code, got, lo, hi)
		}
	}
}

func TestHistoryBounded(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()

	for i := 0; i < HistoryLimit+1; i++ {
		now = now.Add(2100 * time.Millisecond)
		if _, err := e.RefreshIfStale(now); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	st := e.Load()
	if len(st.History) != HistoryLimit {
		t.Fatalf("history length %d, want %d", len(st.History), HistoryLimit)
	}
	last := st.History[len(st.History)-1]
	for code, price := range st.Prices {
		if last.Prices[code] != price {
			t.Fatalf("latest snapshot out of sync for %s", code)
		}
	}
}

func TestConfiguredStalenessWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.json")
	e := NewEngine(path, nil, 10*time.Second, nil)
	now := time.Now()

	seed := State{
		Prices:     map[string]int64{"BIT": 100},
		History:    []Snapshot{},
		LastUpdate: now.Add(-5 * time.Second).UnixMilli(),
	}
	if err := e.Save(seed); err != nil {
		t.Fatalf("save: %v", err)
	}

	st, err := e.RefreshIfStale(now)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if st.LastUpdate != seed.LastUpdate {
		t.Fatalf("refreshed inside a widened window")
	}

	st, err = e.RefreshIfStale(now.Add(6 * time.Second))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if st.LastUpdate == seed.LastUpdate {
		t.Fatalf("expected refresh past the configured window")
	}
}

func TestConcurrentRefreshSingleRecompute(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.RefreshIfStale(now); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}()
	}
	wg.Wait()

	st := e.Load()
	if len(st.History) != 1 {
		t.Fatalf("expected exactly one recompute, history has %d snapshots", len(st.History))
	}
	if st.LastUpdate != now.UnixMilli() {
		t.Fatalf("last_update %d, want %d", st.LastUpdate, now.UnixMilli())
	}
}

func TestNextPriceFloor(t *testing.T) {
	if got := nextPrice(100, 0); got != 100 {
		t.Fatalf("zero return moved price: %d", got)
	}
	if got := nextPrice(100, -1); got != 1 {
		t.Fatalf("expected floor at 1, got %d", got)
	}
	if got := nextPrice(1, -0.03); got != 1 {
		t.Fatalf("expected floor at 1, got %d", got)
	}
}

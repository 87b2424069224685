package market

import (
	"encoding/json"
	"log/slog"
	"math"
	mathrand "math/rand"
	"os"
	"sync"
	"time"
)

const (
	// HistoryLimit bounds the snapshot buffer; the oldest entry is evicted
	// first.
	HistoryLimit = 40

	// StaleAfter is the default minimum interval between recomputations.
	// Any number of sessions reading within the window observe the same
	// prices.
	StaleAfter = 2 * time.Second

	maxDriftPerRefresh = 0.03
	minPrice           = int64(1)
)

type Snapshot struct {
	Prices map[string]int64 `json:"prices"`
	Label  string           `json:"label"`
}

type State struct {
	Prices     map[string]int64 `json:"prices"`
	History    []Snapshot       `json:"history"`
	LastUpdate int64            `json:"last_update"` // unix milliseconds
}

type Instrument struct {
	Code      string
	BasePrice int64
}

// DefaultInstruments is the instrument catalog the dashboard trades.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{"BIT", 100},
		{"HEX", 85},
		{"RAM", 120},
		{"CPU", 150},
		{"NET", 95},
		{"SSD", 110},
		{"GPU", 180},
		{"LSP", 65},
	}
}

// Engine owns the shared price series. All mutation goes through
// RefreshIfStale; the mutex serializes the check-then-write sequence so a
// single process recomputes at most once per staleness window.
type Engine struct {
	path        string
	instruments []Instrument
	staleAfter  time.Duration
	log         *slog.Logger

	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewEngine(path string, instruments []Instrument, staleAfter time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(instruments) == 0 {
		instruments = DefaultInstruments()
	}
	if staleAfter <= 0 {
		staleAfter = StaleAfter
	}
	return &Engine{
		path:        path,
		instruments: instruments,
		staleAfter:  staleAfter,
		log:         logger,
		rand:        mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Load reads the persisted state. A missing or unparsable file yields a
// fresh zero state rather than an error.
func (e *Engine) Load() State {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		if !os.IsNotExist(err) {
			e.log.Warn("market state unreadable, starting fresh", "err", err)
		}
		return zeroState()
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		e.log.Warn("market state corrupt, starting fresh", "err", err)
		return zeroState()
	}
	if st.Prices == nil {
		st.Prices = map[string]int64{}
	}
	return st
}

// Save overwrites the persisted snapshot. Last writer wins.
func (e *Engine) Save(st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(e.path, raw, 0o600)
}

// RefreshIfStale recomputes the series when the persisted state is older
// than the staleness window and persists the result. A non-stale state is
// returned unchanged with no write.
func (e *Engine) RefreshIfStale(now time.Time) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.Load()
	if now.UnixMilli()-st.LastUpdate <= e.staleAfter.Milliseconds() {
		return st, nil
	}

	prices := make(map[string]int64, len(e.instruments))
	for _, ins := range e.instruments {
		prev, ok := st.Prices[ins.Code]
		if !ok {
			prev = ins.BasePrice
		}
		ret := (e.rand.Float64()*2 - 1) * maxDriftPerRefresh
		prices[ins.Code] = nextPrice(prev, ret)
	}

	snap := Snapshot{Prices: prices, Label: now.Format("15:04:05")}
	st.Prices = prices
	st.History = append(st.History, snap)
	if len(st.History) > HistoryLimit {
		st.History = st.History[len(st.History)-HistoryLimit:]
	}
	st.LastUpdate = now.UnixMilli()

	if err := e.Save(st); err != nil {
		return st, err
	}
	return st, nil
}

// nextPrice applies a multiplicative return and floors the result so prices
// never reach zero.
func nextPrice(prev int64, ret float64) int64 {
	next := int64(math.Round(float64(prev) * (1 + ret)))
	if next < minPrice {
		return minPrice
	}
	return next
}

func zeroState() State {
	return State{Prices: map[string]int64{}, History: []Snapshot{}, LastUpdate: 0}
}

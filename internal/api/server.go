package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"bitquest/internal/auth"
	"bitquest/internal/config"
	"bitquest/internal/game"
	"bitquest/internal/market"
	"bitquest/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	auth   *auth.Registry
	store  *store.Store
	market *market.Engine
	mux    *chi.Mux

	mu   sync.Mutex
	rand *mathrand.Rand
}

func New(cfg config.APIConfig, logger *slog.Logger, registry *auth.Registry, users *store.Store, engine *market.Engine) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		auth:   registry,
		store:  users,
		market: engine,
		mux:    chi.NewRouter(),
		rand:   mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/auth/logout", s.handleLogout)

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/market", s.handleMarket)
			r.Get("/market/history", s.handleMarketHistory)

			r.Post("/stocks/buy", s.handleStockBuy)
			r.Post("/stocks/sell", s.handleStockSell)

			r.Get("/shop", s.handleShop)
			r.Post("/shop/buy", s.handleShopBuy)
			r.Post("/items/use", s.handleItemUse)

			r.Get("/games/gates/new", s.handleGateNew)
			r.Post("/games/gates", s.handleGateAnswer)
			r.Get("/games/sort/new", s.handleSortNew)
			r.Post("/games/sort", s.handleSortResolve)
			r.Get("/games/hex/new", s.handleHexNew)
			r.Post("/games/hex", s.handleHexAnswer)
			r.Post("/games/malloc", s.handleMalloc)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.auth.Lookup(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userContextKey).(string)
	if !ok || userID == "" {
		return "", errors.New("missing auth context")
	}
	return userID, nil
}

type userView struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Level    int64            `json:"level"`
	Title    string           `json:"title"`
	Exp      int64            `json:"exp"`
	Money    int64            `json:"money"`
	Toxicity int64            `json:"toxicity"`
	Items    map[string]int64 `json:"inventory"`
	Stocks   map[string]int64 `json:"stocks"`
}

func viewOf(u store.User) userView {
	return userView{
		ID:       u.ID,
		Name:     u.Name,
		Level:    u.Level,
		Title:    game.TitleForLevel(u.Level),
		Exp:      u.Exp,
		Money:    u.Money,
		Toxicity: u.Toxicity,
		Items:    u.Inventory,
		Stocks:   u.Stocks,
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID       string `json:"id"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "id and password are required")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = in.ID
	}
	if err := s.store.Create(r.Context(), in.ID, in.Password, in.Name); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			writeError(w, http.StatusConflict, "user id already taken")
			return
		}
		s.fail(w, "signup", err)
		return
	}
	token := s.auth.Issue(in.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "id": in.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID       string `json:"id"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.store.Get(r.Context(), strings.TrimSpace(in.ID))
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "unknown user or wrong password")
		return
	}
	if err != nil {
		s.fail(w, "login", err)
		return
	}
	if u.Password != in.Password {
		writeError(w, http.StatusUnauthorized, "unknown user or wrong password")
		return
	}
	token := s.auth.Issue(u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "id": u.ID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Revoke(bearerToken(r.Header.Get("Authorization")))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	st, err := s.market.RefreshIfStale(time.Now())
	if err != nil {
		s.fail(w, "market refresh", err)
		return
	}
	var holdings int64
	for code, qty := range u.Stocks {
		holdings += qty * st.Prices[code]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        viewOf(u),
		"prices":      st.Prices,
		"last_update": st.LastUpdate,
		"net_worth":   u.Money + holdings,
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	st, err := s.market.RefreshIfStale(time.Now())
	if err != nil {
		s.fail(w, "market refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prices":      st.Prices,
		"last_update": st.LastUpdate,
	})
}

func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	st, err := s.market.RefreshIfStale(time.Now())
	if err != nil {
		s.fail(w, "market refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": st.History})
}

func (s *Server) handleStockBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, game.BuyStock)
}

func (s *Server) handleStockSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, game.SellStock)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, fill func(*store.User, string, int64, int64) error) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Code     string `json:"code"`
		Quantity int64  `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))

	st, err := s.market.RefreshIfStale(time.Now())
	if err != nil {
		s.fail(w, "market refresh", err)
		return
	}
	price, listed := st.Prices[in.Code]
	if !listed {
		writeError(w, http.StatusNotFound, game.ErrUnknownInstrument.Error())
		return
	}
	if err := fill(&u, in.Code, in.Quantity, price); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.Save(r.Context(), u); err != nil {
		s.fail(w, "save trade", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"price": price, "user": viewOf(u)})
}

func (s *Server) handleShop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": game.CatalogItems()})
}

func (s *Server) handleShopBuy(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Item string `json:"item"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := game.BuyItem(&u, in.Item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.Save(r.Context(), u); err != nil {
		s.fail(w, "save purchase", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": viewOf(u)})
}

func (s *Server) handleItemUse(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Item string `json:"item"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := game.UseItem(&u, in.Item)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.settle(w, r, u, out, true)
}

func (s *Server) handleGateNew(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	c := game.NewGateChallenge(s.rand)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleGateAnswer(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		game.GateChallenge
		Answer bool `json:"answer"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := game.CheckGate(in.GateChallenge, in.Answer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.settle(w, r, u, out, true)
}

func (s *Server) handleSortNew(w http.ResponseWriter, r *http.Request) {
	size := 6
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			size = n
		}
	}
	if size > 16 {
		size = 16
	}
	s.mu.Lock()
	b := game.NewSortBattle(s.rand, size)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSortResolve(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Values  []int `json:"values"`
		Strikes []int `json:"strikes"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Values) < 3 || len(in.Values) > 16 {
		writeError(w, http.StatusBadRequest, "battle size out of range")
		return
	}
	b := game.SortBattle{Values: in.Values}
	for _, idx := range in.Strikes {
		if b.Done() {
			break
		}
		if _, err := b.Strike(idx); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	out := b.Settle()
	if !out.Correct {
		writeJSON(w, http.StatusOK, map[string]any{"battle": b, "outcome": out})
		return
	}
	s.settle(w, r, u, out, true)
}

func (s *Server) handleHexNew(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	c := game.NewHexChallenge(s.rand)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleHexAnswer(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Encoded string `json:"encoded"`
		Answer  string `json:"answer"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := game.CheckHex(game.HexChallenge{Encoded: in.Encoded}, in.Answer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.settle(w, r, u, out, true)
}

func (s *Server) handleMalloc(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Size    int               `json:"size"`
		Actions []game.HeapAction `json:"actions"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Size <= 0 || in.Size > 4096 {
		in.Size = game.DefaultHeapSize
	}
	out, err := game.RunHeap(in.Size, in.Actions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.settle(w, r, u, out, true)
}

// currentUser loads the authenticated record, mapping the store's explicit
// error kinds onto HTTP statuses.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return store.User{}, false
	}
	u, err := s.store.Get(r.Context(), userID)
	if errors.Is(err, store.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "account no longer exists")
		return store.User{}, false
	}
	if err != nil {
		s.fail(w, "load user", err)
		return store.User{}, false
	}
	return u, true
}

// settle applies a game outcome, recomputes the level when experience
// changed, and persists the record.
func (s *Server) settle(w http.ResponseWriter, r *http.Request, u store.User, out game.Outcome, relevel bool) {
	out.ApplyTo(&u)
	if relevel {
		u.Level = game.LevelForExp(u.Exp)
	}
	if err := s.store.Save(r.Context(), u); err != nil {
		s.fail(w, "save outcome", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcome": out, "user": viewOf(u)})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

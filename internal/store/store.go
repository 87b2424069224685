package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

const (
	StarterMoney = int64(1000)
	StarterLevel = int64(1)

	AdminID    = "frank"
	AdminMoney = int64(999_999_999_999)
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrCorruptRecord = errors.New("corrupt user record")
	ErrSchemaVersion = errors.New("database schema is newer than this binary")
)

type User struct {
	ID        string           `json:"id"`
	Password  string           `json:"-"`
	Name      string           `json:"name"`
	Level     int64            `json:"level"`
	Exp       int64            `json:"exp"`
	Money     int64            `json:"money"`
	Toxicity  int64            `json:"toxicity"`
	Inventory map[string]int64 `json:"inventory"`
	Stocks    map[string]int64 `json:"stocks"`
}

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}
}

// migrations[i] moves the schema from user_version i to i+1. Append only;
// existing entries never change once shipped.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id        TEXT PRIMARY KEY,
		password  TEXT NOT NULL,
		name      TEXT NOT NULL,
		level     INTEGER NOT NULL DEFAULT 1,
		exp       INTEGER NOT NULL DEFAULT 0,
		money     INTEGER NOT NULL DEFAULT 0,
		toxicity  INTEGER NOT NULL DEFAULT 0,
		inventory TEXT NOT NULL DEFAULT '{}',
		stocks    TEXT NOT NULL DEFAULT '{}'
	)`,
}

// Init migrates the schema and seeds the admin account. Safe to call on
// every process start.
func (s *Store) Init(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: have %d, support %d", ErrSchemaVersion, version, len(migrations))
	}
	for i := version; i < len(migrations); i++ {
		if _, err := s.db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migrate schema to v%d: %w", i+1, err)
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("bump schema version to v%d: %w", i+1, err)
		}
		s.log.Info("schema migrated", "version", i+1)
	}
	return s.seedAdmin(ctx)
}

func (s *Store) seedAdmin(ctx context.Context) error {
	inventory, err := json.Marshal(map[string]int64{
		"energy_drink": 99,
		"rubber_duck":  1,
		"coffee":       42,
	})
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (id, password, name, level, exp, money, toxicity, inventory, stocks)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, '{}')
	`, AdminID, "hunter2", "Frank", int64(99), int64(0), AdminMoney, string(inventory))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.log.Info("admin account seeded", "id", AdminID)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (User, error) {
	var (
		u            User
		rawInventory string
		rawStocks    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password, name, level, exp, money, toxicity, inventory, stocks
		FROM users
		WHERE id = ?
	`, id).Scan(&u.ID, &u.Password, &u.Name, &u.Level, &u.Exp, &u.Money, &u.Toxicity, &rawInventory, &rawStocks)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	if err := json.Unmarshal([]byte(rawInventory), &u.Inventory); err != nil {
		return User{}, fmt.Errorf("%w: inventory for %q: %v", ErrCorruptRecord, id, err)
	}
	if err := json.Unmarshal([]byte(rawStocks), &u.Stocks); err != nil {
		return User{}, fmt.Errorf("%w: stocks for %q: %v", ErrCorruptRecord, id, err)
	}
	if u.Inventory == nil {
		u.Inventory = map[string]int64{}
	}
	if u.Stocks == nil {
		u.Stocks = map[string]int64{}
	}
	return u, nil
}

// Create inserts a new record with starter defaults. Returns ErrUserExists
// when the id is already taken; the existing record is left untouched.
func (s *Store) Create(ctx context.Context, id, password, name string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (id, password, name, level, exp, money, toxicity, inventory, stocks)
		VALUES (?, ?, ?, ?, 0, ?, 0, '{}', '{}')
	`, id, password, name, StarterLevel, StarterMoney)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserExists
	}
	return nil
}

// Save overwrites the mutable fields of an existing record. Last writer
// wins: there is no version check, and a missing id is a silent no-op.
func (s *Store) Save(ctx context.Context, u User) error {
	inventory, err := json.Marshal(u.Inventory)
	if err != nil {
		return err
	}
	stocks, err := json.Marshal(u.Stocks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE users
		SET money = ?, toxicity = ?, inventory = ?, stocks = ?, level = ?, exp = ?
		WHERE id = ?
	`, u.Money, u.Toxicity, string(inventory), string(stocks), u.Level, u.Exp, u.ID)
	return err
}

func (s *Store) AddExp(ctx context.Context, id string, amount int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET exp = exp + ? WHERE id = ?
	`, amount, id)
	return err
}

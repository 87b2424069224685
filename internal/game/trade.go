package game

import (
	"bitquest/internal/store"
)

// BuyStock fills instantly at the shared market price and adjusts the
// in-memory record; the caller persists it.
func BuyStock(u *store.User, code string, qty, price int64) error {
	if qty <= 0 || price <= 0 {
		return ErrBadQuantity
	}
	cost := qty * price
	if u.Money < cost {
		return ErrInsufficientFunds
	}
	u.Money -= cost
	if u.Stocks == nil {
		u.Stocks = map[string]int64{}
	}
	u.Stocks[code] += qty
	return nil
}

func SellStock(u *store.User, code string, qty, price int64) error {
	if qty <= 0 || price <= 0 {
		return ErrBadQuantity
	}
	if u.Stocks[code] < qty {
		return ErrInsufficientStock
	}
	u.Stocks[code] -= qty
	if u.Stocks[code] == 0 {
		delete(u.Stocks, code)
	}
	u.Money += qty * price
	return nil
}

package game

import (
	"sort"

	"bitquest/internal/store"
)

type ItemEffect string

const (
	EffectExpBoost ItemEffect = "exp_boost"
	EffectDetox    ItemEffect = "detox"
	EffectCashOut  ItemEffect = "cash_out"
)

type Item struct {
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	Effect    ItemEffect `json:"effect"`
	Magnitude int64      `json:"magnitude"`
}

// Shop catalog. Energy drinks trade toxicity for a big exp hit, soap
// cleanses, the gold bar is a plain store of value.
var catalog = map[string]Item{
	"coffee":       {Name: "coffee", Price: 30, Effect: EffectExpBoost, Magnitude: 10},
	"energy_drink": {Name: "energy_drink", Price: 50, Effect: EffectExpBoost, Magnitude: 30},
	"rubber_duck":  {Name: "rubber_duck", Price: 120, Effect: EffectExpBoost, Magnitude: 60},
	"soap":         {Name: "soap", Price: 40, Effect: EffectDetox, Magnitude: 5},
	"gold_bar":     {Name: "gold_bar", Price: 500, Effect: EffectCashOut, Magnitude: 450},
}

func CatalogItems() []Item {
	out := make([]Item, 0, len(catalog))
	for _, it := range catalog {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func LookupItem(name string) (Item, bool) {
	it, ok := catalog[name]
	return it, ok
}

// BuyItem debits the price and adds the item to the in-memory record; the
// caller persists it.
func BuyItem(u *store.User, name string) error {
	it, ok := catalog[name]
	if !ok {
		return ErrUnknownItem
	}
	if u.Money < it.Price {
		return ErrInsufficientFunds
	}
	u.Money -= it.Price
	if u.Inventory == nil {
		u.Inventory = map[string]int64{}
	}
	u.Inventory[name]++
	return nil
}

// UseItem consumes one held item and returns the effect as an outcome; the
// caller applies and persists it.
func UseItem(u *store.User, name string) (Outcome, error) {
	it, ok := catalog[name]
	if !ok {
		return Outcome{}, ErrUnknownItem
	}
	if u.Inventory[name] <= 0 {
		return Outcome{}, ErrItemNotHeld
	}
	u.Inventory[name]--
	if u.Inventory[name] == 0 {
		delete(u.Inventory, name)
	}

	var out Outcome
	switch it.Effect {
	case EffectExpBoost:
		out = Outcome{Correct: true, ExpDelta: it.Magnitude}
		if name == "energy_drink" {
			out.ToxicityDelta = 2
		}
	case EffectDetox:
		out = Outcome{Correct: true, ToxicityDelta: -it.Magnitude}
	case EffectCashOut:
		out = Outcome{Correct: true, MoneyDelta: it.Magnitude}
	}
	return out, nil
}

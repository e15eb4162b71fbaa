package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price snapshot for one item.
// An invalid Price always comes with Stale set.
type Quote struct {
	Price     decimal.NullDecimal `json:"price"`
	Change24h decimal.NullDecimal `json:"change_24h"`
	UpdatedAt time.Time           `json:"updated_at"`
	Stale     bool                `json:"stale"`
}

// QuoteMap maps canonical item ids to their latest Quote.
type QuoteMap map[string]Quote

// NewQuote builds a Quote from optional price and change values.
func NewQuote(price, change *decimal.Decimal, now time.Time) Quote {
	q := Quote{UpdatedAt: now}
	if price != nil {
		q.Price = decimal.NewNullDecimal(*price)
	}
	if change != nil {
		q.Change24h = decimal.NewNullDecimal(*change)
	}
	q.Stale = !q.Price.Valid
	return q
}

// StaleQuote is the data-level representation of a failed fetch.
func StaleQuote(now time.Time) Quote {
	return Quote{UpdatedAt: now, Stale: true}
}

// Clone returns a copy of the map.
func (m QuoteMap) Clone() QuoteMap {
	out := make(QuoteMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// StaleCount returns how many entries are stale.
func (m QuoteMap) StaleCount() int {
	n := 0
	for _, q := range m {
		if q.Stale {
			n++
		}
	}
	return n
}

package domain

import "github.com/shopspring/decimal"

const placeholder = "--"

// Row is what an observer renders for one watched item.
type Row struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Icon       string `json:"icon,omitempty"`
	PriceText  string `json:"price"`
	ChangeText string `json:"change"`
	Direction  string `json:"direction"` // "up", "down" or ""
	ChangeSign string `json:"change_sign"`
	Stale      bool   `json:"stale"`
}

// BuildRows joins the watch-list with the quote cache in list order.
// Items without a cache entry yet are rendered as stale rows. prev holds the
// prices of the last render and is used to compute the flash direction.
func BuildRows(items []Item, quotes QuoteMap, prev map[string]decimal.Decimal) []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		q, ok := quotes[CanonicalID(it.ID)]
		if !ok {
			q = Quote{Stale: true}
		}
		row := Row{
			ID:         it.ID,
			Symbol:     it.Symbol,
			Icon:       it.Icon,
			PriceText:  FormatPrice(q.Price),
			ChangeText: FormatChange(q.Change24h),
			ChangeSign: ChangeSign(q.Change24h),
			Stale:      q.Stale,
		}
		if q.Price.Valid {
			if last, seen := prev[it.ID]; seen {
				row.Direction = Direction(last, q.Price.Decimal)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// PriceMemo records the valid prices of the current render for the next one.
func PriceMemo(items []Item, quotes QuoteMap) map[string]decimal.Decimal {
	memo := make(map[string]decimal.Decimal, len(items))
	for _, it := range items {
		if q, ok := quotes[CanonicalID(it.ID)]; ok && q.Price.Valid {
			memo[it.ID] = q.Price.Decimal
		}
	}
	return memo
}

// FormatPrice renders a USD price with five decimals.
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return placeholder
	}
	return "$" + p.Decimal.StringFixed(5)
}

// FormatChange renders a signed percentage with two decimals.
func FormatChange(c decimal.NullDecimal) string {
	if !c.Valid {
		return placeholder
	}
	s := c.Decimal.StringFixed(2)
	if !c.Decimal.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

// ChangeSign returns "positive", "negative" or "neutral".
func ChangeSign(c decimal.NullDecimal) string {
	if !c.Valid {
		return "neutral"
	}
	if c.Decimal.IsPositive() {
		return "positive"
	}
	if c.Decimal.IsNegative() {
		return "negative"
	}
	return "neutral"
}

// Direction compares two prices.
func Direction(prev, next decimal.Decimal) string {
	switch next.Cmp(prev) {
	case 1:
		return "up"
	case -1:
		return "down"
	}
	return ""
}

package domain

import "strings"

// MaxItems is the hard cap on the watch-list length.
const MaxItems = 3

// Item is a tradable pair tracked for price display.
// ID is always stored in canonical form and keys dedupe and the quote cache.
// PairAddress keeps the id as entered when it differs from ID; upstream
// lookups are case-sensitive.
type Item struct {
	ID          string `json:"id"`
	PairAddress string `json:"pair_address,omitempty"`
	Symbol      string `json:"symbol"`
	Icon        string `json:"icon,omitempty"`
	BaseAddress string `json:"base_address,omitempty"`
}

// ItemMeta holds the display fields resolved for an id at add-time.
type ItemMeta struct {
	Symbol      string `json:"symbol"`
	Icon        string `json:"icon,omitempty"`
	BaseAddress string `json:"base_address,omitempty"`
}

// NewItem builds an Item from a raw id and its resolved metadata.
func NewItem(id string, meta ItemMeta) Item {
	return Item{
		ID:          id,
		Symbol:      meta.Symbol,
		Icon:        meta.Icon,
		BaseAddress: meta.BaseAddress,
	}.Canonical()
}

// Address returns the id to send upstream.
func (it Item) Address() string {
	if it.PairAddress != "" {
		return it.PairAddress
	}
	return it.ID
}

// Canonical returns it with a canonical ID. PairAddress is taken from the raw
// ID when missing or when it does not match the ID, and is left empty when it
// equals the ID.
func (it Item) Canonical() Item {
	raw := strings.TrimSpace(it.ID)
	it.ID = CanonicalID(raw)
	it.PairAddress = strings.TrimSpace(it.PairAddress)
	if CanonicalID(it.PairAddress) != it.ID {
		it.PairAddress = raw
	}
	if it.PairAddress == it.ID {
		it.PairAddress = ""
	}
	return it
}

// CanonicalID normalizes an id for equality and storage.
func CanonicalID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SameID reports whether two ids are equal after canonicalization.
func SameID(a, b string) bool {
	return CanonicalID(a) == CanonicalID(b)
}

// Normalize canonicalizes ids, drops items without an id and removes
// duplicates (first occurrence wins). The cap is not applied here.
func Normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = it.Canonical()
		if it.ID == "" {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []Item, id string) int {
	id = CanonicalID(id)
	for i, it := range items {
		if CanonicalID(it.ID) == id {
			return i
		}
	}
	return -1
}

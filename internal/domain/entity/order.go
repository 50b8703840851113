package entity

import (
	"sort"
	"time"
)

// Order is the kitchen-visible subset of a sale's line items. ID is a
// monotonically increasing per-session sequence number; Items maps a line
// item ref to its index in the sale's item array. ModifiedAt is set only when
// the item set, or an item's contents, differs from the previously observed
// version.
type Order struct {
	ID          int64          `json:"id"`
	Items       map[string]int `json:"items"`
	ProcessedAt time.Time      `json:"processedAt"`
	ModifiedAt  *time.Time     `json:"modifiedAt,omitempty"`
	Received    bool           `json:"received"`
	TableNumber string         `json:"tableNumber,omitempty"`
}

// ItemRefs returns the order's line item refs in stable order.
func (o *Order) ItemRefs() []string {
	refs := make([]string, 0, len(o.Items))
	for ref := range o.Items {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// SameItemSet reports whether both orders reference the same set of line
// item refs. Index positions are ignored; a reshuffled sale does not make
// the order a kitchen update.
func (o *Order) SameItemSet(other *Order) bool {
	if other == nil || len(o.Items) != len(other.Items) {
		return false
	}
	for ref := range o.Items {
		if _, ok := other.Items[ref]; !ok {
			return false
		}
	}
	return true
}

// ModifiedAfter reports whether this order's modification stamp is strictly
// newer than the other's. A stamp beats no stamp.
func (o *Order) ModifiedAfter(other *Order) bool {
	if o.ModifiedAt == nil {
		return false
	}
	if other == nil || other.ModifiedAt == nil {
		return true
	}
	return o.ModifiedAt.After(*other.ModifiedAt)
}

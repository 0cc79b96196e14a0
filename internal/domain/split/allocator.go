// Package split computes how a shared receipt is divided between the
// participants who claimed its line items. Subtotals are attributed from
// per-unit item costs, and tax and tip are allocated proportionally in
// integer cents with a residual correction so that every pool sums exactly
// to its rounded total.
package split

import (
	"github.com/shopspring/decimal"
)

// LineItem is one priced entry on a receipt. TotalPrice divided by Quantity
// is the authoritative per-unit cost; any unit price captured elsewhere is
// informational only.
type LineItem struct {
	ID         string
	TotalPrice decimal.Decimal
	Quantity   int
}

// Selection records how many units of one item one participant claims.
// Several selections may reference the same item (shared dishes) or the
// same participant (multiple items).
type Selection struct {
	Participant string
	ItemID      string
	Quantity    int
}

// Share is one participant's slice of the receipt. All amounts are rounded
// to two decimal places and Total is the sum of the already-rounded parts.
type Share struct {
	Participant string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Tip         decimal.Decimal
	Total       decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// Compute partitions the receipt between participants.
//
// Tax and tip rates are fractions of the selected subtotal (0.0925 means
// 9.25%). Each rate is applied once to the exact aggregate subtotal and
// rounded half-up to cents; those cent totals are then allocated
// proportionally to each participant's subtotal, with the last participant
// in first-appearance order absorbing the rounding residual. Tax and tip
// pools are reconciled independently.
//
// Degenerate inputs never fail: selections referencing unknown items or
// with non-positive quantities contribute nothing, items with zero quantity
// have a zero unit cost, and a zero total subtotal yields a nil result.
// The result order is the order participants first appear in selections,
// which makes repeated calls with identical input byte-identical.
func Compute(items []LineItem, selections []Selection, taxRate, tipRate decimal.Decimal) []Share {
	if len(items) == 0 {
		return nil
	}

	// Authoritative per-unit cost for each item.
	unitCost := make(map[string]decimal.Decimal, len(items))
	for _, it := range items {
		if it.Quantity == 0 {
			unitCost[it.ID] = decimal.Zero
			continue
		}
		unitCost[it.ID] = it.TotalPrice.Div(decimal.NewFromInt(int64(it.Quantity)))
	}

	// Exact per-participant subtotals, keyed by participant with the order
	// of first appearance preserved. That order is the residual tie-break.
	subtotals := make(map[string]decimal.Decimal)
	var order []string
	for _, sel := range selections {
		if _, seen := subtotals[sel.Participant]; !seen {
			order = append(order, sel.Participant)
			subtotals[sel.Participant] = decimal.Zero
		}
		// Dangling item references and non-positive quantities are
		// tolerated: the participant is registered but contributes nothing.
		unit, ok := unitCost[sel.ItemID]
		if !ok || sel.Quantity <= 0 {
			continue
		}
		amount := unit.Mul(decimal.NewFromInt(int64(sel.Quantity)))
		subtotals[sel.Participant] = subtotals[sel.Participant].Add(amount)
	}

	totalSubtotal := decimal.Zero
	for _, u := range order {
		totalSubtotal = totalSubtotal.Add(subtotals[u])
	}
	if totalSubtotal.IsZero() {
		return nil
	}

	// Rates apply to the exact aggregate subtotal, rounded once. Summing
	// already-rounded per-participant pieces would drift.
	taxTotal := totalSubtotal.Mul(taxRate).Round(2)
	tipTotal := totalSubtotal.Mul(tipRate).Round(2)

	// All allocation below happens in integer cents.
	subtotalCents := make(map[string]int64, len(order))
	var totalSubtotalCents int64
	for _, u := range order {
		c := toCents(subtotals[u])
		subtotalCents[u] = c
		totalSubtotalCents += c
	}
	if totalSubtotalCents == 0 {
		// Positive exact subtotal that rounds to zero cents; every share of
		// it is zero anyway, but keep the divisor sane.
		totalSubtotalCents = 1
	}

	taxCents := allocateCents(toCents(taxTotal), order, subtotalCents, totalSubtotalCents)
	tipCents := allocateCents(toCents(tipTotal), order, subtotalCents, totalSubtotalCents)

	shares := make([]Share, len(order))
	for i, u := range order {
		sub := fromCents(subtotalCents[u])
		tax := fromCents(taxCents[u])
		tip := fromCents(tipCents[u])
		shares[i] = Share{
			Participant: u,
			Subtotal:    sub,
			Tax:         tax,
			Tip:         tip,
			Total:       sub.Add(tax).Add(tip),
		}
	}
	return shares
}

// ByParticipant indexes shares by participant identifier.
func ByParticipant(shares []Share) map[string]Share {
	m := make(map[string]Share, len(shares))
	for _, s := range shares {
		m[s.Participant] = s
	}
	return m
}

// allocateCents splits totalCents across participants proportionally to
// their subtotal. Every participant except the last gets a half-up rounded
// proportional share; the last gets whatever remains, so the allocation
// always sums to totalCents.
func allocateCents(totalCents int64, order []string, subtotalCents map[string]int64, totalSubtotalCents int64) map[string]int64 {
	alloc := make(map[string]int64, len(order))
	var running int64
	for i, u := range order {
		if i == len(order)-1 {
			alloc[u] = totalCents - running
			break
		}
		frac := decimal.NewFromInt(subtotalCents[u]).Div(decimal.NewFromInt(totalSubtotalCents))
		c := decimal.NewFromInt(totalCents).Mul(frac).Round(0).IntPart()
		alloc[u] = c
		running += c
	}
	return alloc
}

// toCents rounds an amount half-up to two decimal places and returns it as
// integer cents.
func toCents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(oneHundred).Round(0).IntPart()
}

// fromCents converts integer cents back to a two-decimal-place amount.
func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

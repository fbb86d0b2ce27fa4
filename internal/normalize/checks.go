package normalize

import (
	"fmt"
	"math"

	"github.com/vbonduro/invoicescan/internal/domain"
)

// tolerance absorbs rounding on per-line amounts.
const tolerance = 0.01

// CheckTotals compares each line's amount with quantity x unit price, and the
// extracted total with the sum of the line items (with and without tax). The
// result is advisory and never fails an extraction.
func CheckTotals(inv *domain.ExtractedInvoice) []string {
	if inv == nil {
		return nil
	}

	var findings []string
	var sum float64
	complete := true
	for i, item := range inv.LineItems {
		if item.Amount == nil {
			complete = false
			continue
		}
		sum += *item.Amount
		if item.Quantity != nil && item.UnitPrice != nil {
			want := *item.Quantity * *item.UnitPrice
			if !approxEqual(want, *item.Amount) {
				findings = append(findings, fmt.Sprintf("line item %d: %g x %.2f = %.2f but amount is %.2f",
					i+1, *item.Quantity, *item.UnitPrice, want, *item.Amount))
			}
		}
	}

	if inv.TotalAmount == nil || len(inv.LineItems) == 0 || !complete {
		return findings
	}

	total := *inv.TotalAmount
	if approxEqual(sum, total) || (inv.Tax != nil && approxEqual(sum, total-*inv.Tax)) {
		return findings
	}
	return append(findings, fmt.Sprintf("line items sum to %.2f but total is %.2f", sum, total))
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance+1e-9
}

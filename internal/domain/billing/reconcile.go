package billing

import (
	"github.com/shopspring/decimal"
)

// Reconciliation rules for invoices and their payments. All monetary
// arithmetic goes through shopspring/decimal so that partial payments
// never accumulate float drift.

var (
	hundred = decimal.NewFromInt(100)
)

// CoerceAmount converts an untrusted amount into a decimal, treating
// nil and unparseable values as zero. Imported ledgers and legacy rows
// carry nulls and free-text amounts; coercion keeps totals well-defined
// instead of poisoning the whole reconciliation.
func CoerceAmount(value interface{}) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return *v
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// TotalPaid sums the amounts of the given payments.
func TotalPaid(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Remaining returns the outstanding balance for an invoice amount given
// the total paid so far. Overpayment clamps to zero rather than going
// negative.
func Remaining(amount, totalPaid decimal.Decimal) decimal.Decimal {
	remaining := amount.Sub(totalPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// DeriveStatus computes the payment status of an invoice from its amount
// and what has been paid against it.
//
// Draft and cancelled are sticky: payments recorded against such invoices
// never move them out of their lifecycle state. Overdue is not derived
// here; it is only assigned by the maintenance resync, which owns the
// due-date comparison.
func DeriveStatus(current InvoiceStatus, amount, totalPaid decimal.Decimal) InvoiceStatus {
	if current == InvoiceStatusDraft || current == InvoiceStatusCancelled {
		return current
	}
	if totalPaid.LessThanOrEqual(decimal.Zero) {
		return InvoiceStatusPending
	}
	if totalPaid.GreaterThanOrEqual(amount) {
		return InvoiceStatusPaid
	}
	return InvoiceStatusPartiallyPaid
}

// PaymentPercentage returns how much of the invoice has been paid, as a
// percentage clamped to [0, 100]. A zero invoice amount yields 0.
func PaymentPercentage(amount, totalPaid decimal.Decimal) decimal.Decimal {
	if amount.IsZero() || amount.IsNegative() {
		return decimal.Zero
	}
	pct := totalPaid.Div(amount).Mul(hundred)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// FormatAmount renders an amount with exactly two decimal places for
// display and export.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

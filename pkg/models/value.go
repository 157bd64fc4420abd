package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VALUE - Known/Unavailable union for every optional financial figure
// =============================================================================

const (
	statusKnown       = "known"
	statusUnavailable = "unavailable"

	reasonNotComputed = "not computed"
)

// Value is either a Known decimal amount or Unavailable with a reason.
// The zero Value is Unavailable, so a forgotten assignment can never read as 0.
type Value struct {
	known  bool
	amount decimal.Decimal
	reason string
}

// Known wraps a determined amount.
func Known(d decimal.Decimal) Value {
	return Value{known: true, amount: d}
}

// Unavailable records that a figure could not be determined from input.
func Unavailable(reason string) Value {
	if reason == "" {
		reason = reasonNotComputed
	}
	return Value{reason: reason}
}

// KnownInt is a convenience for whole-unit amounts.
func KnownInt(v int64) Value {
	return Known(decimal.NewFromInt(v))
}

// IsKnown reports whether the value was determined.
func (v Value) IsKnown() bool { return v.known }

// Decimal returns the amount and whether it is known.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if !v.known {
		return decimal.Decimal{}, false
	}
	return v.amount, true
}

// Reason explains why the value is unavailable. Empty for known values.
func (v Value) Reason() string {
	if v.known {
		return ""
	}
	if v.reason == "" {
		return reasonNotComputed
	}
	return v.reason
}

// Equal compares state and amount (reasons are ignored).
func (v Value) Equal(o Value) bool {
	if v.known != o.known {
		return false
	}
	if !v.known {
		return true
	}
	return v.amount.Equal(o.amount)
}

// Add sums two values. An unavailable operand makes the result unavailable
// with that operand's reason.
func (v Value) Add(o Value) Value {
	if !v.known {
		return v
	}
	if !o.known {
		return o
	}
	return Known(v.amount.Add(o.amount))
}

// Sub subtracts o from v under the same rules as Add.
func (v Value) Sub(o Value) Value {
	if !v.known {
		return v
	}
	if !o.known {
		return o
	}
	return Known(v.amount.Sub(o.amount))
}

// Abs returns the magnitude of a known value.
func (v Value) Abs() Value {
	if !v.known {
		return v
	}
	return Known(v.amount.Abs())
}

func (v Value) String() string {
	if !v.known {
		return fmt.Sprintf("unavailable(%s)", v.Reason())
	}
	return v.amount.String()
}

type valueJSON struct {
	Status string           `json:"status"`
	Value  *decimal.Decimal `json:"value,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// MarshalJSON encodes the union explicitly so consumers cannot mistake
// an unavailable figure for null or zero.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.known {
		amt := v.amount
		return json.Marshal(valueJSON{Status: statusKnown, Value: &amt})
	}
	return json.Marshal(valueJSON{Status: statusUnavailable, Reason: v.Reason()})
}

// UnmarshalJSON decodes the explicit union form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw valueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	switch raw.Status {
	case statusKnown:
		if raw.Value == nil {
			return fmt.Errorf("decode value: known value without amount")
		}
		*v = Known(*raw.Value)
	case statusUnavailable:
		*v = Unavailable(raw.Reason)
	default:
		return fmt.Errorf("decode value: unknown status %q", raw.Status)
	}
	return nil
}

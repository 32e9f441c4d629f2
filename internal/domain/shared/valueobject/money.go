package valueobject

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money is a value object representing a signed monetary amount in integer
// minor units (cents). It is immutable - all operations return new Money
// instances. Arithmetic is exact integer arithmetic; Money never touches
// floating point.
type Money struct {
	units int64
}

// Zero is the zero monetary amount.
var Zero = Money{}

// FromMinorUnits creates Money from a count of minor units (cents).
func FromMinorUnits(units int64) Money {
	return Money{units: units}
}

// FromDecimalString creates Money from a decimal string such as "123.45".
// The value must not carry more than two fractional digits.
func FromDecimalString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return FromDecimal(d)
}

// FromDecimal creates Money from a decimal amount of major units.
func FromDecimal(d decimal.Decimal) (Money, error) {
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return Money{}, errors.New("amount has more than two fractional digits")
	}
	return Money{units: shifted.IntPart()}, nil
}

// MinorUnits returns the amount as a count of minor units.
func (m Money) MinorUnits() int64 {
	return m.units
}

// Decimal returns the amount in major units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.units, -2)
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.units == 0
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.units > 0
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.units < 0
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) Money {
	return Money{units: m.units + other.units}
}

// Sub returns a new Money with the difference
func (m Money) Sub(other Money) Money {
	return Money{units: m.units - other.units}
}

// Neg returns a new Money with the sign reversed
func (m Money) Neg() Money {
	return Money{units: -m.units}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	if m.units < 0 {
		return Money{units: -m.units}
	}
	return m
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, 1 if m > other
func (m Money) Cmp(other Money) int {
	switch {
	case m.units < other.units:
		return -1
	case m.units > other.units:
		return 1
	default:
		return 0
	}
}

// Equals returns true if both amounts are equal
func (m Money) Equals(other Money) bool {
	return m.units == other.units
}

// LessThan returns true if this amount is less than the other
func (m Money) LessThan(other Money) bool {
	return m.units < other.units
}

// LessThanOrEqual returns true if this amount is less than or equal to the other
func (m Money) LessThanOrEqual(other Money) bool {
	return m.units <= other.units
}

// GreaterThan returns true if this amount is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.units > other.units
}

// GreaterThanOrEqual returns true if this amount is greater than or equal to the other
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.units >= other.units
}

// String returns the amount in major units with two decimal places, e.g. "123.45"
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON marshals the amount as integer minor units
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.units, 10)), nil
}

// UnmarshalJSON unmarshals integer minor units into Money
func (m *Money) UnmarshalJSON(data []byte) error {
	units, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid minor-unit amount: %w", err)
	}
	m.units = units
	return nil
}

// Value implements driver.Valuer; stored as a BIGINT of minor units
func (m Money) Value() (driver.Value, error) {
	return m.units, nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value any) error {
	if value == nil {
		m.units = 0
		return nil
	}
	switch v := value.(type) {
	case int64:
		m.units = v
	case int:
		m.units = int64(v)
	case []byte:
		units, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid minor-unit value %q: %w", v, err)
		}
		m.units = units
	case string:
		units, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid minor-unit value %q: %w", v, err)
		}
		m.units = units
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	return nil
}

// Sum returns the exact sum of the given amounts.
func Sum(amounts ...Money) Money {
	var total int64
	for _, a := range amounts {
		total += a.units
	}
	return Money{units: total}
}

package domain

import (
	"fmt"
	"math"
)

// QuantityTriple is a stock count split across outer, middle and loose-unit
// packaging levels.
type QuantityTriple struct {
	Level1 int `json:"level1" msgpack:"l1"`
	Level2 int `json:"level2" msgpack:"l2"`
	Level3 int `json:"level3" msgpack:"l3"`
}

func (q QuantityTriple) Validate() error {
	if q.Level1 < 0 || q.Level2 < 0 || q.Level3 < 0 {
		return fmt.Errorf("%w: negative quantity %d/%d/%d", ErrRange, q.Level1, q.Level2, q.Level3)
	}
	return nil
}

// Add sums level by level without reducing.
func (q QuantityTriple) Add(other QuantityTriple) QuantityTriple {
	return QuantityTriple{
		Level1: q.Level1 + other.Level1,
		Level2: q.Level2 + other.Level2,
		Level3: q.Level3 + other.Level3,
	}
}

// Reduce returns the minimal-remainder triple holding the same flat units.
func (q QuantityTriple) Reduce(rate ConversionRate) (QuantityTriple, error) {
	flat, err := ToFlatUnits(q, rate)
	if err != nil {
		return QuantityTriple{}, err
	}
	return ToTriple(flat, rate)
}

// IsReducible reports whether a lower level holds a full unit of a higher one.
func (q QuantityTriple) IsReducible(rate ConversionRate) (bool, error) {
	reduced, err := q.Reduce(rate)
	if err != nil {
		return false, err
	}
	return reduced != q, nil
}

// ConversionRate holds flat units per level-1 and per level-2 unit. Zero means
// the rate was not supplied.
type ConversionRate struct {
	Level1Rate int `json:"level1_rate" msgpack:"r1"`
	Level2Rate int `json:"level2_rate" msgpack:"r2"`
}

func (r ConversionRate) Validate() error {
	if r.Level1Rate < 0 || r.Level2Rate < 0 {
		return fmt.Errorf("%w: negative rate %d/%d", ErrRange, r.Level1Rate, r.Level2Rate)
	}
	return nil
}

func (r ConversionRate) Complete() bool {
	return r.Level1Rate > 0 && r.Level2Rate > 0
}

// Or fills each missing rate from fallback.
func (r ConversionRate) Or(fallback ConversionRate) ConversionRate {
	if r.Level1Rate == 0 {
		r.Level1Rate = fallback.Level1Rate
	}
	if r.Level2Rate == 0 {
		r.Level2Rate = fallback.Level2Rate
	}
	return r
}

// ToFlatUnits computes Level1*Level1Rate + Level2*Level2Rate + Level3.
// A missing rate is only an error when its level holds a non-zero count.
func ToFlatUnits(q QuantityTriple, rate ConversionRate) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	if err := rate.Validate(); err != nil {
		return 0, err
	}
	l1, err := levelUnits(q.Level1, rate.Level1Rate, 1)
	if err != nil {
		return 0, err
	}
	l2, err := levelUnits(q.Level2, rate.Level2Rate, 2)
	if err != nil {
		return 0, err
	}
	total := l1
	for _, n := range []int{l2, q.Level3} {
		if total > math.MaxInt-n {
			return 0, fmt.Errorf("%w: flat units overflow", ErrRange)
		}
		total += n
	}
	return total, nil
}

func levelUnits(count, rate, level int) (int, error) {
	if count == 0 {
		return 0, nil
	}
	if rate == 0 {
		return 0, fmt.Errorf("%w: level %d rate", ErrMissingRate, level)
	}
	if count > math.MaxInt/rate {
		return 0, fmt.Errorf("%w: level %d units overflow", ErrRange, level)
	}
	return count * rate, nil
}

// ToTriple decomposes flat units greatest denomination first. Both rates must
// be positive.
func ToTriple(flatUnits int, rate ConversionRate) (QuantityTriple, error) {
	if err := rate.Validate(); err != nil {
		return QuantityTriple{}, err
	}
	if !rate.Complete() {
		return QuantityTriple{}, fmt.Errorf("%w: got %d/%d", ErrDivision, rate.Level1Rate, rate.Level2Rate)
	}
	if flatUnits < 0 {
		return QuantityTriple{}, fmt.Errorf("%w: negative flat units %d", ErrRange, flatUnits)
	}
	r1 := flatUnits % rate.Level1Rate
	return QuantityTriple{
		Level1: flatUnits / rate.Level1Rate,
		Level2: r1 / rate.Level2Rate,
		Level3: r1 % rate.Level2Rate,
	}, nil
}

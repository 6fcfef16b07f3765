package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinRow      = 'A'
	MaxRow      = 'N'
	MinLevel    = 1
	MaxLevel    = 4
	MinPosition = 1
	MaxPosition = 20
)

// Grammars are matched against the trimmed, upper-cased input in this order.
var locationGrammars = []*regexp.Regexp{
	// A1/1, A1/01
	regexp.MustCompile(`^([A-Z])(\d)/(\d+)$`),
	// A/1/01, A-1-1, A.1.1, A 1 1
	regexp.MustCompile(`^([A-Z])[/\-. ](\d)[/\-. ](\d+)$`),
	// A11, A101, A120: level is always the first digit
	regexp.MustCompile(`^([A-Z])(\d)(\d{1,2})$`),
}

// LocationCode addresses one warehouse slot.
type LocationCode struct {
	Row      string
	Level    int
	Position int
}

// NewLocationCode builds a LocationCode, upper-casing row and rejecting any
// component outside its domain with ErrRange.
func NewLocationCode(row string, level, position int) (LocationCode, error) {
	upper, ok := asciiUpper(row)
	if !ok {
		return LocationCode{}, fmt.Errorf("%w: row %q not in %c-%c", ErrRange, row, MinRow, MaxRow)
	}
	code := LocationCode{Row: upper, Level: level, Position: position}
	if err := code.Validate(); err != nil {
		return LocationCode{}, err
	}
	return code, nil
}

func (c LocationCode) Validate() error {
	if len(c.Row) != 1 || c.Row[0] < MinRow || c.Row[0] > MaxRow {
		return fmt.Errorf("%w: row %q not in %c-%c", ErrRange, c.Row, MinRow, MaxRow)
	}
	if c.Level < MinLevel || c.Level > MaxLevel {
		return fmt.Errorf("%w: level %d not in %d-%d", ErrRange, c.Level, MinLevel, MaxLevel)
	}
	if c.Position < MinPosition || c.Position > MaxPosition {
		return fmt.Errorf("%w: position %d not in %d-%d", ErrRange, c.Position, MinPosition, MaxPosition)
	}
	return nil
}

func (c LocationCode) String() string {
	return fmt.Sprintf("%s%d/%d", c.Row, c.Level, c.Position)
}

// FormatLocation returns the canonical text for a slot.
func FormatLocation(row string, level, position int) (string, error) {
	code, err := NewLocationCode(row, level, position)
	if err != nil {
		return "", err
	}
	return code.String(), nil
}

// ParseLocation reports ok only when a grammar matches and every component is
// inside its domain. Nothing is clamped.
func ParseLocation(input string) (LocationCode, bool) {
	s, ok := asciiUpper(strings.TrimSpace(input))
	if !ok {
		return LocationCode{}, false
	}
	for _, grammar := range locationGrammars {
		m := grammar.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		level, err := strconv.Atoi(m[2])
		if err != nil {
			return LocationCode{}, false
		}
		position, err := strconv.Atoi(m[3])
		if err != nil {
			return LocationCode{}, false
		}
		code := LocationCode{Row: m[1], Level: level, Position: position}
		if code.Validate() != nil {
			return LocationCode{}, false
		}
		return code, true
	}
	return LocationCode{}, false
}

// asciiUpper upper-cases s, refusing any non-ASCII byte so letters such as
// U+0131 cannot fold into a valid row.
func asciiUpper(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return "", false
		}
	}
	return strings.ToUpper(s), true
}

func IsValidLocation(input string) bool {
	_, ok := ParseLocation(input)
	return ok
}

// NormalizeLocation returns the canonical form of input, or input unchanged
// when it cannot be parsed.
func NormalizeLocation(input string) string {
	return CanonicalizeLocation(input).Value
}

// DisplayLocation is NormalizeLocation for label rendering.
func DisplayLocation(input string) string {
	return NormalizeLocation(input)
}

// NormalizeLocationStrict returns ErrUnrecognizedLocation instead of passing
// invalid input through.
func NormalizeLocationStrict(input string) (string, error) {
	res := CanonicalizeLocation(input)
	if err := res.Err(); err != nil {
		return "", err
	}
	return res.Value, nil
}

type LocationStatus string

const (
	LocationCanonical  LocationStatus = "canonical"
	LocationNormalized LocationStatus = "normalized"
	LocationInvalid    LocationStatus = "invalid"
)

// LocationResult separates the three outcomes NormalizeLocation folds into a
// single string.
type LocationResult struct {
	Input  string
	Value  string
	Code   LocationCode
	Status LocationStatus
}

func CanonicalizeLocation(input string) LocationResult {
	code, ok := ParseLocation(input)
	if !ok {
		return LocationResult{Input: input, Value: input, Status: LocationInvalid}
	}
	res := LocationResult{Input: input, Value: code.String(), Code: code, Status: LocationNormalized}
	if res.Value == input {
		res.Status = LocationCanonical
	}
	return res
}

func (r LocationResult) Valid() bool {
	return r.Status != LocationInvalid
}

func (r LocationResult) Changed() bool {
	return r.Status == LocationNormalized
}

func (r LocationResult) Err() error {
	if r.Status == LocationInvalid {
		return fmt.Errorf("%w: %q", ErrUnrecognizedLocation, r.Input)
	}
	return nil
}

// AllLocationCodes enumerates every valid slot ordered by row, level, position.
func AllLocationCodes() []LocationCode {
	codes := make([]LocationCode, 0, (MaxRow-MinRow+1)*MaxLevel*MaxPosition)
	for row := byte(MinRow); row <= MaxRow; row++ {
		for level := MinLevel; level <= MaxLevel; level++ {
			for position := MinPosition; position <= MaxPosition; position++ {
				codes = append(codes, LocationCode{Row: string(row), Level: level, Position: position})
			}
		}
	}
	return codes
}

package pinentry

import "strconv"

// Candidate is one entry of the selectable row: a digit 0-9 or Delete.
type Candidate int8

// Delete removes the last entered digit.
const Delete Candidate = -1

func Digit(d uint8) Candidate { return Candidate(d) }

func (c Candidate) IsDigit() bool { return c >= 0 && c <= 9 }

func (c Candidate) String() string {
	if c == Delete {
		return "x"
	}
	return strconv.Itoa(int(c))
}

// Variant selects the candidate row.
type Variant uint8

const (
	DigitsOnly Variant = iota
	DigitsPlusDelete
)

func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "digits":
		return DigitsOnly, true
	case "digits+delete", "delete":
		return DigitsPlusDelete, true
	default:
		return DigitsOnly, false
	}
}

func (v Variant) String() string {
	if v == DigitsPlusDelete {
		return "digits+delete"
	}
	return "digits"
}

// Candidates returns the row in display order.
func (v Variant) Candidates() []Candidate {
	out := make([]Candidate, 0, 11)
	for d := uint8(0); d <= 9; d++ {
		out = append(out, Digit(d))
	}
	if v == DigitsPlusDelete {
		out = append(out, Delete)
	}
	return out
}

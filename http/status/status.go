package status

import (
	"errors"
	"strconv"
)

var (
	ErrNotNumeric = errors.New("status code is not a number")
	ErrOutOfRange = errors.New("status code is out of range")
)

// Status is a numeric code together with the reason phrase it was sent with. The phrase is
// stored as-is and may differ from Text(Code).
type Status struct {
	Code   Code
	Reason string
}

// FromCodeAndReason builds Status out of the raw code token and the reason phrase. The code
// must consist of exactly three digits and lay in the range [100, 599].
func FromCodeAndReason(code, reason string) (Status, error) {
	if len(code) != 3 {
		if len(code) == 0 {
			return Status{}, ErrNotNumeric
		}

		for i := 0; i < len(code); i++ {
			if code[i] < '0' || code[i] > '9' {
				return Status{}, ErrNotNumeric
			}
		}

		return Status{}, ErrOutOfRange
	}

	var c Code
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return Status{}, ErrNotNumeric
		}

		c = c*10 + Code(code[i]-'0')
	}

	if c < minCode || c > maxCode {
		return Status{}, ErrOutOfRange
	}

	return Status{Code: c, Reason: reason}, nil
}

func (s Status) String() string {
	return strconv.Itoa(int(s.Code)) + " " + s.Reason
}

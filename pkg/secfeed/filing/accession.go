package filing

import (
	"fmt"
	"strconv"
	"strings"
)

// AccessionDigits is the fixed width of a canonical accession number:
// 10-digit filer code, 2-digit year, 6-digit sequence.
const AccessionDigits = 18

// Accession is an accession number in integer form. Leading zeros of the
// canonical string are lost; Padded and String restore them.
type Accession uint64

// ParseAccession accepts the dashed ("0001140361-18-030802") or undashed
// form. More than AccessionDigits digits is an error.
func ParseAccession(s string) (Accession, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if digits == "" || len(digits) > AccessionDigits {
		return 0, fmt.Errorf("accession %q: want 1-%d digits", s, AccessionDigits)
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("accession %q: %w", s, err)
	}
	return Accession(v), nil
}

// Padded returns the 18-digit zero-padded form without dashes.
func (a Accession) Padded() string {
	return fmt.Sprintf("%0*d", AccessionDigits, uint64(a))
}

// String returns the canonical dashed form, e.g. 0001140361-18-030802.
func (a Accession) String() string {
	p := a.Padded()
	return p[:10] + "-" + p[10:12] + "-" + p[12:]
}

package filing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
)

// Type is a recognised EDGAR form type.
type Type int

const (
	SecS1 Type = iota + 1
	SecS1A
	SecS3
	SecS3A
	SecS4
	SecS8
	Sec3
	Sec3A
	Sec4
	Sec4A
	Sec5
	Sec5A
	SecD
	SecDA
	SecFWP
	Sec424B2
	Sec424B3
	Sec424B5
	Sec497
	Sec497K
	Sec1012G
	Sec1012GA
	Sec485APOS
	Sec485BPOS
	SecN2
	Sec10K
	Sec10KA
	Sec10Q
	Sec10QA
	Sec8K
	Sec8KA
	Sec6K
	Sec13FHR
	SecSC13D
	SecSC13DA
	SecSC13G
	SecSC13GA
	SecDEF14A
)

// vocabulary is the single source of truth for form codes. Codes are the
// literal strings the feed puts before the first " - " of an entry title.
var vocabulary = []struct {
	typ  Type
	code string
	name string
}{
	{SecS1, "S-1", "SecS1"},
	{SecS1A, "S-1/A", "SecS1A"},
	{SecS3, "S-3", "SecS3"},
	{SecS3A, "S-3/A", "SecS3A"},
	{SecS4, "S-4", "SecS4"},
	{SecS8, "S-8", "SecS8"},
	{Sec3, "3", "Sec3"},
	{Sec3A, "3/A", "Sec3A"},
	{Sec4, "4", "Sec4"},
	{Sec4A, "4/A", "Sec4A"},
	{Sec5, "5", "Sec5"},
	{Sec5A, "5/A", "Sec5A"},
	{SecD, "D", "SecD"},
	{SecDA, "D/A", "SecDA"},
	{SecFWP, "FWP", "SecFWP"},
	{Sec424B2, "424B2", "Sec424B2"},
	{Sec424B3, "424B3", "Sec424B3"},
	{Sec424B5, "424B5", "Sec424B5"},
	{Sec497, "497", "Sec497"},
	{Sec497K, "497K", "Sec497K"},
	{Sec1012G, "10-12G", "Sec1012G"},
	{Sec1012GA, "10-12G/A", "Sec1012GA"},
	{Sec485APOS, "485APOS", "Sec485APOS"},
	{Sec485BPOS, "485BPOS", "Sec485BPOS"},
	{SecN2, "N-2", "SecN2"},
	{Sec10K, "10-K", "Sec10K"},
	{Sec10KA, "10-K/A", "Sec10KA"},
	{Sec10Q, "10-Q", "Sec10Q"},
	{Sec10QA, "10-Q/A", "Sec10QA"},
	{Sec8K, "8-K", "Sec8K"},
	{Sec8KA, "8-K/A", "Sec8KA"},
	{Sec6K, "6-K", "Sec6K"},
	{Sec13FHR, "13F-HR", "Sec13FHR"},
	{SecSC13D, "SC 13D", "SecSC13D"},
	{SecSC13DA, "SC 13D/A", "SecSC13DA"},
	{SecSC13G, "SC 13G", "SecSC13G"},
	{SecSC13GA, "SC 13G/A", "SecSC13GA"},
	{SecDEF14A, "DEF 14A", "SecDEF14A"},
}

var (
	byCode = make(map[string]Type, len(vocabulary))
	codes  = make(map[Type]string, len(vocabulary))
	names  = make(map[Type]string, len(vocabulary))
)

func init() {
	for _, v := range vocabulary {
		if _, dup := byCode[v.code]; dup {
			panic("filing: duplicate form code " + v.code)
		}
		byCode[v.code] = v.typ
		codes[v.typ] = v.code
		names[v.typ] = v.name
	}
}

// ClassificationError is returned for a form code outside the vocabulary.
type ClassificationError struct {
	Token string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%v: %q", internalerr.ErrUnknownFilingType, e.Token)
}

func (e *ClassificationError) Unwrap() error { return internalerr.ErrUnknownFilingType }

// Classify maps a form code to its Type. Matching is exact: "S-1/A" and
// "S-1" are different types and "s-1" is neither.
func Classify(token string) (Type, error) {
	if t, ok := byCode[token]; ok {
		return t, nil
	}
	return 0, &ClassificationError{Token: token}
}

// All returns every recognised type in vocabulary order.
func All() []Type {
	out := make([]Type, len(vocabulary))
	for i, v := range vocabulary {
		out[i] = v.typ
	}
	return out
}

// Valid reports whether t is a member of the vocabulary.
func (t Type) Valid() bool {
	_, ok := codes[t]
	return ok
}

// Code returns the EDGAR form code, e.g. "4/A".
func (t Type) Code() string {
	if c, ok := codes[t]; ok {
		return c
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalText encodes the form code, so config files and JSON carry codes.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal %v: %w", t, internalerr.ErrUnknownFilingType)
	}
	return []byte(t.Code()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	typ, err := Classify(string(b))
	if err != nil {
		return err
	}
	*t = typ
	return nil
}

// Set is an ignore set of form types.
type Set map[Type]struct{}

// NewSet builds a Set from the given types.
func NewSet(types ...Type) Set {
	s := make(Set, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// ParseSet classifies every code. Blank entries are skipped; any unknown
// code fails the whole set.
func ParseSet(list []string) (Set, error) {
	s := make(Set, len(list))
	for _, raw := range list {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		t, err := Classify(code)
		if err != nil {
			return nil, err
		}
		s[t] = struct{}{}
	}
	return s, nil
}

// Has is safe on a nil Set.
func (s Set) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

// Codes returns the form codes in the set, sorted.
func (s Set) Codes() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t.Code())
	}
	sort.Strings(out)
	return out
}

package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
)

// EntryMarker is matched as a substring of element local names, so namespaced
// or prefixed variants of <entry> open and close an entry too.
const EntryMarker = "entry"

// Tokenize streams an Atom/RSS document and returns the text fragments found
// inside entry elements, in document order. Adjacent character data (text and
// CDATA) is joined into one fragment; whitespace-only text is dropped.
func Tokenize(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		fragments []string
		inEntry   bool
		current   strings.Builder
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		current.Reset()
		if strings.TrimSpace(text) != "" {
			fragments = append(fragments, text)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrMalformedFeed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			flush()
			if strings.Contains(t.Name.Local, EntryMarker) {
				inEntry = true
			}
		case xml.EndElement:
			flush()
			if strings.Contains(t.Name.Local, EntryMarker) {
				inEntry = false
			}
		case xml.CharData:
			if inEntry {
				current.Write(t)
			}
		}
	}
	flush()

	return fragments, nil
}

// TokenizeString is Tokenize over an in-memory document.
func TokenizeString(doc string) ([]string, error) {
	return Tokenize(strings.NewReader(doc))
}

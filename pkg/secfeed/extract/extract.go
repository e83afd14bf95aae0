// Package extract pulls filing fields out of the loosely formatted text
// fragments of an EDGAR current-filings feed entry.
package extract

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
)

// TitleSeparator divides the form code from the filer in an entry title.
const TitleSeparator = " - "

// ArchiveBase is the root of the EDGAR filing archive.
const ArchiveBase = "https://www.sec.gov/Archives/edgar/data"

var (
	cikPattern    = regexp.MustCompile(`\((\d+)\)`)
	dashedDigits  = regexp.MustCompile(`\d+-\d+-\d+`)
	filingDateFmt = "2006-01-02"
)

// ParseTitle splits an entry title such as
// "S-1/A - Tipmefast, Inc. (0001726079) (Filer)" into the form code token,
// the company name and the CIK.
func ParseTitle(title string) (token, company string, cik uint64, err error) {
	token, rest, ok := strings.Cut(title, TitleSeparator)
	if !ok {
		return "", "", 0, internalerr.Format(internalerr.ErrTitleFormat, title, "no separator")
	}

	m := cikPattern.FindStringSubmatch(rest)
	if m == nil {
		return "", "", 0, internalerr.Format(internalerr.ErrTitleFormat, title, "no CIK")
	}
	cik, perr := strconv.ParseUint(m[1], 10, 64)
	if perr != nil {
		return "", "", 0, internalerr.Format(internalerr.ErrTitleFormat, title, perr.Error())
	}

	name := rest
	if i := strings.IndexByte(rest, '('); i >= 0 {
		name = rest[:i]
	}
	company = strings.TrimSpace(html.UnescapeString(name))

	return token, company, cik, nil
}

// ParseFilingInfo finds the filing date and accession number in the summary
// blurb, e.g. "<b>Filed:</b> 2018-06-29 <b>AccNo:</b> 0001140361-18-030802".
// Both are located by pattern, in order of appearance.
func ParseFilingInfo(blurb string) (date uint32, acc filing.Accession, err error) {
	runs := dashedDigits.FindAllString(plainText(blurb), 2)
	if len(runs) < 2 {
		return 0, 0, internalerr.Format(internalerr.ErrFilingInfoFormat, blurb,
			fmt.Sprintf("found %d dashed digit runs, want 2", len(runs)))
	}

	if _, perr := time.Parse(filingDateFmt, runs[0]); perr != nil {
		return 0, 0, internalerr.Format(internalerr.ErrFilingInfoFormat, blurb, "bad filing date "+runs[0])
	}
	d, perr := strconv.ParseUint(strings.ReplaceAll(runs[0], "-", ""), 10, 32)
	if perr != nil {
		return 0, 0, internalerr.Format(internalerr.ErrFilingInfoFormat, blurb, perr.Error())
	}

	acc, perr = filing.ParseAccession(runs[1])
	if perr != nil {
		return 0, 0, internalerr.Format(internalerr.ErrFilingInfoFormat, blurb, perr.Error())
	}

	return uint32(d), acc, nil
}

// ParseTimestamp returns the trimmed timestamp fragment.
func ParseTimestamp(raw string) (string, error) {
	ts := strings.TrimSpace(raw)
	if ts == "" {
		return "", internalerr.Format(internalerr.ErrMissingTimestamp, raw, "")
	}
	return ts, nil
}

// DetailURL builds the filing index page URL from the CIK and accession number.
func DetailURL(cik uint64, acc filing.Accession) string {
	return fmt.Sprintf("%s/%d/%s/%s-index.htm", ArchiveBase, cik, acc.Padded(), acc.String())
}

// plainText drops markup from an HTML fragment so that digits inside tags
// or attributes can't be mistaken for the date or accession number.
func plainText(fragment string) string {
	if !strings.ContainsRune(fragment, '<') {
		return html.UnescapeString(fragment)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			// Broken markup: fall back to the raw text.
			return fragment
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

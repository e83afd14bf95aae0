// Package report writes filing records as a tab-separated table.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cognicore/secfeed/pkg/secfeed/filing"
)

// Header is the first line of every report.
const Header = "Filing Type\tName\tCIK\tAccession Number\tDate\tTime\tUrl\n"

// Write emits the header followed by one line per record.
func Write(w io.Writer, recs []filing.Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header); err != nil {
		return err
	}
	for _, r := range recs {
		if _, err := bw.WriteString(Line(r)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Line formats a single record, newline-terminated.
func Line(r filing.Record) string {
	return fmt.Sprintf("%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
		r.Type.Code(), r.CompanyName, r.CIK, uint64(r.Accession), r.FilingDate, r.Timestamp, r.DetailURL)
}

// FileName is the report file name for a poll run.
func FileName(runID string) string {
	return "filings-" + runID + ".tsv"
}

// WriteFile writes the report to path via a temporary file and rename, so
// readers never see a partial report.
func WriteFile(path string, recs []filing.Record) error {
	p, err := Create(path)
	if err != nil {
		return err
	}
	return p.Commit(recs)
}

// Pending is a report whose temporary file exists but whose records are not
// written yet. Creating it first surfaces an unwritable report directory
// before any accession number is recorded.
type Pending struct {
	path string
	tmp  *os.File
}

// Create reserves a temporary file next to path.
func Create(path string) (*Pending, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".filings-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp report: %w", err)
	}
	return &Pending{path: path, tmp: tmp}, nil
}

// Path is the final report path.
func (p *Pending) Path() string {
	return p.path
}

// Commit writes recs and renames the file into place. The temporary file is
// removed on failure.
func (p *Pending) Commit(recs []filing.Record) error {
	tmpName := p.tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(p.tmp, recs); err != nil {
		p.tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := p.tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// Abort discards the temporary file.
func (p *Pending) Abort() {
	p.tmp.Close()
	os.Remove(p.tmp.Name())
}

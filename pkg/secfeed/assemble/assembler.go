package assemble

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/secfeed/pkg/secfeed/extract"
	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/internalerr"
	"github.com/cognicore/secfeed/pkg/secfeed/store"
)

// EntrySize is the number of text fragments one feed entry contributes:
// title, filing info, timestamp and the URN id.
const EntrySize = 4

// Offsets of each fragment within an entry window.
const (
	titleSlot = iota
	filingInfoSlot
	timestampSlot
	urnSlot // never parsed
)

// Assembler turns the flat fragment sequence into filing records:
// fragments → entry windows → parse/classify → ignore filter → dedup.
type Assembler struct {
	store  store.AccessionStore
	ignore filing.Set
	logger *zap.Logger
}

// New creates an Assembler. ignore may be nil; logger may be nil.
func New(st store.AccessionStore, ignore filing.Set, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		store:  st,
		ignore: ignore,
		logger: logger,
	}
}

// Stats summarises one Assemble call.
type Stats struct {
	Entries    int
	Ignored    int
	Duplicates int
	Emitted    int
}

// Assemble parses every entry window and returns the records whose accession
// numbers were not yet in the store, recording them as it goes. Output keeps
// feed order.
//
// Any parse or classification error fails the whole batch. All windows are
// parsed before the store is touched, so a rejected batch records nothing.
// A store error also fails the batch; entries recorded before it stay recorded.
func (a *Assembler) Assemble(ctx context.Context, fragments []string) ([]filing.Record, Stats, error) {
	var stats Stats

	if len(fragments)%EntrySize != 0 {
		return nil, stats, internalerr.Format(internalerr.ErrMalformedFeed,
			fmt.Sprintf("%d fragments", len(fragments)),
			fmt.Sprintf("fragment count is not a multiple of %d", EntrySize))
	}

	n := len(fragments) / EntrySize
	stats.Entries = n

	candidates := make([]filing.Record, 0, n)
	for i := 0; i < n; i++ {
		base := i * EntrySize
		rec, ignored, err := a.parseEntry(fragments[base : base+EntrySize])
		if err != nil {
			return nil, stats, fmt.Errorf("entry %d: %w", i, err)
		}
		if ignored {
			stats.Ignored++
			continue
		}
		candidates = append(candidates, rec)
	}

	out := make([]filing.Record, 0, len(candidates))
	for _, rec := range candidates {
		fresh, err := a.record(ctx, rec.Accession)
		if err != nil {
			return nil, stats, err
		}
		if !fresh {
			stats.Duplicates++
			a.logger.Debug("skipping previously seen filing",
				zap.String("accession", rec.Accession.String()),
				zap.String("form", rec.Type.Code()))
			continue
		}
		out = append(out, rec)
	}
	stats.Emitted = len(out)

	return out, stats, nil
}

// parseEntry handles one window. Classification runs before the ignore
// check; ignored entries stop there.
func (a *Assembler) parseEntry(window []string) (filing.Record, bool, error) {
	token, company, cik, err := extract.ParseTitle(window[titleSlot])
	if err != nil {
		return filing.Record{}, false, err
	}

	typ, err := filing.Classify(token)
	if err != nil {
		return filing.Record{}, false, err
	}
	if a.ignore.Has(typ) {
		return filing.Record{}, true, nil
	}

	date, acc, err := extract.ParseFilingInfo(window[filingInfoSlot])
	if err != nil {
		return filing.Record{}, false, err
	}

	ts, err := extract.ParseTimestamp(window[timestampSlot])
	if err != nil {
		return filing.Record{}, false, err
	}

	return filing.Record{
		Type:        typ,
		CompanyName: company,
		CIK:         cik,
		Accession:   acc,
		FilingDate:  date,
		Timestamp:   ts,
		DetailURL:   extract.DetailURL(cik, acc),
	}, false, nil
}

// record checks and then conditionally inserts acc. It reports false when acc
// was already present, including when a concurrent poll inserted it between
// the check and the insert.
func (a *Assembler) record(ctx context.Context, acc filing.Accession) (bool, error) {
	seen, err := a.store.Exists(ctx, acc)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	err = a.store.Insert(ctx, acc)
	if errors.Is(err, internalerr.ErrDuplicate) {
		a.logger.Warn("accession recorded concurrently", zap.String("accession", acc.String()))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

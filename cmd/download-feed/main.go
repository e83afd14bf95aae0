package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cognicore/secfeed/internal/feed"
	"github.com/cognicore/secfeed/pkg/secfeed/assemble"
	"github.com/cognicore/secfeed/pkg/secfeed/filing"
	"github.com/cognicore/secfeed/pkg/secfeed/report"
	"github.com/cognicore/secfeed/pkg/secfeed/store/memstore"
)

const defaultOutDir = "testdata/edgar"

func main() {
	var (
		url       = flag.String("url", feed.CurrentFilingsURL, "Feed URL")
		userAgent = flag.String("user-agent", os.Getenv("SECFEED_USER_AGENT"), "User-Agent sent to EDGAR (name and email)")
		outDir    = flag.String("out", defaultOutDir, "Output directory")
		parse     = flag.String("parse", "", "Print the TSV report for a saved feed file instead of downloading")
		ignore    = flag.String("ignore", "", "Comma-separated form codes to skip when parsing")
	)
	flag.Parse()

	if *parse != "" {
		ignoreSet, err := filing.ParseSet(splitCodes(*ignore))
		if err != nil {
			log.Fatal("Invalid -ignore:", err)
		}
		if err := printReport(context.Background(), *parse, ignoreSet, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *userAgent == "" {
		log.Fatal("--user-agent (or SECFEED_USER_AGENT) required: EDGAR rejects anonymous clients")
	}

	log.Printf("Downloading %s", *url)
	fetcher := feed.NewFetcher(*url, *userAgent, 30*time.Second)
	doc, err := fetcher.Fetch(context.Background())
	if err != nil {
		log.Fatal("Failed to fetch:", err)
	}

	path, err := save(*outDir, doc.Body)
	if err != nil {
		log.Fatal("Failed to save feed:", err)
	}

	fragments, err := feed.Tokenize(bytes.NewReader(doc.Body))
	if err != nil {
		log.Printf("Saved %s, but it does not tokenize: %v", path, err)
		return
	}
	log.Printf("✓ Saved %d bytes (%d entries) to %s", len(doc.Body), len(fragments)/assemble.EntrySize, path)
}

// save writes the feed as current.xml under dir.
func save(dir string, body []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "current.xml")
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// printReport runs a saved feed through a fresh in-memory store and writes
// the resulting report to w.
func printReport(ctx context.Context, path string, ignore filing.Set, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fragments, err := feed.Tokenize(f)
	if err != nil {
		return fmt.Errorf("tokenize %s: %w", path, err)
	}

	recs, stats, err := assemble.New(memstore.New(), ignore, nil).Assemble(ctx, fragments)
	if err != nil {
		return fmt.Errorf("assemble %s: %w", path, err)
	}
	log.Printf("%d entries, %d emitted, %d ignored, %d duplicates",
		stats.Entries, stats.Emitted, stats.Ignored, stats.Duplicates)

	return report.Write(w, recs)
}

func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

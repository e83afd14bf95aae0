package filing

// Record is one parsed filing announcement from the feed.
type Record struct {
	Type        Type
	CompanyName string
	CIK         uint64 // Central Index Key of the filer; shared by many filings
	Accession   Accession
	FilingDate  uint32 // YYYYMMDD
	Timestamp   string // ISO-8601 as given by the feed
	DetailURL   string
}

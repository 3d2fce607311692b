// Package entity holds bank metadata: the size bucket used for peer groups
// and the company names attached to reports.
package entity

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/GuillaumeBld/Bank-Risk-Analytics/internal/dataprocessing"
)

// SizeBucket is the size tier of a bank in a given year
type SizeBucket string

const (
	SizeLarge SizeBucket = "large"
	SizeMid   SizeBucket = "mid"
	SizeSmall SizeBucket = "small"
)

// AllBuckets lists the buckets in reporting order
var AllBuckets = []SizeBucket{SizeLarge, SizeMid, SizeSmall}

// BucketFromDummies classifies by the dummy flags: large wins over mid,
// anything else is small
func BucketFromDummies(dummyLarge, dummyMid int) SizeBucket {
	switch {
	case dummyLarge == 1:
		return SizeLarge
	case dummyMid == 1:
		return SizeMid
	default:
		return SizeSmall
	}
}

// ParseSizeBucket parses a bucket name
func ParseSizeBucket(s string) (SizeBucket, error) {
	switch SizeBucket(s) {
	case SizeLarge, SizeMid, SizeSmall:
		return SizeBucket(s), nil
	}
	return "", fmt.Errorf("unknown size bucket %q", s)
}

// Key identifies one bank-year
type Key struct {
	Ticker string
	Year   int
}

// Metadata maps bank-years to size buckets and tickers to company names
type Metadata struct {
	sizes     map[Key]SizeBucket
	companies map[string]string
	missing   int
}

// NewMetadata creates an empty metadata table
func NewMetadata() *Metadata {
	return &Metadata{
		sizes:     make(map[Key]SizeBucket),
		companies: make(map[string]string),
	}
}

// SetSize records the bucket of a bank-year
func (m *Metadata) SetSize(ticker string, year int, bucket SizeBucket) {
	m.sizes[Key{Ticker: ticker, Year: year}] = bucket
}

// SetCompany records the company name of a ticker
func (m *Metadata) SetCompany(ticker, company string) {
	if company != "" {
		m.companies[ticker] = company
	}
}

// Size returns the bucket of a bank-year and whether it was classified
func (m *Metadata) Size(ticker string, year int) (SizeBucket, bool) {
	if m == nil {
		return SizeSmall, false
	}
	b, ok := m.sizes[Key{Ticker: ticker, Year: year}]
	if !ok {
		return SizeSmall, false
	}
	return b, true
}

// Company returns the company name of a ticker, or ""
func (m *Metadata) Company(ticker string) string {
	if m == nil {
		return ""
	}
	return m.companies[ticker]
}

// Len returns the number of classified bank-years
func (m *Metadata) Len() int {
	return len(m.sizes)
}

// Tickers returns the classified tickers in sorted order
func (m *Metadata) Tickers() []string {
	seen := make(map[string]bool)
	for k := range m.sizes {
		seen[k.Ticker] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Loader reads metadata tables
type Loader struct {
	normalize func(string) string
	logger    *slog.Logger
}

// NewLoader creates a loader that passes raw instrument names through
// normalize (typically the ticker standardizer) before keying rows
func NewLoader(normalize func(string) string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	return &Loader{normalize: normalize, logger: logger}
}

// LoadSizes reads a table with instrument (or ticker), year, dummylarge and
// dummymid columns into m. Rows that cannot be parsed are skipped and logged.
func (l *Loader) LoadSizes(path string, m *Metadata) error {
	tbl, err := dataprocessing.ReadTable(path, "year", "dummylarge", "dummymid")
	if err != nil {
		return err
	}
	idCol, ok := tbl.FirstOf("instrument", "ticker", "ticker_base")
	if !ok {
		return fmt.Errorf("%s: missing instrument or ticker column", path)
	}

	skipped := 0
	for i, row := range tbl.Rows {
		ticker := l.normalize(tbl.Value(row, idCol))
		year, okYear := dataprocessing.ParseInt(tbl.Value(row, "year"))
		if ticker == "" || !okYear {
			skipped++
			l.logger.Warn("Skipping metadata row", "source", path, "line", tbl.Line(i))
			continue
		}
		large, _ := dataprocessing.ParseInt(tbl.Value(row, "dummylarge"))
		mid, _ := dataprocessing.ParseInt(tbl.Value(row, "dummymid"))
		m.SetSize(ticker, year, BucketFromDummies(large, mid))
		if tbl.Has("company") {
			m.SetCompany(ticker, tbl.Value(row, "company"))
		}
	}

	l.logger.Info("Loaded size classification",
		"source", path,
		"rows", len(tbl.Rows),
		"skipped", skipped,
		"bank_years", m.Len())
	return nil
}

// LoadCompanies reads a bank list (ticker and company columns) into m
func (l *Loader) LoadCompanies(path string, m *Metadata) error {
	tbl, err := dataprocessing.ReadTable(path, "company")
	if err != nil {
		return err
	}
	idCol, ok := tbl.FirstOf("ticker", "ticker_base", "instrument")
	if !ok {
		return fmt.Errorf("%s: missing ticker column", path)
	}
	for _, row := range tbl.Rows {
		if ticker := l.normalize(tbl.Value(row, idCol)); ticker != "" {
			m.SetCompany(ticker, tbl.Value(row, "company"))
		}
	}
	return nil
}

package config

// Date formats used across the pipeline.
const (
	// CSVDateFormat is the on-disk date format of raw, binary and
	// aggregate CSV files (month/day without leading zeros, matching
	// the historical dataset).
	CSVDateFormat = "1/2/2006"

	// ISODateFormat is used in manifests, logs and API responses.
	ISODateFormat = "2006-01-02"
)

// File layout conventions.
const (
	// BinarySuffix is appended to a series file stem to name its
	// one-hot encoded counterpart.
	BinarySuffix = "_binary"

	// AggregateSuffix is appended to a cohort name to form its
	// aggregate file name.
	AggregateSuffix = "_aggregate"

	// ResultsFileName holds the reference source digits, one draw per
	// line, oldest first.
	ResultsFileName = "results.txt"

	// SourceLookupFileName maps series file stems to their scrape URLs.
	SourceLookupFileName = "source_lookup.csv"
)

// DefaultCohortManifests are the cohort manifest files processed by a
// full pipeline run, in order.
var DefaultCohortManifests = []string{"eve_sources.json", "mid_sources.json"}

// Package aggregate builds cohort feature tables: for every date in a
// reference source's index it sums the one-hot rows of all cohort
// member sources, carrying the reference source's own digits through
// as row labels. The reduction is an exact integer sum, commutative
// and associative in member order; a member without a record for a
// date contributes zero. Aggregate tables are recomputed whole on
// every run, never patched incrementally.
//
// The package also holds the integrity validator that inspects a
// produced table against its cohort configuration.
package aggregate

// Package series holds the per-source draw history: an in-memory
// date-keyed collection of draw records plus its CSV persistence. A
// series is created on first observation of a source, extended only by
// the merger, and never deleted. Storage order is irrelevant;
// consumers sort on demand.
package series

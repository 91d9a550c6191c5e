// Package pipeline orchestrates the full update run: scrape new draw
// results, merge them into the per-source series, regenerate one-hot
// encodings, rebuild cohort aggregates and derived exports, and
// validate the outputs. Each step is also callable on its own so the
// CLIs can run partial pipelines.
//
// Per-source failures are isolated: one broken source or cohort marks
// its step degraded and the run continues with the rest.
package pipeline

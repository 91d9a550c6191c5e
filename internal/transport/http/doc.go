// Package http exposes the pipeline's data over a read-only REST API:
// source summaries, per-source draw tails, cohort aggregate tables and
// validation reports, plus health and Prometheus metrics endpoints.
// The API never mutates pipeline state; updates run through the CLIs.
package http

// Package exporter writes pipeline outputs to their on-disk formats:
// aggregate CSV tables, Excel workbooks for spreadsheet users, and the
// plain-text results file of reference draw digits. All writers rewrite
// their target whole; exported artifacts are derived data and never
// patched in place.
package exporter

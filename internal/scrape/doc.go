// Package scrape fetches published draw results from their source
// pages with a headless browser. One page can carry results for
// several series (midday and evening slots share a URL), so fetched
// pages are cached per URL for the duration of a run and filtered per
// series by time-of-day class and slot.
package scrape

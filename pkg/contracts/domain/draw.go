package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DigitCount is the number of drawn positions per record.
const DigitCount = 4

// Digits holds the four drawn digits in draw order.
type Digits [DigitCount]int

// Valid reports whether every digit lies in [0,9].
func (d Digits) Valid() bool {
	for _, v := range d {
		if v < 0 || v > 9 {
			return false
		}
	}
	return true
}

// String returns the digits concatenated, e.g. "7631".
func (d Digits) String() string {
	var b strings.Builder
	for _, v := range d {
		fmt.Fprintf(&b, "%d", v)
	}
	return b.String()
}

// DrawRecord is a single observed draw outcome for one source.
type DrawRecord struct {
	Date   time.Time `json:"date"`
	Digits Digits    `json:"digits"`
}

// Validate checks the record invariants: a non-zero date and all
// digits in [0,9].
func (r DrawRecord) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("draw record has zero date")
	}
	if !r.Digits.Valid() {
		return fmt.Errorf("draw record %s has digit outside [0,9]: %v",
			r.Date.Format("2006-01-02"), r.Digits)
	}
	return nil
}

// Equal reports whether two records describe the same draw outcome.
func (r DrawRecord) Equal(other DrawRecord) bool {
	return r.Date.Equal(other.Date) && r.Digits == other.Digits
}

// NormalizeDate strips the time-of-day and timezone from a draw date so
// records scraped in different timezones key identically.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SlotClass identifies the time-of-day class of a draw series.
type SlotClass string

const (
	// SlotMid marks midday draw series.
	SlotMid SlotClass = "TODmid"
	// SlotEve marks evening draw series.
	SlotEve SlotClass = "TODeve"
	// SlotNone marks single-draw sources with no time-of-day split.
	SlotNone SlotClass = ""
)

// SourceID identifies one draw series: a region plus an optional
// time-of-day slot. Name is the canonical file stem used for all
// on-disk artifacts of the series.
type SourceID struct {
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	Slot      SlotClass `json:"slot,omitempty"`
	TimeOfDay string    `json:"time_of_day,omitempty"`
}

var (
	slotMidRe = regexp.MustCompile(`_TODmid_([^_]+)_dat`)
	slotEveRe = regexp.MustCompile(`_TODeve_([^_]+)_dat`)
)

// ParseSourceName derives a SourceID from a series file stem, e.g.
// "DC-4_TODeve_750pm_dat" or "CA_Daily_4_dat". Single-draw sources
// carry no slot marker.
func ParseSourceName(name string) (SourceID, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".csv")
	if name == "" {
		return SourceID{}, fmt.Errorf("empty source name")
	}

	id := SourceID{Name: name}

	if m := slotMidRe.FindStringSubmatch(name); m != nil {
		id.Slot = SlotMid
		id.TimeOfDay = strings.ToLower(m[1])
	} else if m := slotEveRe.FindStringSubmatch(name); m != nil {
		id.Slot = SlotEve
		id.TimeOfDay = strings.ToLower(m[1])
	}

	// The region is everything up to the draw-size marker. Regions may
	// themselves contain underscores (tri-state files like ME_NH_VT).
	switch {
	case strings.Contains(name, "-4_"):
		id.Region = name[:strings.Index(name, "-4_")]
	case strings.Contains(name, "_Daily_4"):
		id.Region = name[:strings.Index(name, "_Daily_4")]
	default:
		id.Region = strings.SplitN(name, "_", 2)[0]
	}

	if id.Region == "" {
		return SourceID{}, fmt.Errorf("cannot derive region from source name %q", name)
	}
	return id, nil
}

package scrape

import (
	"strings"

	"pick4cli/pkg/contracts/domain"
)

// timeSlotVariants maps a series' slot marker to the time texts the
// source pages are known to publish for it. Page wording drifts, so
// each slot carries every spelling observed in the historical data.
var timeSlotVariants = map[string][]string{
	"1pm":     {"1pm", "1:00", "100pm", "1 pm"},
	"4pm":     {"4pm", "4:00", "400pm", "4 pm"},
	"7pm":     {"7pm", "7:00", "700pm", "7 pm"},
	"10pm":    {"10pm", "10:00", "1000pm", "10 pm"},
	"150pm":   {"1:50", "150pm", "150", "1:50pm"},
	"750pm":   {"7:50", "750pm", "750", "7:50pm"},
	"morning": {"morning", "morn"},
	"midday":  {"midday", "mid-day", "noon"},
	"day":     {"day", "daytime"},
	"evening": {"evening", "eve"},
	"night":   {"night", "nite"},
	"daytime": {"daytime", "day"},
}

// MatchTimeSlot reports whether a scraped time text satisfies a
// series' slot marker. An empty target matches anything; a target
// without a time text never matches.
func MatchTimeSlot(timeText, targetSlot string) bool {
	if targetSlot == "" {
		return true
	}
	if timeText == "" {
		return false
	}

	timeText = strings.ToLower(timeText)
	targetSlot = strings.ToLower(targetSlot)

	if strings.Contains(timeText, targetSlot) || strings.Contains(targetSlot, timeText) {
		return true
	}

	for _, variant := range timeSlotVariants[targetSlot] {
		if strings.Contains(timeText, variant) {
			return true
		}
	}
	return false
}

// FilterForSource narrows a page's results to one series. Single-draw
// sources take every result on the page; slotted sources require the
// matching time-of-day class and, when the series names one, a
// matching time slot.
func FilterForSource(results []PageResult, id domain.SourceID) []domain.DrawRecord {
	var out []domain.DrawRecord
	for _, r := range results {
		if id.Slot != domain.SlotNone {
			if r.Slot != id.Slot {
				continue
			}
			if id.TimeOfDay != "" && !MatchTimeSlot(r.TimeText, id.TimeOfDay) {
				continue
			}
		}
		out = append(out, domain.DrawRecord{Date: r.Date, Digits: r.Digits})
	}
	return out
}

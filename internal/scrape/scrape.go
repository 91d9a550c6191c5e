package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"pick4cli/internal/config"
	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

// PageResult is one draw result as published on a source page, before
// it is assigned to a series.
type PageResult struct {
	Date     time.Time
	Slot     domain.SlotClass
	TimeText string
	Digits   domain.Digits
}

// Scraper fetches draw pages with a headless browser. It is not safe
// for concurrent use; scraping is deliberately sequential to keep
// request pacing predictable.
type Scraper struct {
	cfg     config.ScrapeConfig
	limiter *rate.Limiter
	cache   map[string][]PageResult
	logger  *slog.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// New creates a scraper with its own browser allocator. Close must be
// called to release the browser.
func New(cfg config.ScrapeConfig, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Scraper{
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(cfg.PagesPerMin/60.0), 1),
		cache:       make(map[string][]PageResult),
		logger:      logger,
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}
}

// Close releases the browser allocator.
func (s *Scraper) Close() {
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// pageRow is the shape produced by the in-page extractor.
type pageRow struct {
	Date   string `json:"date"`
	Tod    string `json:"tod"`
	Time   string `json:"time"`
	Digits []int  `json:"digits"`
}

// extractJS walks the page for draw blocks. Slotted pages publish each
// draw inside a drawWrap div carrying a time-of-day icon; single-draw
// pages publish bare result lists keyed by their time elements, so the
// extractor falls back to those when no drawWrap exists.
const extractJS = `(() => {
	const main = document.querySelector('main') || document.body;
	const out = [];
	const dateFor = (el) => {
		for (let p = el.parentElement; p; p = p.parentElement) {
			const t = p.querySelector('time[datetime]');
			if (t) {
				const d = (t.getAttribute('datetime') || '').split('T')[0];
				if (d) return d;
			}
		}
		return '';
	};
	const digitsFrom = (ul) => {
		const lis = Array.from(ul.querySelectorAll('li')).slice(0, 4);
		if (lis.length < 4) return null;
		const nums = lis.map(li => ((li.innerText || '').match(/\d+/g) || []).join(''));
		if (nums.some(n => n === '')) return null;
		return nums.map(n => parseInt(n, 10));
	};
	const wraps = Array.from(main.querySelectorAll('div.drawWrap'));
	if (wraps.length > 0) {
		for (const wrap of wraps) {
			const date = dateFor(wrap);
			if (!date) continue;
			let tod = '', timeText = '';
			const todDiv = wrap.querySelector('div.TOD');
			if (todDiv) {
				const icon = todDiv.querySelector('i');
				if (icon) {
					for (const cls of icon.classList) {
						if (cls === 'TODmid' || cls === 'TODeve') tod = cls;
					}
				}
				const br = todDiv.querySelector('br');
				if (br && br.nextSibling) {
					timeText = (br.nextSibling.textContent || '').trim().toLowerCase();
				} else {
					timeText = (todDiv.innerText || '').toLowerCase().replace(/[^a-z0-9:]/g, '');
				}
			}
			const ul = wrap.querySelector('ul.resultsnums');
			if (!ul) continue;
			const digits = digitsFrom(ul);
			if (digits) out.push({date, tod, time: timeText, digits});
		}
	} else {
		for (const t of Array.from(main.querySelectorAll('time[datetime]'))) {
			const date = (t.getAttribute('datetime') || '').split('T')[0];
			if (!date) continue;
			let p = t.parentElement;
			for (let i = 0; p && i < 10; i++, p = p.parentElement) {
				const ul = p.querySelector('ul.resultsnums');
				if (ul) {
					const digits = digitsFrom(ul);
					if (digits) out.push({date, tod: '', time: '', digits});
					break;
				}
			}
		}
	}
	return out;
})()`

// FetchPage returns every draw result published on a URL, deduplicated
// and sorted by date. Results are cached for the scraper's lifetime so
// series sharing a page cost one fetch.
func (s *Scraper) FetchPage(ctx context.Context, url string) ([]PageResult, error) {
	if cached, ok := s.cache[url]; ok {
		s.logger.DebugContext(ctx, "using cached page results",
			slog.String("url", url),
			slog.Int("results", len(cached)))
		return cached, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.NewNetworkError("rate limit wait interrupted", err)
	}

	browserCtx, cancel := chromedp.NewContext(s.allocCtx)
	defer cancel()

	runCtx, cancelTimeout := context.WithTimeout(browserCtx, s.cfg.PageTimeout)
	defer cancelTimeout()

	s.logger.InfoContext(ctx, "fetching draw page", slog.String("url", url))

	var rows []pageRow
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`time`, chromedp.ByQuery),
		chromedp.Sleep(s.cfg.SettleDelay),
		chromedp.Evaluate(extractJS, &rows),
	)
	if err != nil {
		return nil, errors.NewNetworkError("failed to fetch draw page", err).
			WithContext("url", url)
	}

	results, skipped := parsePageRows(rows)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "skipped malformed page rows",
			slog.String("url", url),
			slog.Int("skipped", skipped))
	}

	s.logger.InfoContext(ctx, "fetched draw page",
		slog.String("url", url),
		slog.Int("results", len(results)))

	s.cache[url] = results
	return results, nil
}

// parsePageRows converts extractor output to PageResults, dropping
// rows that fail validation, then dedupes and sorts.
func parsePageRows(rows []pageRow) ([]PageResult, int) {
	skipped := 0
	results := make([]PageResult, 0, len(rows))
	for _, row := range rows {
		r, err := parsePageRow(row)
		if err != nil {
			skipped++
			continue
		}
		results = append(results, r)
	}

	type key struct {
		date   time.Time
		slot   domain.SlotClass
		digits domain.Digits
	}
	seen := make(map[key]bool, len(results))
	unique := results[:0]
	for _, r := range results {
		k := key{r.Date, r.Slot, r.Digits}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if !unique[i].Date.Equal(unique[j].Date) {
			return unique[i].Date.Before(unique[j].Date)
		}
		return unique[i].Slot < unique[j].Slot
	})
	return unique, skipped
}

func parsePageRow(row pageRow) (PageResult, error) {
	date, err := time.Parse(config.ISODateFormat, row.Date)
	if err != nil {
		return PageResult{}, fmt.Errorf("bad page date %q: %w", row.Date, err)
	}
	if len(row.Digits) != domain.DigitCount {
		return PageResult{}, fmt.Errorf("page row on %s has %d digits", row.Date, len(row.Digits))
	}

	r := PageResult{
		Date:     domain.NormalizeDate(date),
		TimeText: row.Time,
	}
	switch row.Tod {
	case string(domain.SlotMid):
		r.Slot = domain.SlotMid
	case string(domain.SlotEve):
		r.Slot = domain.SlotEve
	default:
		r.Slot = domain.SlotNone
	}
	copy(r.Digits[:], row.Digits)
	if !r.Digits.Valid() {
		return PageResult{}, fmt.Errorf("page row on %s has digit outside [0,9]", row.Date)
	}
	return r, nil
}

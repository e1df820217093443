package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/realitycheck/internal/logging"
	"github.com/ppiankov/realitycheck/internal/metrics"
	"github.com/ppiankov/realitycheck/internal/model"
	"github.com/ppiankov/realitycheck/internal/util"
	"github.com/ppiankov/realitycheck/internal/worker"
)

const sourcePacingKey = "sources"

// Fetcher pulls the most recent entries from each configured feed
type Fetcher struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	cleaner    *Cleaner
	pacing     *worker.Limiter
	robots     *util.RobotsChecker
	cfg        model.FetchConfig
	timeout    time.Duration
	log        *logging.Logger
	now        func() time.Time
}

// NewFetcher creates a Fetcher. The per-feed timeout is applied through the
// request context so a slow feed never holds the run past cfg.Timeout.
func NewFetcher(cfg model.FetchConfig, log *logging.Logger) *Fetcher {
	if log == nil {
		log = logging.NewNop()
	}

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		parser:     gofeed.NewParser(),
		cleaner:    NewCleaner(),
		pacing:     worker.NewIntervalLimiter(cfg.Delay()),
		cfg:        cfg,
		timeout:    cfg.FetchTimeout(),
		log:        log.Component("fetcher"),
		now:        time.Now,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(&http.Client{Timeout: cfg.FetchTimeout()}, cfg.UserAgent)
	}
	return f
}

// FetchAll fetches every source in order. A failing source contributes zero
// articles and never aborts the others.
func (f *Fetcher) FetchAll(ctx context.Context, sources []model.Source) []model.RawArticle {
	var all []model.RawArticle

	for _, src := range sources {
		if err := f.pacing.Wait(ctx, sourcePacingKey); err != nil {
			f.log.Warn("fetch cancelled", "error", err)
			break
		}

		articles, err := f.FetchSource(ctx, src)
		if err != nil {
			f.log.Warn("source failed", "source", src.Name, "url", src.URL, "error", err)
			metrics.RecordFeed(src.Name, "error", 0)
			continue
		}

		f.log.Debug("source fetched", "source", src.Name, "articles", len(articles))
		metrics.RecordFeed(src.Name, "ok", len(articles))
		all = append(all, articles...)
	}

	return all
}

// FetchSource retrieves one feed and converts its newest entries to articles
func (f *Fetcher) FetchSource(ctx context.Context, src model.Source) ([]model.RawArticle, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("disallowed by robots.txt")
		}
		if delay > 0 {
			host := worker.HostKey(src.URL)
			f.pacing.SetInterval(host, delay)
			if err := f.pacing.Wait(ctx, host); err != nil {
				return nil, err
			}
		}
	}

	feed, err := f.fetchFeed(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return f.articles(feed, src), nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body := io.Reader(resp.Body)
	if f.cfg.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxBytes)
	}

	feed, err := f.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// articles picks up to ItemsPerFeed usable entries, newest first
func (f *Fetcher) articles(feed *gofeed.Feed, src model.Source) []model.RawArticle {
	items := newestFirst(feed.Items)
	channelTitle := f.cleaner.Text(feed.Title)
	limit := f.cfg.ItemsPerFeed
	if limit <= 0 {
		limit = model.DefaultConfig().Fetch.ItemsPerFeed
	}

	var out []model.RawArticle
	for _, item := range items {
		if len(out) >= limit {
			break
		}

		title := f.cleaner.Text(item.Title)
		if title == "" || strings.EqualFold(title, channelTitle) {
			continue
		}
		if len([]rune(title)) < f.cfg.MinTitleLength {
			continue
		}

		body := f.cleaner.Text(firstNonEmpty(item.Description, item.Content))
		body = Truncate(body, f.cfg.MaxBodyLength)
		if body == "" {
			body = title
		}

		out = append(out, model.RawArticle{
			Title:         title,
			Body:          body,
			Source:        src.Name,
			URL:           strings.TrimSpace(item.Link),
			PublishedDate: f.itemDate(item),
		})
	}
	return out
}

func (f *Fetcher) itemDate(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return f.now().UTC()
	}
}

// newestFirst sorts by date only when every entry carries one; otherwise the
// feed's own order is trusted.
func newestFirst(items []*gofeed.Item) []*gofeed.Item {
	for _, item := range items {
		if item.PublishedParsed == nil && item.UpdatedParsed == nil {
			return items
		}
	}
	sorted := make([]*gofeed.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return itemTime(sorted[i]).After(itemTime(sorted[j]))
	})
	return sorted
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	return *item.UpdatedParsed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Package crawler collects news articles and feeds them to the ingest service.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
)

// storySelector matches front-page story links (current and legacy markup).
const storySelector = ".titleline > a, a.storylink"

// Config holds crawler settings.
type Config struct {
	SourceURL     string
	MaxArticles   int
	FetchArticles bool
	Timeout       time.Duration
	UserAgent     string
	Parallelism   int
}

// Article is a collected story.
type Article struct {
	URL     string
	Title   string
	Content string
}

// Crawler scrapes story links from a news front page and optionally the linked articles.
type Crawler struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Crawler.
func New(cfg Config, logger *zap.Logger) *Crawler {
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	return &Crawler{cfg: cfg, logger: logger}
}

// Collect returns up to MaxArticles unique stories in front-page order.
// Article pages that fail to load fall back to the link title as content.
func (c *Crawler) Collect(ctx context.Context) ([]Article, error) {
	articles, err := c.frontPage(ctx)
	if err != nil {
		return nil, err
	}
	if c.cfg.FetchArticles && len(articles) > 0 {
		c.fetchBodies(ctx, articles)
	}
	for i := range articles {
		if articles[i].Content == "" {
			articles[i].Content = articles[i].Title
		}
	}
	return articles, nil
}

func (c *Crawler) collector(ctx context.Context, opts ...colly.CollectorOption) *colly.Collector {
	opts = append(opts, colly.StdlibContext(ctx))
	col := colly.NewCollector(opts...)
	col.SetRequestTimeout(c.cfg.Timeout)
	if c.cfg.UserAgent != "" {
		col.UserAgent = c.cfg.UserAgent
	}
	return col
}

func (c *Crawler) frontPage(ctx context.Context) ([]Article, error) {
	col := c.collector(ctx)

	var (
		articles []Article
		seen     = make(map[string]struct{})
		visitErr error
	)
	col.OnHTML(storySelector, func(e *colly.HTMLElement) {
		if len(articles) >= c.cfg.MaxArticles {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		title := strings.TrimSpace(e.Text)
		if link == "" || title == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		articles = append(articles, Article{URL: link, Title: title})
	})
	col.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("fetch %s (status %d): %w", r.Request.URL, r.StatusCode, err)
	})

	if err := col.Visit(c.cfg.SourceURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", c.cfg.SourceURL, err)
	}
	if visitErr != nil {
		return nil, visitErr
	}
	return articles, nil
}

const articleURLKey = "article_url"

func (c *Crawler) fetchBodies(ctx context.Context, articles []Article) {
	col := c.collector(ctx, colly.Async(true))
	if err := col.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: c.cfg.Parallelism}); err != nil {
		c.logger.Warn("crawler limit rule rejected", zap.Error(err))
	}

	var mu sync.Mutex
	bodies := make(map[string]string, len(articles))

	col.OnHTML("body", func(e *colly.HTMLElement) {
		text := paragraphs(e.DOM)
		if text == "" {
			return
		}
		// Redirects rewrite Request.URL, so key by the article link carried in the context.
		mu.Lock()
		bodies[e.Request.Ctx.Get(articleURLKey)] = text
		mu.Unlock()
	})
	col.OnError(func(r *colly.Response, err error) {
		c.logger.Debug("article fetch failed",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Error(err),
		)
	})

	for _, a := range articles {
		if u, err := url.Parse(a.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		rctx := colly.NewContext()
		rctx.Put(articleURLKey, a.URL)
		if err := col.Request(http.MethodGet, a.URL, nil, rctx, nil); err != nil {
			c.logger.Debug("article visit skipped", zap.String("url", a.URL), zap.Error(err))
		}
	}
	col.Wait()

	for i := range articles {
		if body, ok := bodies[articles[i].URL]; ok {
			articles[i].Content = body
		}
	}
}

// paragraphs joins the non-empty <p> texts of a page, capped at the document content limit.
func paragraphs(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	return truncate(strings.Join(parts, "\n\n"), domdoc.MaxContentSize)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

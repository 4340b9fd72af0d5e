package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const (
	arxivSearchURL  = "https://arxiv.org/search/"
	arxivRequestGap = 3 * time.Second
)

var (
	submittedExpr   = regexp.MustCompile(`\d{1,2} [A-Za-z]+, \d{4}`)
	firstVersionExp = regexp.MustCompile(`(?i)\bv1\s*submitted\s+(\d{1,2} [A-Za-z]+, \d{4})`)
	resultSizes     = []int{25, 50, 100, 200}
)

// ArxivScanner queries the arXiv search page for the newest papers matching any topic.
type ArxivScanner struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewArxivScanner wires an HTTP client; requests are throttled to one every three seconds.
func NewArxivScanner(client *http.Client, log *slog.Logger) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivScanner{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(arxivRequestGap), 1),
		logger:  log,
	}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan runs one search ordered by announcement date and returns the parsed results.
// Cutoff filtering is left to the caller.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if len(req.Topics) == 0 {
		return nil, fmt.Errorf("no topics provided for source %s", req.SourceName)
	}

	base := req.URL
	if base == "" {
		base = arxivSearchURL
	}

	pageURL, err := buildSearchURL(base, req.Topics, req.MaxResults)
	if err != nil {
		return nil, err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	doc, err := a.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	papers := extractPapers(doc)
	if a.logger != nil {
		a.logger.Debug("arxiv search parsed", "url", pageURL, "results", len(papers))
	}
	return papers, nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ResearchDigest/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractPapers(doc *goquery.Document) []domain.Paper {
	var papers []domain.Paper
	doc.Find("li.arxiv-result").Each(func(_ int, item *goquery.Selection) {
		paper, ok := parseResult(item)
		if ok {
			papers = append(papers, paper)
		}
	})
	return papers
}

func parseResult(item *goquery.Selection) (domain.Paper, bool) {
	absLink := item.Find("p.list-title a[href*=\"/abs/\"]").First()
	absURL, _ := absLink.Attr("href")
	id := strings.TrimSpace(absLink.Text())

	title := collapseSpaces(item.Find("p.title").First().Text())
	if title == "" {
		return domain.Paper{}, false
	}

	var authors []string
	item.Find("p.authors a").Each(func(_ int, a *goquery.Selection) {
		if name := collapseSpaces(a.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	abstract := item.Find("span.abstract-full").First().Clone()
	abstract.Find("a").Remove()
	summary := collapseSpaces(abstract.Text())
	if summary == "" {
		summary = collapseSpaces(item.Find("span.abstract-short").First().Text())
	}

	link := absURL
	item.Find("p.list-title a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(a.Text()), "pdf") {
			if href, ok := a.Attr("href"); ok {
				link = href
			}
			return false
		}
		return true
	})

	var doi string
	if href, ok := item.Find("a[href*=\"doi.org/\"]").First().Attr("href"); ok {
		if idx := strings.Index(href, "doi.org/"); idx >= 0 {
			doi = href[idx+len("doi.org/"):]
		}
	}

	publishedAt, ok := parseSubmitted(item)
	if !ok {
		return domain.Paper{}, false
	}

	return domain.Paper{
		ExternalID:  id,
		Title:       title,
		Authors:     authors,
		Abstract:    summary,
		URL:         normalizeURL(link),
		DOI:         doi,
		PublishedAt: publishedAt,
	}, true
}

func parseSubmitted(item *goquery.Selection) (time.Time, bool) {
	var published time.Time
	found := false
	item.Find("p.is-size-7").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := collapseSpaces(p.Text())
		if !strings.Contains(text, "Submitted") {
			return true
		}
		// Revised papers list the latest version first; publication is v1.
		match := submittedExpr.FindString(text)
		if groups := firstVersionExp.FindStringSubmatch(text); groups != nil {
			match = groups[1]
		}
		if match == "" {
			return true
		}
		parsed, err := time.Parse("2 January, 2006", match)
		if err != nil {
			return true
		}
		published = parsed.UTC()
		found = true
		return false
	})
	return published, found
}

// normalizeURL forces https and escapes spaces so chat clients render the link.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") {
		raw = "https://" + strings.TrimPrefix(raw, "http://")
	}
	return strings.ReplaceAll(raw, " ", "%20")
}

func buildSearchURL(base string, topics []string, maxResults int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search url %s: %w", base, err)
	}

	quoted := make([]string, 0, len(topics))
	for _, topic := range topics {
		quoted = append(quoted, `"`+strings.ReplaceAll(topic, `"`, "")+`"`)
	}

	query := parsed.Query()
	query.Set("query", strings.Join(quoted, " OR "))
	query.Set("searchtype", "all")
	query.Set("abstracts", "show")
	query.Set("order", "-announced_date_first")
	query.Set("size", strconv.Itoa(pageSize(maxResults)))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// pageSize picks the smallest page the search UI offers that holds maxResults.
func pageSize(maxResults int) int {
	if maxResults <= 0 {
		return 100
	}
	for _, size := range resultSizes {
		if maxResults <= size {
			return size
		}
	}
	return resultSizes[len(resultSizes)-1]
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

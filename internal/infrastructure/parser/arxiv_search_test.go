package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/scanner"
)

const searchPage = `
<ol class="breathe-horizontal">
  <li class="arxiv-result">
    <div class="is-marginless">
      <p class="list-title is-inline-block"><a href="https://arxiv.org/abs/2510.00001">arXiv:2510.00001</a>
        <span>&nbsp;[<a href="http://arxiv.org/pdf/2510.00001">pdf</a>, <a href="https://arxiv.org/format/2510.00001">other</a>]&nbsp;</span>
      </p>
    </div>
    <p class="title is-5 mathjax">
      Retrieval Augmented   Generation at Scale
    </p>
    <p class="authors"><span class="search-hit">Authors:</span>
      <a href="/a/alice">Alice Smith</a>, <a href="/a/bob">Bob Jones</a>
    </p>
    <p class="abstract mathjax">
      <span class="abstract-short">We study RAG&hellip;</span>
      <span class="abstract-full" style="display: none;">We study RAG in depth. <a class="is-size-7">&#9651; Less</a></span>
    </p>
    <p class="is-size-7"><span class="has-text-weight-semibold">Submitted</span> 14 October, 2026; <span>originally announced</span> October 2026.</p>
    <p class="comments is-size-7">DOI: <a href="https://doi.org/10.1000/xyz">10.1000/xyz</a></p>
  </li>
  <li class="arxiv-result">
    <p class="list-title is-inline-block"><a href="https://arxiv.org/abs/2509.00002">arXiv:2509.00002</a></p>
    <p class="title is-5 mathjax">Older Paper</p>
    <p class="authors"><a href="/a/carol">Carol</a></p>
    <p class="abstract mathjax"><span class="abstract-short">Short only.</span></p>
    <p class="is-size-7"><span>Submitted</span> 2 September, 2026; <span>originally announced</span> September 2026.</p>
  </li>
  <li class="arxiv-result">
    <p class="list-title is-inline-block"><a href="https://arxiv.org/abs/2510.00003">arXiv:2510.00003</a></p>
    <p class="title is-5 mathjax">Revised Paper</p>
    <p class="abstract mathjax"><span class="abstract-short">Second version.</span></p>
    <p class="is-size-7"><span class="has-text-weight-semibold">Submitted</span> 14 October, 2026; <span class="has-text-weight-semibold">v1</span>submitted 1 October, 2026; <span>originally announced</span> October 2026.</p>
  </li>
  <li class="arxiv-result">
    <p class="title is-5 mathjax">No date</p>
  </li>
</ol>`

func TestBuildSearchURL(t *testing.T) {
	t.Parallel()

	u, err := buildSearchURL("https://arxiv.org/search/", []string{"LLM", `R"AG`}, 60)
	if err != nil {
		t.Fatalf("buildSearchURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	q := parsed.Query()
	if q.Get("query") != `"LLM" OR "RAG"` {
		t.Fatalf("unexpected query: %s", q.Get("query"))
	}
	if q.Get("size") != "100" {
		t.Fatalf("expected size=100, got %s", q.Get("size"))
	}
	if q.Get("order") != "-announced_date_first" {
		t.Fatalf("unexpected order: %s", q.Get("order"))
	}
}

func TestPageSize(t *testing.T) {
	t.Parallel()

	cases := map[int]int{0: 100, 10: 25, 25: 25, 26: 50, 100: 100, 500: 200}
	for in, want := range cases {
		if got := pageSize(in); got != want {
			t.Fatalf("pageSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestExtractPapers(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPage))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	papers := extractPapers(doc)
	if len(papers) != 3 {
		t.Fatalf("expected 3 papers, got %d", len(papers))
	}

	first := papers[0]
	if first.ExternalID != "arXiv:2510.00001" {
		t.Fatalf("unexpected id: %s", first.ExternalID)
	}
	if first.Title != "Retrieval Augmented Generation at Scale" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if len(first.Authors) != 2 || first.Authors[1] != "Bob Jones" {
		t.Fatalf("unexpected authors: %v", first.Authors)
	}
	if first.Abstract != "We study RAG in depth." {
		t.Fatalf("unexpected abstract: %q", first.Abstract)
	}
	if first.URL != "https://arxiv.org/pdf/2510.00001" {
		t.Fatalf("unexpected url: %s", first.URL)
	}
	if first.DOI != "10.1000/xyz" {
		t.Fatalf("unexpected doi: %s", first.DOI)
	}
	want := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published date: %v", first.PublishedAt)
	}

	second := papers[1]
	if second.Abstract != "Short only." {
		t.Fatalf("unexpected fallback abstract: %q", second.Abstract)
	}
	if second.URL != "https://arxiv.org/abs/2509.00002" {
		t.Fatalf("unexpected fallback url: %s", second.URL)
	}
}

func TestExtractPapersUsesFirstVersionDate(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPage))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	revised := extractPapers(doc)[2]
	want := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	if !revised.PublishedAt.Equal(want) {
		t.Fatalf("expected v1 date %v, got %v", want, revised.PublishedAt)
	}

	cutoff := time.Date(2026, time.October, 9, 0, 0, 0, 0, time.UTC)
	if kept := FilterSince([]domain.Paper{revised}, cutoff); len(kept) != 0 {
		t.Fatalf("revised paper first published before cutoff was kept: %v", kept)
	}
}

func TestArxivScannerScan(t *testing.T) {
	t.Parallel()

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(searchPage))
	}))
	defer server.Close()

	sc := NewArxivScanner(server.Client(), nil)
	papers, err := sc.Scan(context.Background(), scanner.Request{
		Topics:     []string{"LLM", "RAG"},
		SourceName: "arxiv",
		URL:        server.URL + "/search/",
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if gotQuery != `"LLM" OR "RAG"` {
		t.Fatalf("unexpected query sent: %s", gotQuery)
	}
	if len(papers) != 3 {
		t.Fatalf("expected 3 papers, got %d", len(papers))
	}
}

func TestArxivScannerScanErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sc := NewArxivScanner(server.Client(), nil)
	if _, err := sc.Scan(context.Background(), scanner.Request{}); err == nil {
		t.Fatalf("expected error without topics")
	}
	if _, err := sc.Scan(context.Background(), scanner.Request{Topics: []string{"LLM"}, URL: server.URL}); err == nil {
		t.Fatalf("expected error on 503")
	}
}

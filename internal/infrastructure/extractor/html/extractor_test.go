package html

import (
	"context"
	"testing"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func TestExtractTitleTextAndLinks(t *testing.T) {
	page := &domain.ScrapedPage{
		URL: "https://court.example.com/cases/index.html",
		HTML: []byte(`<html><head><title> Case   Registry </title><style>.x{}</style></head>
<body>
  <nav><a href="/menu">Menu</a></nav>
  <h1>Decisions</h1>
  <p>Judgment of   the court.</p>
  <script>var tracking = 1;</script>
  <a href="2024/001.html#top">Case 1</a>
  <a href="https://court.example.com/cases/2024/001.html">Case 1 again</a>
  <a href="mailto:clerk@example.com">Clerk</a>
  <a href="#section">Jump</a>
</body></html>`),
	}

	if err := NewExtractor(0).Extract(context.Background(), page); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if page.Title != "Case Registry" {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if page.Text != "Decisions Judgment of the court. Case 1 Case 1 again Clerk Jump" {
		t.Fatalf("unexpected text %q", page.Text)
	}
	if len(page.Links) != 1 || page.Links[0] != "https://court.example.com/cases/2024/001.html" {
		t.Fatalf("unexpected links %v", page.Links)
	}
}

func TestExtractFallsBackToHeading(t *testing.T) {
	page := &domain.ScrapedPage{
		URL:  "https://example.com",
		HTML: []byte(`<body><h1>Statute 12</h1></body>`),
	}
	if err := NewExtractor(10).Extract(context.Background(), page); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if page.Title != "Statute 12" {
		t.Fatalf("unexpected title %q", page.Title)
	}
}

func TestExtractRejectsEmptyBody(t *testing.T) {
	err := NewExtractor(10).Extract(context.Background(), &domain.ScrapedPage{URL: "https://example.com"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

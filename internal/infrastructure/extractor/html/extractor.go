package html

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

// Extractor pulls the title, readable text and outbound links out of a
// fetched page.
type Extractor struct {
	maxLinks int
}

func NewExtractor(maxLinks int) *Extractor {
	if maxLinks <= 0 {
		maxLinks = 200
	}
	return &Extractor{maxLinks: maxLinks}
}

func (e *Extractor) Extract(_ context.Context, page *domain.ScrapedPage) error {
	if len(page.HTML) == 0 {
		return domain.NewError(domain.ErrInvalidInput, "extract page", "empty body for "+page.URL)
	}
	if !utf8.Valid(page.HTML) {
		return domain.NewError(domain.ErrInvalidInput, "extract page", "unsupported binary content for "+page.URL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	page.Title = collapse(doc.Find("title").First().Text())
	if page.Title == "" {
		page.Title = collapse(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()
	page.Text = collapse(doc.Find("body").Text())

	base, _ := url.Parse(page.URL)
	seen := make(map[string]struct{})
	page.Links = page.Links[:0]
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		link := resolve(base, href)
		if link == "" {
			return true
		}
		if _, ok := seen[link]; ok {
			return true
		}
		seen[link] = struct{}{}
		page.Links = append(page.Links, link)
		return len(page.Links) < e.maxLinks
	})
	return nil
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

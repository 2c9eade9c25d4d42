// Package extractor pulls structured fields out of fetched HTML.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// maxTextRunes bounds the extracted body text so a single page cannot
// bloat outcomes and downstream storage.
const maxTextRunes = 20000

// Extractor implements scraper.Extractor with goquery. It reads the
// page title, meta description, and visible text, plus per-book fields
// from catalog pages that use the product_pod layout.
type Extractor struct {
	// BookDetails toggles the catalog field extraction.
	BookDetails bool
}

// New returns an Extractor with book details enabled.
func New() *Extractor {
	return &Extractor{BookDetails: true}
}

// Extract parses the payload body. A parse failure or missing title
// returns an error alongside whatever was recovered; callers treat that
// as a degraded success, not a failure.
func (e *Extractor) Extract(payload scraper.Payload) (scraper.Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Body))
	if err != nil {
		return scraper.Extracted{}, fmt.Errorf("parse html: %w", err)
	}

	out := scraper.Extracted{
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Fields: map[string]string{},
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			out.Fields["description"] = desc
		}
	}
	out.Text = collapseWhitespace(doc.Find("body").Text())
	if runes := []rune(out.Text); len(runes) > maxTextRunes {
		out.Text = string(runes[:maxTextRunes])
	}

	if e.BookDetails {
		extractBooks(doc, out.Fields)
	}
	if len(out.Fields) == 0 {
		out.Fields = nil
	}

	if out.Title == "" {
		return out, fmt.Errorf("page has no title element")
	}
	return out, nil
}

// extractBooks reads the catalog entries on pages shaped like the
// books.toscrape.com listings: one article.product_pod per book.
func extractBooks(doc *goquery.Document, fields map[string]string) {
	pods := doc.Find("article.product_pod")
	if pods.Length() == 0 {
		return
	}
	fields["book_count"] = fmt.Sprintf("%d", pods.Length())

	pods.Each(func(_ int, pod *goquery.Selection) {
		title, ok := pod.Find("h3 a").Attr("title")
		if !ok {
			title = strings.TrimSpace(pod.Find("h3 a").Text())
		}
		if title == "" {
			return
		}
		key := "book_" + slugify(title)

		if price := strings.TrimSpace(pod.Find(".price_color").Text()); price != "" {
			fields[key+"_price"] = price
		}
		if avail := collapseWhitespace(pod.Find(".availability").Text()); avail != "" {
			fields[key+"_availability"] = avail
		}
		if rating := starRating(pod); rating != "" {
			fields[key+"_rating"] = rating
		}
	})
}

// starRating reads the word-valued rating class, e.g.
// <p class="star-rating Three">.
func starRating(pod *goquery.Selection) string {
	class, ok := pod.Find("p.star-rating").Attr("class")
	if !ok {
		return ""
	}
	for _, part := range strings.Fields(class) {
		if part != "star-rating" {
			return part
		}
	}
	return ""
}

func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package crawler

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/medialab/tfcharvest/internal/domain"
)

// Listing and detail page selectors. The listing is a Kadence-blocks
// WordPress layout; entries are li items carrying a per-report class
// token.
const (
	entrySelector      = "li.kb-query-item"
	titleSelector      = "div.kb-dynamic-html"
	summarySelector    = `div[class*="kb-dynamic-html-id-"][class*="_c9ad79-23"]`
	taxonomySelector   = "ul.wp-block-kadence-dynamiclist"
	taxonomyLinkSel    = "a.kb-dynamic-list-item-link"
	dateSelector       = `div[class*="kt-adv-heading"]`
	linkSelector       = "a.kb-button"
	nextPageSelector   = "a.next.page-numbers"
	detailContainerSel = "article"
	detailFallbackSel  = "div.entry-content, div.post-content"
	detailSummarySel   = `p[class*="kt-adv-heading"]`
	articleClassPrefix = "fact-check-reporter-"
	labelHrefFragment  = "fact-check-report-classification/"
	categoryHrefFrag   = "fact-check-report-type/"
	contentMarker      = "背景"
)

const (
	// maxListingSummaryRunes clips the short listing summary.
	maxListingSummaryRunes = 200
	// minDetailSummaryRunes is the length a detail paragraph must
	// exceed to replace the listing summary.
	minDetailSummaryRunes = 50
	// minContentBlockRunes is the length a sibling text block must
	// exceed to count as content.
	minContentBlockRunes = 10
	// minContentBlocks is the block count under which the
	// parent-container fallback kicks in (marker line included).
	minContentBlocks = 3
)

var dateRe = regexp.MustCompile(`(\d{4}-\d{1,2}-\d{1,2})`)

// Builder produces normalized report records from listing entries and
// detail pages. Each field is optional; a field that cannot be
// extracted defaults to empty and never aborts the others.
type Builder struct {
	// legacyRandomPid restores the original non-deterministic pid
	// fallback. Defeats idempotent re-runs; off unless explicitly
	// configured.
	legacyRandomPid bool
}

// NewBuilder creates a record builder.
func NewBuilder(legacyRandomPid bool) *Builder {
	return &Builder{legacyRandomPid: legacyRandomPid}
}

// ExtractTitle returns the entry title, or empty when absent.
func (b *Builder) ExtractTitle(entry *goquery.Selection) string {
	return strings.TrimSpace(entry.Find(titleSelector).First().Text())
}

// extractArticleToken returns the stable per-report id token from the
// entry's class list, or empty when the entry carries only the bare
// prefix class.
func extractArticleToken(entry *goquery.Selection) string {
	class, _ := entry.Attr("class")
	for _, cls := range strings.Fields(class) {
		if !strings.HasPrefix(cls, articleClassPrefix) {
			continue
		}
		token := strings.TrimPrefix(cls, articleClassPrefix)
		if token == "" || token == strings.TrimSuffix(articleClassPrefix, "-") {
			return ""
		}
		return token
	}
	return ""
}

// BuildFromListing extracts a report record from one listing entry.
func (b *Builder) BuildFromListing(entry *goquery.Selection, title string) *domain.Report {
	report := &domain.Report{Title: title}

	if summary := entry.Find(summarySelector).First(); summary.Length() > 0 {
		report.Summary = clipRunes(strings.TrimSpace(summary.Text()), maxListingSummaryRunes)
	}

	entry.Find(taxonomySelector).Each(func(_ int, list *goquery.Selection) {
		link := list.Find(taxonomyLinkSel).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		text := strings.TrimSpace(link.Text())
		switch {
		case strings.Contains(href, labelHrefFragment):
			report.Label = text
		case strings.Contains(href, categoryHrefFrag):
			report.Category = text
		}
	})

	if heading := entry.Find(dateSelector).First(); heading.Length() > 0 {
		report.Date = dateRe.FindString(heading.Text())
	}

	if link := entry.Find(linkSelector).First(); link.Length() > 0 {
		if href, ok := link.Attr("href"); ok {
			report.Link = href
		}
	}

	b.assignPid(report, extractArticleToken(entry))
	return report
}

// assignPid sets the pid from the stable token when one exists. The
// deterministic hash fallback is left to upload time so the title is
// final by then; the legacy random fallback assigns eagerly.
func (b *Builder) assignPid(report *domain.Report, token string) {
	datePart := strings.ReplaceAll(report.Date, "-", "")
	if token != "" {
		report.Pid = datePart + token
		return
	}
	if b.legacyRandomPid {
		report.Pid = datePart + randomSerial()
	}
}

// randomSerial draws the legacy 300-999 fallback serial.
func randomSerial() string {
	return strconv.Itoa(300 + rand.Intn(700))
}

// EnrichFromDetail refines a listing-built report with the detail
// page: full summary, missing label, and the full content body.
func (b *Builder) EnrichFromDetail(report *domain.Report, doc *goquery.Document) {
	container := doc.Find(detailContainerSel).First()
	if container.Length() == 0 {
		container = doc.Find(detailFallbackSel).First()
	}
	if container.Length() == 0 {
		return
	}

	// Figures and captions pollute the extracted text.
	container.Find("img, figure, figcaption").Remove()

	if report.Label == "" {
		container.Find(taxonomySelector).EachWithBreak(func(_ int, list *goquery.Selection) bool {
			link := list.Find(taxonomyLinkSel).First()
			if link.Length() == 0 {
				return true
			}
			href, _ := link.Attr("href")
			if strings.Contains(href, labelHrefFragment) {
				report.Label = strings.TrimSpace(link.Text())
				return false
			}
			return true
		})
	}

	container.Find(detailSummarySel).EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if len([]rune(text)) > minDetailSummaryRunes {
			report.Summary = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
			return false
		}
		return true
	})

	report.FullContent = extractFullContent(container)
}

// extractFullContent collects the report body, which starts at the h2
// heading containing the marker word and runs through the following
// sibling text blocks. When that recovers too little, it rescans all
// headings and paragraphs under the same parent container.
func extractFullContent(container *goquery.Selection) string {
	var marker *goquery.Selection
	container.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(h.Text(), contentMarker) {
			marker = h
			return false
		}
		return true
	})
	if marker == nil {
		return ""
	}

	blocks := []string{contentMarker}
	marker.NextAll().Each(func(_ int, sibling *goquery.Selection) {
		text := strings.TrimSpace(sibling.Text())
		if len([]rune(text)) > minContentBlockRunes {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) < minContentBlocks {
		blocks = []string{contentMarker}
		markerNode := marker.Get(0)
		found := false
		marker.Parent().Find("h2, h3, h4, p").Each(func(_ int, el *goquery.Selection) {
			if found {
				text := strings.TrimSpace(el.Text())
				if len([]rune(text)) > minContentBlockRunes {
					blocks = append(blocks, text)
				}
				return
			}
			if el.Get(0) == markerNode {
				found = true
			}
		})
	}

	if len(blocks) <= 1 {
		return ""
	}
	return strings.Join(blocks, "\n\n")
}

// clipRunes bounds s to max runes; multibyte text must not be cut
// mid-character.
func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

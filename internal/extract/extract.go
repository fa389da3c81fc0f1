// Package extract turns raw HTML into a normalized title and main-body text.
// Extraction is best-effort and total: malformed or empty markup degrades to
// whole-document text, never to an error.
package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"sitewatch/internal/config"
	"sitewatch/internal/model"
)

const (
	maxTitleLength    = 200
	truncationMarker  = "..."
	untitledFallback  = "Untitled"
	defaultMaxContent = 50000
	defaultMinContent = 100
)

// titleSelectors are tried in order; the first non-empty match under the
// length ceiling wins.
var titleSelectors = []string{
	"title",
	"h1",
	".title",
	".headline",
	".post-title",
	".entry-title",
	`[data-testid="title"]`,
}

// contentSelectors locate the main content container. The first candidate
// with substantial text wins.
var contentSelectors = []string{
	"article",
	".content",
	".post-content",
	".entry-content",
	".article-content",
	"main",
	".main-content",
	".story-body",
	".post-body",
	`[data-testid="content"]`,
}

// noiseSelectors are removed from the document before any text extraction,
// so navigation, ads and overlays never count toward the body.
var noiseSelectors = []string{
	"nav",
	"header",
	"footer",
	".navigation",
	".nav",
	".menu",
	".sidebar",
	".advertisement",
	".ads",
	".ad",
	".social",
	".share",
	".comments",
	".comment",
	".related",
	".recommended",
	"script",
	"style",
	"noscript",
	".cookie",
	".popup",
	".modal",
	".overlay",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor parses HTML into title and body text using a prioritized
// selector list plus optional per-site rule overrides.
type Extractor struct {
	maxContentLength int
	minContentLength int
}

// New builds an extractor from configuration.
func New(cfg config.ExtractorConfig) *Extractor {
	maxLen := cfg.MaxContentLength
	if maxLen <= 0 {
		maxLen = defaultMaxContent
	}
	minLen := cfg.MinContentLength
	if minLen <= 0 {
		minLen = defaultMinContent
	}
	return &Extractor{maxContentLength: maxLen, minContentLength: minLen}
}

// Extract produces the title and normalized body of html. rules may carry
// site-specific selector overrides, which are tried before the built-in
// lists. Word count is computed on the stored text, after truncation, so the
// persisted count always matches the persisted body.
func (e *Extractor) Extract(html string, rules model.ExtractionRules) model.ExtractedContent {
	now := time.Now()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// goquery's parser recovers from almost anything; if it still
		// fails, return the empty-but-valid result.
		return model.ExtractedContent{Title: untitledFallback, FetchedAt: now}
	}

	// Noise removal happens before body extraction so removed regions are
	// never counted.
	removeNoise(doc, rules.ExcludeSelectors)

	title := extractTitle(doc, rules.TitleSelector)
	body := e.extractBody(doc, rules.ContentSelector)

	contentLength := len(body)
	if len(body) > e.maxContentLength {
		body = truncateToRune(body, e.maxContentLength) + truncationMarker
	}

	return model.ExtractedContent{
		Title:         title,
		Body:          body,
		WordCount:     countWords(body),
		ContentLength: contentLength,
		FetchedAt:     now,
	}
}

func removeNoise(doc *goquery.Document, siteExcludes []string) {
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	for _, sel := range siteExcludes {
		if strings.TrimSpace(sel) != "" {
			doc.Find(sel).Remove()
		}
	}
}

func extractTitle(doc *goquery.Document, override string) string {
	selectors := titleSelectors
	if strings.TrimSpace(override) != "" {
		selectors = append([]string{override}, titleSelectors...)
	}

	for _, sel := range selectors {
		title := strings.TrimSpace(doc.Find(sel).First().Text())
		if title != "" && len(title) < maxTitleLength {
			return title
		}
	}
	return untitledFallback
}

func (e *Extractor) extractBody(doc *goquery.Document, override string) string {
	selectors := contentSelectors
	if strings.TrimSpace(override) != "" {
		selectors = append([]string{override}, contentSelectors...)
	}

	for _, sel := range selectors {
		selection := doc.Find(sel).First()
		if selection.Length() == 0 {
			continue
		}
		body := normalize(selection.Text())
		if len(body) > e.minContentLength {
			return body
		}
	}

	// No candidate held substantial content; fall back to the whole page.
	return normalize(doc.Find("body").Text())
}

// Metadata captures descriptive page data at site-registration time.
type Metadata struct {
	Title       string
	Description string
	Favicon     string
	Language    string
}

var descriptionSelectors = []string{
	`meta[name="description"]`,
	`meta[property="og:description"]`,
	".description",
	".excerpt",
	".summary",
}

var faviconSelectors = []string{
	`link[rel="icon"]`,
	`link[rel="shortcut icon"]`,
	`link[rel="apple-touch-icon"]`,
	`link[rel="apple-touch-icon-precomposed"]`,
}

// PageMetadata extracts title, description, favicon and language from html.
// Missing pieces degrade to sensible defaults.
func PageMetadata(html, baseURL string) Metadata {
	meta := Metadata{Title: untitledFallback, Language: "en"}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	meta.Title = extractTitle(doc, "")

	for _, sel := range descriptionSelectors {
		desc := doc.Find(sel).First().AttrOr("content", "")
		if desc == "" {
			desc = strings.TrimSpace(doc.Find(sel).First().Text())
		}
		if desc != "" && len(desc) < 500 {
			meta.Description = desc
			break
		}
	}

	for _, sel := range faviconSelectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && href != "" {
			meta.Favicon = resolveURL(href, baseURL)
			break
		}
	}
	if meta.Favicon == "" {
		if parsed, err := url.Parse(baseURL); err == nil && parsed.Host != "" {
			meta.Favicon = parsed.Scheme + "://" + parsed.Host + "/favicon.ico"
		}
	}

	if lang, ok := doc.Find("html").Attr("lang"); ok && lang != "" {
		meta.Language = strings.SplitN(lang, "-", 2)[0]
	}

	return meta
}

func resolveURL(href, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func normalize(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// truncateToRune cuts text at limit bytes, backing up so the cut never
// splits a multi-byte rune.
func truncateToRune(text string, limit int) string {
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

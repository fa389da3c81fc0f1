package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/config"
	"sitewatch/internal/model"
)

func newTestExtractor() *Extractor {
	return New(config.ExtractorConfig{MaxContentLength: 50000, MinContentLength: 100})
}

func longText(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestExtract_TitlePriority(t *testing.T) {
	e := newTestExtractor()

	html := `<html><head><title>Document Title</title></head>
		<body><h1>Heading Title</h1></body></html>`
	result := e.Extract(html, model.ExtractionRules{})
	assert.Equal(t, "Document Title", result.Title)

	// Without a title element the heading wins.
	html = `<html><body><h1>Heading Title</h1></body></html>`
	result = e.Extract(html, model.ExtractionRules{})
	assert.Equal(t, "Heading Title", result.Title)
}

func TestExtract_TitleOverrideWinsFirst(t *testing.T) {
	e := newTestExtractor()

	html := `<html><head><title>Generic</title></head>
		<body><span class="custom-headline">Override Title</span></body></html>`
	result := e.Extract(html, model.ExtractionRules{TitleSelector: ".custom-headline"})
	assert.Equal(t, "Override Title", result.Title)
}

func TestExtract_TitleLengthCeiling(t *testing.T) {
	e := newTestExtractor()

	// A title at or beyond 200 chars is rejected and the next selector tried.
	huge := strings.Repeat("x", 250)
	html := `<html><head><title>` + huge + `</title></head><body><h1>Short</h1></body></html>`
	result := e.Extract(html, model.ExtractionRules{})
	assert.Equal(t, "Short", result.Title)
}

func TestExtract_UntitledFallback(t *testing.T) {
	e := newTestExtractor()

	result := e.Extract("<html><body><p>no title anywhere</p></body></html>", model.ExtractionRules{})
	assert.Equal(t, "Untitled", result.Title)
}

func TestExtract_NoiseRemovedBeforeExtraction(t *testing.T) {
	e := newTestExtractor()

	body := longText("word", 60)
	html := `<html><body><article>
		<nav>IGNORED NAVIGATION</nav>
		<div class="advertisement">IGNORED AD</div>
		<p>` + body + `</p>
	</article></body></html>`

	result := e.Extract(html, model.ExtractionRules{})
	assert.NotContains(t, result.Body, "IGNORED NAVIGATION")
	assert.NotContains(t, result.Body, "IGNORED AD")
	assert.Contains(t, result.Body, "word word")
}

func TestExtract_SiteExcludeSelectors(t *testing.T) {
	e := newTestExtractor()

	html := `<html><body><article>
		<div class="promo-box">PROMO</div>
		<p>` + longText("content", 60) + `</p>
	</article></body></html>`

	result := e.Extract(html, model.ExtractionRules{ExcludeSelectors: []string{".promo-box"}})
	assert.NotContains(t, result.Body, "PROMO")
}

func TestExtract_ContentSelectorThreshold(t *testing.T) {
	e := newTestExtractor()

	// The article element is present but too thin; the substantial
	// .content block should win instead.
	html := `<html><body>
		<article>too short</article>
		<div class="content">` + longText("meaningful", 40) + `</div>
	</body></html>`

	result := e.Extract(html, model.ExtractionRules{})
	assert.Contains(t, result.Body, "meaningful")
	assert.NotContains(t, result.Body, "too short")
}

func TestExtract_WholeBodyFallback(t *testing.T) {
	e := newTestExtractor()

	// No recognizable container at all; fall back to full page text.
	body := longText("fallback", 40)
	html := `<html><body><div><span>` + body + `</span></div></body></html>`

	result := e.Extract(html, model.ExtractionRules{})
	assert.Contains(t, result.Body, "fallback")
}

func TestExtract_Truncation(t *testing.T) {
	e := New(config.ExtractorConfig{MaxContentLength: 200, MinContentLength: 100})

	html := `<html><body><article>` + longText("verylongword", 100) + `</article></body></html>`
	result := e.Extract(html, model.ExtractionRules{})

	require.True(t, strings.HasSuffix(result.Body, "..."))
	assert.Len(t, result.Body, 203)
	// ContentLength reports the pre-truncation size.
	assert.Greater(t, result.ContentLength, 200)
	// Word count is computed on the stored, truncated text.
	assert.Equal(t, len(strings.Fields(result.Body)), result.WordCount)
}

func TestExtract_TruncationKeepsValidUTF8(t *testing.T) {
	// Multi-byte runes all the way to the cut point: a byte-offset slice
	// would split one at almost any limit.
	for limit := 197; limit <= 203; limit++ {
		e := New(config.ExtractorConfig{MaxContentLength: limit, MinContentLength: 100})

		html := `<html><body><article>` + strings.Repeat("日本語テキスト ", 40) + `</article></body></html>`
		result := e.Extract(html, model.ExtractionRules{})

		require.True(t, strings.HasSuffix(result.Body, "..."), "limit %d", limit)
		assert.True(t, utf8.ValidString(result.Body), "limit %d", limit)
		assert.LessOrEqual(t, len(result.Body), limit+len("..."))
	}
}

func TestExtract_Total(t *testing.T) {
	e := newTestExtractor()

	inputs := []string{
		"",
		"not html at all",
		"<html><body></body></html>",
		"<div><p>unclosed tags<div><span>",
		"<<<>>>",
	}

	for _, input := range inputs {
		result := e.Extract(input, model.ExtractionRules{})
		assert.NotEmpty(t, result.Title, "input %q", input)
	}
}

func TestExtract_NormalizesWhitespace(t *testing.T) {
	e := newTestExtractor()

	html := `<html><body><article>some   text

	with    gaps ` + longText("pad", 40) + `</article></body></html>`
	result := e.Extract(html, model.ExtractionRules{})
	assert.Contains(t, result.Body, "some text with gaps")
}

func TestPageMetadata(t *testing.T) {
	html := `<html lang="en-US"><head>
		<title>Example Site</title>
		<meta name="description" content="A site about examples">
		<link rel="icon" href="/assets/icon.png">
	</head><body></body></html>`

	meta := PageMetadata(html, "https://example.com/page")
	assert.Equal(t, "Example Site", meta.Title)
	assert.Equal(t, "A site about examples", meta.Description)
	assert.Equal(t, "https://example.com/assets/icon.png", meta.Favicon)
	assert.Equal(t, "en", meta.Language)
}

func TestPageMetadata_FaviconFallback(t *testing.T) {
	meta := PageMetadata("<html><head><title>T</title></head></html>", "https://example.com/deep/path")
	assert.Equal(t, "https://example.com/favicon.ico", meta.Favicon)
}

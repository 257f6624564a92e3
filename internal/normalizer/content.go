// Package normalizer turns rendered detail pages into model input and model
// output into canonical records.
package normalizer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"gigsync/internal/config"
	"gigsync/pkg/utils"
)

// fragmentSelector lists the elements likely to carry concert details.
const fragmentSelector = `h1, h2, h3, h4, ` +
	`[class*="title"], [class*="content"], [class*="description"], [class*="date"], ` +
	`[class*="location"], [class*="venue"], [class*="contact"], [class*="press"]`

// ContentNormalizer extracts a bounded plain-text excerpt from a rendered page.
type ContentNormalizer struct {
	cfg *config.NormalizerConfig
}

// NewContentNormalizer creates a content normalizer.
func NewContentNormalizer(cfg *config.NormalizerConfig) *ContentNormalizer {
	return &ContentNormalizer{cfg: cfg}
}

// Normalize returns the excerpt for document. Fragments from likely elements are
// kept when they are long enough, short enough, have more than two words and
// carry no boilerplate marker. When nothing qualifies, the whole visible body
// text is used instead. The result never exceeds MaxChars plus the ellipsis.
func (n *ContentNormalizer) Normalize(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()

	fragments := n.fragments(doc)

	excerpt := strings.Join(fragments, "\n")
	if excerpt == "" {
		excerpt = visibleText(doc.Find("body"))
	}

	if excerpt == "" {
		excerpt = visibleText(doc.Selection)
	}

	return utils.TruncateString(excerpt, n.cfg.MaxChars), nil
}

func (n *ContentNormalizer) fragments(doc *goquery.Document) []string {
	seen := make(map[string]struct{})

	var fragments []string

	doc.Find(fragmentSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := visibleText(sel)
		if !n.keep(text) {
			return true
		}

		if _, dup := seen[text]; dup {
			return true
		}

		seen[text] = struct{}{}
		fragments = append(fragments, text)

		return n.cfg.MaxFragments <= 0 || len(fragments) < n.cfg.MaxFragments
	})

	return fragments
}

func (n *ContentNormalizer) keep(text string) bool {
	length := len([]rune(text))
	if length <= n.cfg.MinFragmentLen || length >= n.cfg.MaxFragmentLen {
		return false
	}

	if utils.WordCount(text) <= 2 {
		return false
	}

	return !utils.ContainsAnyFold(text, n.cfg.Boilerplate)
}

// visibleText joins the text nodes under sel with spaces, so adjacent
// elements do not run into each other the way Selection.Text does.
func visibleText(sel *goquery.Selection) string {
	var sb strings.Builder

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	for _, node := range sel.Nodes {
		walk(node)
	}

	return utils.NormalizeWhitespace(sb.String())
}

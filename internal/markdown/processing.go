package markdown

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

const placeholderFormat = "%%%%GREENTEXT_PLACEHOLDER_%d%%%%"

var allowedTags = []string{
	"span", "p", "br", "div", "strong", "em", "a", "code", "pre",
	"ul", "ol", "li", "h1", "h2", "h3", "h4", "h5", "h6", "hr", "del",
}

type TextProcessor struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func New() *TextProcessor {
	// Blockquotes, raw html and images are left out on purpose: '>' lines are greentext.
	p := parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewSetextHeadingParser(), 100),
			util.Prioritized(parser.NewThematicBreakParser(), 200),
			util.Prioritized(parser.NewListParser(), 300),
			util.Prioritized(parser.NewListItemParser(), 400),
			util.Prioritized(parser.NewCodeBlockParser(), 500),
			util.Prioritized(parser.NewATXHeadingParser(), 600),
			util.Prioritized(parser.NewFencedCodeBlockParser(), 700),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewCodeSpanParser(), 100),
			util.Prioritized(parser.NewLinkParser(), 200),
			util.Prioritized(parser.NewAutoLinkParser(), 300),
			util.Prioritized(parser.NewEmphasisParser(), 500),
		),
		parser.WithParagraphTransformers(
			util.Prioritized(parser.LinkReferenceParagraphTransformer, 100),
		),
	)

	md := goldmark.New(
		goldmark.WithParser(p),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		goldmark.WithExtensions(
			extension.Strikethrough,
			extension.Linkify,
			extension.Typographer,
			imageAsLink,
		),
	)

	return &TextProcessor{md: md, policy: newPolicy()}
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	p.AllowAttrs("class", "target").Globally()
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(false)
	return p
}

// Render turns raw post text into sanitized HTML with greentext and markdown applied.
func (tp *TextProcessor) Render(raw string) string {
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	greentext := make(map[int]string)
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			greentext[i] = strings.TrimRight(line, "\r")
			lines[i] = fmt.Sprintf(placeholderFormat, i)
		}
	}

	rendered, err := tp.renderMarkdown(strings.Join(lines, "\n"))
	if err != nil {
		rendered = html.EscapeString(strings.Join(lines, "\n"))
	}

	for i, line := range greentext {
		placeholder := fmt.Sprintf(placeholderFormat, i)
		div := `<div class="greentext">` + html.EscapeString(line) + `</div>`
		rendered = strings.ReplaceAll(rendered, placeholder, div)
	}

	return tp.Sanitize(rendered)
}

// RenderHTML is Render typed for html/template.
func (tp *TextProcessor) RenderHTML(raw string) template.HTML {
	return template.HTML(tp.Render(raw))
}

// Sanitize strips everything outside the post allow-list.
func (tp *TextProcessor) Sanitize(text string) string {
	return strings.TrimSpace(tp.policy.Sanitize(text))
}

func (tp *TextProcessor) renderMarkdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := tp.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

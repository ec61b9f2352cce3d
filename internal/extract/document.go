package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Document is the reference metadata and readable text found in an HTML page
type Document struct {
	Title   string
	Authors []string
	Year    int
	Text    string
}

// yearPattern matches a plausible publication year
var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// titleMeta and friends list meta tag names in order of preference
// (Highwire Press citation tags, Dublin Core, Open Graph)
var (
	titleMeta  = []string{"citation_title", "dc.title", "og:title"}
	authorMeta = []string{"citation_author", "dc.creator", "author"}
	dateMeta   = []string{"citation_publication_date", "citation_date", "dc.date", "article:published_time"}
)

// ParseDocument extracts metadata and visible text from an HTML document
func ParseDocument(htmlContent string) (*Document, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	meta := make(map[string][]string)
	var pageTitle string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if pageTitle == "" && n.FirstChild != nil {
					pageTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				if name == "" {
					name = strings.ToLower(attr(n, "property"))
				}
				if content := strings.TrimSpace(attr(n, "content")); name != "" && content != "" {
					meta[name] = append(meta[name], content)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	d := &Document{
		Title: firstMeta(meta, titleMeta),
		Text:  collapseSpace(visibleText(doc)),
	}
	if d.Title == "" {
		d.Title = pageTitle
	}

	for _, key := range authorMeta {
		if len(meta[key]) > 0 {
			d.Authors = meta[key]
			break
		}
	}

	if date := firstMeta(meta, dateMeta); date != "" {
		d.Year = ParseYear(date)
	}

	return d, nil
}

// visibleText collects text nodes, skipping scripts, styles and the head
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "nav", "footer":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// ParseYear returns the first plausible year in s, or 0
func ParseYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	year, _ := strconv.Atoi(m)
	return year
}

// Snippet returns the first n runes of text with whitespace collapsed,
// followed by "..." when the text was cut
func Snippet(text string, n int) string {
	text = collapseSpace(text)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstMeta(meta map[string][]string, keys []string) string {
	for _, key := range keys {
		if values := meta[key]; len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Package testhelpers provides markup queries for handler and view tests.
// Queries mirror how a user finds things on the page: by placeholder, role,
// visible text and test id.
package testhelpers

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// Document is a parsed HTML page or fragment.
type Document struct {
	root *html.Node
}

// ParseDocument parses body or fails the test.
func ParseDocument(t testing.TB, body string) *Document {
	t.Helper()
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return &Document{root: root}
}

// find returns every element node under the root matching pred, in document order.
func (d *Document) find(pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// ByPlaceholder returns the element whose placeholder attribute equals p, or nil.
func (d *Document) ByPlaceholder(p string) *html.Node {
	return first(d.find(func(n *html.Node) bool { return Attr(n, "placeholder") == p }))
}

// ByTestID returns the element whose data-testid equals id, or nil.
func (d *Document) ByTestID(id string) *html.Node {
	return first(d.find(func(n *html.Node) bool { return Attr(n, "data-testid") == id }))
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	return first(d.find(func(n *html.Node) bool { return Attr(n, "id") == id }))
}

// ByName returns the form control with the given name attribute, or nil.
func (d *Document) ByName(name string) *html.Node {
	return first(d.find(func(n *html.Node) bool { return Attr(n, "name") == name }))
}

// AllByRole returns elements exposing the ARIA role. Only "button" and "heading" are supported.
func (d *Document) AllByRole(role string) []*html.Node {
	return d.find(func(n *html.Node) bool {
		if Attr(n, "role") == role {
			return true
		}
		switch role {
		case "button":
			if n.Data == "button" {
				return true
			}
			if n.Data == "input" {
				switch Attr(n, "type") {
				case "submit", "button", "reset":
					return true
				}
			}
		case "heading":
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				return true
			}
		}
		return false
	})
}

// AllByText returns elements whose own text, whitespace collapsed, equals text exactly.
func (d *Document) AllByText(text string) []*html.Node {
	return d.find(func(n *html.Node) bool {
		return ownText(n) == text
	})
}

// ByText returns the first element whose own text equals text, or nil.
func (d *Document) ByText(text string) *html.Node {
	return first(d.AllByText(text))
}

// ContainsTextFold reports whether any element's own text contains sub, case-insensitively.
func (d *Document) ContainsTextFold(sub string) bool {
	sub = strings.ToLower(sub)
	return len(d.find(func(n *html.Node) bool {
		return strings.Contains(strings.ToLower(ownText(n)), sub)
	})) > 0
}

// AllByClass returns elements carrying class c.
func (d *Document) AllByClass(c string) []*html.Node {
	return d.find(func(n *html.Node) bool {
		for _, have := range strings.Fields(Attr(n, "class")) {
			if have == c {
				return true
			}
		}
		return false
	})
}

// AllByTag returns elements with the given tag name.
func (d *Document) AllByTag(tag string) []*html.Node {
	return d.find(func(n *html.Node) bool { return n.Data == tag })
}

// Attr returns the value of attribute key on n, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// Value returns the current value of an input or textarea.
func Value(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Data == "textarea" {
		return TextContent(n)
	}
	return Attr(n, "value")
}

// TextContent returns all descendant text of n concatenated, or "" for nil.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// ownText joins n's direct text children and collapses whitespace.
func ownText(n *html.Node) string {
	if n.Data == "script" || n.Data == "style" || n.Data == "title" {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func first(nodes []*html.Node) *html.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

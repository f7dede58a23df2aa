package dispatch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page receives the terminal error notice.
type Page interface {
	ReplaceContent(heading, message string) error
}

// Document is a parsed HTML page.
type Document struct {
	mu   sync.Mutex
	root *html.Node
}

// ParseDocument parses an HTML page.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseDocumentString is ParseDocument for in-memory pages.
func ParseDocumentString(s string) (*Document, error) {
	return ParseDocument(strings.NewReader(s))
}

// OpenDocument parses the page stored at path.
func OpenDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page %s: %w", path, err)
	}
	defer f.Close()
	return ParseDocument(f)
}

// HasAnchor implements AnchorProvider.
func (d *Document) HasAnchor(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	}) != nil
}

// ReplaceContent implements Page. Everything inside <body> is dropped and
// replaced by the notice. Text is escaped when rendered.
func (d *Document) ReplaceContent(heading, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	body := find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
	if body == nil {
		return errors.New("page has no body")
	}
	for c := body.FirstChild; c != nil; c = body.FirstChild {
		body.RemoveChild(c)
	}

	notice := element(atom.Div, html.Attribute{Key: "class", Val: "boot-error"})
	h := element(atom.H1)
	h.AppendChild(&html.Node{Type: html.TextNode, Data: heading})
	p := element(atom.P)
	p.AppendChild(&html.Node{Type: html.TextNode, Data: message})
	notice.AppendChild(h)
	notice.AppendChild(p)
	body.AppendChild(notice)
	return nil
}

// Render writes the current page.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the page into a string.
func (d *Document) String() string {
	var sb strings.Builder
	_ = d.Render(&sb)
	return sb.String()
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

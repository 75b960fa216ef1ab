package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// domElement is an Element backed by a goquery selection of one node.
type domElement struct {
	sel  *goquery.Selection
	path string
}

func newDOMElement(sel *goquery.Selection) *domElement {
	var path string
	if len(sel.Nodes) > 0 {
		path = nodePath(sel.Nodes[0])
	}
	return &domElement{sel: sel, path: path}
}

func (e *domElement) Path() string { return e.path }

func (e *domElement) Text() string { return collapseSpace(e.sel.Text()) }

func (e *domElement) Attr(name string) (string, bool) { return e.sel.Attr(name) }

func (e *domElement) Has(selector string) bool {
	return e.sel.Find(selector).Length() > 0
}

func (e *domElement) FindText(selector string) (string, bool) {
	found := e.sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return collapseSpace(found.Text()), true
}

// nodePath builds a child-combinator selector from the document root to n
// using :nth-child positions, e.g. "html > body:nth-child(2) > div:nth-child(1)".
func nodePath(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur.Parent == nil || cur.Parent.Type != html.ElementNode {
			parts = append(parts, cur.Data)
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-child(%d)", cur.Data, elementIndex(cur)))
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// elementIndex returns the 1-based position of n among its element siblings.
func elementIndex(n *html.Node) int {
	idx := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

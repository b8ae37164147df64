package editor

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// viewportStyleID marks the injected style block so it is added only once.
const viewportStyleID = "viewport-normalize"

const viewportCSS = `
html, body { height: 100%; margin: 0; padding: 0; overflow: auto; width: 100%; }
body { font-family: Arial, sans-serif; padding: 20px; line-height: 1.5; color: #333; min-height: 100%; box-sizing: border-box; max-width: 100%; overflow-x: hidden; }
.kix-appview-editor, .docs-ui-unprintable, .kix-page { width: 100% !important; max-width: 100% !important; }
.kix-page-paginated { width: auto !important; margin: 0 !important; box-shadow: none !important; border: none !important; }
div[style*="border-right"], div[style*="border-left"], div[style*="vertical-align"], .kix-page-column-border { border: none !important; background: none !important; }
.kix-page-column { width: 100% !important; border: none !important; max-width: 100% !important; }
[style*="position: absolute"] { position: static !important; }
[role="presentation"] { width: 100% !important; max-width: 100% !important; }
table { border-collapse: collapse; width: 100%; }
td, th { border: 1px solid #ddd; padding: 8px; }
:focus { outline: 1px solid #4285f4; }
`

// Normalize makes exported document markup fill the viewport. It strips page
// dividers, widens fixed-width blocks and injects a single style block.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("unable to parse document markup: %w", err)
	}

	for _, n := range elements(doc) {
		if isDivider(n) && n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	for _, n := range elements(doc) {
		if hasClass(n, "kix-page-column") {
			setStyle(n, "width", "100%")
			setStyle(n, "max-width", "100%")
			setStyle(n, "border", "none")
		}
	}

	for _, n := range elements(doc) {
		if hasClass(n, "kix-page") || hasClass(n, "kix-page-content-wrapper") {
			setStyle(n, "width", "100%")
			setStyle(n, "max-width", "100%")
			setStyle(n, "margin", "0")
			setStyle(n, "padding", "0")
		}
	}

	for _, n := range elements(doc) {
		if !strings.Contains(attr(n, "style"), "width") {
			continue
		}
		if hasClass(n, "kix-lineview-text-block") || hasClass(n, "kix-selection-overlay") {
			continue
		}
		setStyle(n, "width", "100%")
		setStyle(n, "max-width", "100%")
	}

	ensureViewportStyle(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("unable to render document markup: %w", err)
	}
	return buf.String(), nil
}

// elements returns every element node in document order.
func elements(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func isDivider(n *html.Node) bool {
	if hasClass(n, "kix-page-column-border") {
		return true
	}
	if n.DataAtom != atom.Div {
		return false
	}
	for _, d := range parseStyle(attr(n, "style")) {
		if d.prop == "width" && strings.EqualFold(d.value, "1px") {
			return true
		}
		if d.prop == "border-right" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

type declaration struct {
	prop  string
	value string
}

func parseStyle(style string) []declaration {
	var decls []declaration
	for _, part := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "" {
			continue
		}
		decls = append(decls, declaration{prop: prop, value: strings.TrimSpace(value)})
	}
	return decls
}

func formatStyle(decls []declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

// setStyle sets one inline style property, replacing it in place when present.
func setStyle(n *html.Node, prop, value string) {
	decls := parseStyle(attr(n, "style"))
	found := false
	for i := range decls {
		if decls[i].prop == prop {
			decls[i].value = value
			found = true
		}
	}
	if !found {
		decls = append(decls, declaration{prop: prop, value: value})
	}
	setAttr(n, "style", formatStyle(decls))
}

func ensureViewportStyle(doc *html.Node) {
	var head *html.Node
	for _, n := range elements(doc) {
		if n.DataAtom == atom.Style && attr(n, "id") == viewportStyleID {
			return
		}
		if head == nil && n.DataAtom == atom.Head {
			head = n
		}
	}
	if head == nil {
		return
	}

	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: viewportStyleID}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: viewportCSS})
	head.AppendChild(style)
}

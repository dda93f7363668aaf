package renderer

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	lerrors "github.com/conneroisu/landing/internal/errors"
)

// Injection lists the tags added to a page's <head>.
type Injection struct {
	Favicon string
	Scripts []string
	Styles  []string
	// Query is appended as "?<query>" to every injected URL when set.
	Query string
}

// ParseDocument parses a full HTML document. Missing <html>, <head> and
// <body> elements are synthesized.
func ParseDocument(content []byte) (*html.Node, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, lerrors.NewBundleError("HTML_PARSE", "failed to parse document").WithCause(err)
	}
	return doc, nil
}

// RenderDocument serializes doc.
func RenderDocument(doc *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, lerrors.NewBundleError("HTML_RENDER", "failed to render document").WithCause(err)
	}
	return buf.Bytes(), nil
}

// Inject appends the favicon link, deferred scripts and style sheets to
// the head of doc, in that order.
func Inject(doc *html.Node, inj Injection) {
	head := findElement(doc, atom.Head)
	if head == nil {
		return
	}
	withQuery := func(u string) string {
		if inj.Query == "" {
			return u
		}
		return u + "?" + inj.Query
	}

	if inj.Favicon != "" {
		head.AppendChild(element(atom.Link,
			html.Attribute{Key: "rel", Val: "icon"},
			html.Attribute{Key: "href", Val: withQuery(inj.Favicon)}))
	}
	for _, src := range inj.Scripts {
		head.AppendChild(element(atom.Script,
			html.Attribute{Key: "defer"},
			html.Attribute{Key: "src", Val: withQuery(src)}))
	}
	for _, href := range inj.Styles {
		head.AppendChild(element(atom.Link,
			html.Attribute{Key: "href", Val: withQuery(href)},
			html.Attribute{Key: "rel", Val: "stylesheet"}))
	}
}

// SetBaseHref makes <base href> the first child of <head>, replacing the
// href of an existing base element.
func SetBaseHref(doc *html.Node, href string) {
	head := findElement(doc, atom.Head)
	if head == nil {
		return
	}
	if base := findElement(head, atom.Base); base != nil {
		setAttr(base, "href", href)
		if base != head.FirstChild {
			base.Parent.RemoveChild(base)
			head.InsertBefore(base, head.FirstChild)
		}
		return
	}
	head.InsertBefore(element(atom.Base, html.Attribute{Key: "href", Val: href}), head.FirstChild)
}

// InjectLiveReload appends the reload client to the end of <body>.
func InjectLiveReload(doc *html.Node, endpoint string) {
	body := findElement(doc, atom.Body)
	if body == nil {
		return
	}
	script := element(atom.Script)
	script.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: strings.ReplaceAll(liveReloadClient, "{{endpoint}}", endpoint),
	})
	body.AppendChild(script)
}

const liveReloadClient = `
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "{{endpoint}}");
  ws.onmessage = function (event) {
    if (event.data === "reload") {
      location.reload();
    }
  };
})();
`

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

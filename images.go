package kibela2esa

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// imageSources returns the src of every image in a markdown body, in
// document order: markdown images and <img> tags in raw HTML. Code spans
// and fenced code are not searched.
func imageSources(body string) []string {
	source := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var sources []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			sources = append(sources, string(node.Destination))
		case *ast.RawHTML:
			var raw strings.Builder
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				raw.Write(seg.Value(source))
			}
			sources = append(sources, htmlImageSources(raw.String())...)
		case *ast.HTMLBlock:
			var raw strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				raw.Write(seg.Value(source))
			}
			if node.HasClosure() {
				raw.Write(node.ClosureLine.Value(source))
			}
			sources = append(sources, htmlImageSources(raw.String())...)
		}
		return ast.WalkContinue, nil
	})
	return sources
}

// htmlImageSources parses an HTML fragment and collects img[src] values.
func htmlImageSources(fragment string) []string {
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil
	}

	var sources []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			for _, attr := range n.Attr {
				if attr.Key == "src" && attr.Val != "" {
					sources = append(sources, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return sources
}

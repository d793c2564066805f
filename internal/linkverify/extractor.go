package linkverify

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Link represents a reference extracted from an HTML page.
type Link struct {
	URL        string
	Tag        string // a, img, link, script, source
	Attribute  string // href or src
	IsInternal bool
}

// ExtractLinks extracts all links from an HTML file.
func ExtractLinks(htmlPath string) ([]*Link, error) {
	file, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").
			WithContext("html_path", htmlPath).Build()
	}
	defer func() {
		_ = file.Close()
	}()

	return ExtractLinksFromReader(file)
}

// ExtractLinksFromReader extracts all links from an HTML reader.
func ExtractLinksFromReader(r io.Reader) ([]*Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	var links []*Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr := linkAttribute(n.Data); attr != "" {
				if v := getAttr(n, attr); v != "" {
					links = append(links, &Link{
						URL:        v,
						Tag:        n.Data,
						Attribute:  attr,
						IsInternal: isInternalLink(v),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func linkAttribute(tag string) string {
	switch tag {
	case "a", "link":
		return "href"
	case "img", "script", "source", "video", "audio":
		return "src"
	}
	return ""
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// isInternalLink reports whether linkURL is a relative reference into the
// generated site. Anchors and special schemes are not.
func isInternalLink(linkURL string) bool {
	if strings.HasPrefix(linkURL, "#") {
		return false
	}
	u, err := url.Parse(linkURL)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && !strings.HasPrefix(u.Path, "/")
}

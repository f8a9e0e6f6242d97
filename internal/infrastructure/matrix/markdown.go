package matrix

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return markdownInstance
}

// RenderMarkdown converts a markdown body to the HTML sent as formatted_body.
func RenderMarkdown(body string) (string, error) {
	var buf bytes.Buffer
	if err := getMarkdown().Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

package generator

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// naverMarkdown mirrors the source formatter's extension set: GFM tables and
// strikethrough, hard line breaks (Naver's editor swallows soft breaks), and
// raw HTML passthrough.
var naverMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

// naverStyles are the inline styles Naver's editor keeps when pasting HTML.
var naverStyles = [][2]string{
	{"<h1>", `<h1 style="font-size: 1.6em; margin: 1em 0 0.5em 0;">`},
	{"<h2>", `<h2 style="font-size: 1.3em; margin: 0.8em 0 0.4em 0;">`},
	{"<h3>", `<h3 style="font-size: 1.1em; margin: 0.6em 0 0.3em 0;">`},
	{"<p>", `<p style="margin-bottom: 1em; line-height: 1.8;">`},
	{"<li>", `<li style="margin-bottom: 0.3em; line-height: 1.6;">`},
	{"<strong>", `<strong style="color: #333;">`},
}

// MarkdownToNaverHTML converts generated markdown into HTML that survives a
// paste into the Naver blog editor.
func MarkdownToNaverHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := naverMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", errors.Wrap(err, "converting markdown")
	}

	out := buf.String()
	for _, repl := range naverStyles {
		out = strings.ReplaceAll(out, repl[0], repl[1])
	}
	return strings.TrimSpace(out), nil
}

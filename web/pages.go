// ABOUTME: Loads the fixed index and error documents served for "/" and for unknown paths.
// ABOUTME: Each page comes from html/<name>.html, else html/<name>.md rendered by goldmark, else a built-in copy.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
)

//go:embed pages/*.html
var builtinPagesFS embed.FS

// SourceBuiltin is reported as the page source when no document exists on disk.
const SourceBuiltin = "builtin"

// Page is one fixed HTML document and where it was loaded from.
type Page struct {
	Body   []byte
	Source string
}

// Pages holds the two fixed documents the router serves.
type Pages struct {
	Index Page
	Error Page
}

// LoadPages reads the index and error documents from htmlDir. Documents are
// read once; edits on disk take effect after a restart.
func LoadPages(htmlDir string) (*Pages, error) {
	index, err := loadPage(htmlDir, "index")
	if err != nil {
		return nil, err
	}
	errPage, err := loadPage(htmlDir, "error")
	if err != nil {
		return nil, err
	}
	return &Pages{Index: index, Error: errPage}, nil
}

func loadPage(dir, name string) (Page, error) {
	htmlPath := filepath.Join(dir, name+".html")
	body, err := os.ReadFile(htmlPath)
	if err == nil {
		return Page{Body: body, Source: htmlPath}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Page{}, fmt.Errorf("reading %s page: %w", name, err)
	}

	mdPath := filepath.Join(dir, name+".md")
	src, err := os.ReadFile(mdPath)
	if err == nil {
		body, err := renderMarkdownPage(name, src)
		if err != nil {
			return Page{}, fmt.Errorf("rendering %s: %w", mdPath, err)
		}
		return Page{Body: body, Source: mdPath}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Page{}, fmt.Errorf("reading %s page: %w", name, err)
	}

	body, err = builtinPagesFS.ReadFile("pages/" + name + ".html")
	if err != nil {
		return Page{}, fmt.Errorf("loading builtin %s page: %w", name, err)
	}
	return Page{Body: body, Source: SourceBuiltin}, nil
}

// renderMarkdownPage converts a markdown document into a standalone HTML page.
// Raw HTML in the markdown is dropped by goldmark's default renderer.
func renderMarkdownPage(title string, src []byte) ([]byte, error) {
	var content bytes.Buffer
	if err := goldmark.New().Convert(src, &content); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(title))
	buf.Write(content.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

package httpserver

import (
	"bytes"
	"html/template"
	"io"
	"path/filepath"

	"github.com/go-pkgz/lgr"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const maxReadmeSize = 1 << 20

// newMarkdown renders README files. Raw HTML in the source is dropped.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// readme renders the README.md of dirAbs, "" if there is none.
func (s *Server) readme(dirAbs string) template.HTML {
	for _, cand := range []string{"README.md", "readme.md"} {
		p := filepath.Join(dirAbs, cand)
		st, err := s.fs.Stat(p)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		f, err := s.fs.Open(p)
		if err != nil {
			continue
		}
		src, err := io.ReadAll(io.LimitReader(f, maxReadmeSize))
		_ = f.Close()
		if err != nil {
			continue
		}
		var out bytes.Buffer
		if err := s.markdown.Convert(src, &out); err != nil {
			lgr.Printf("[WARN] render %s: %v", p, err)
			return ""
		}
		return template.HTML(out.String()) //nolint:gosec // goldmark escapes raw HTML unless WithUnsafe
	}
	return ""
}

// Package source loads documents to be read aloud from files, stdin or the
// clipboard.
package source

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/reflow/truncate"
	"gopkg.in/yaml.v3"
)

// maxTitleWidth bounds titles derived from the first line of a document.
const maxTitleWidth = 60

var markdownExtensions = []string{
	".md", ".mdown", ".mkdn", ".mkd", ".markdown",
}

// ErrEmpty is returned when a source contains no text.
var ErrEmpty = errors.New("source is empty")

// Document is loaded text plus the metadata used to track progress.
type Document struct {
	ID       string // SHA-256 of Text
	Title    string
	Path     string // Empty for stdin and the clipboard
	Text     string // Plain text handed to the engine
	Markdown bool
}

// Load resolves arg to a document. "-" reads stdin; anything else is a
// file path.
func Load(arg string) (Document, error) {
	if arg == "-" {
		return FromReader(os.Stdin, "")
	}
	return FromFile(arg)
}

// FromFile reads a document from disk. Markdown files are flattened to
// plain text.
func FromFile(path string) (Document, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return Document{}, fmt.Errorf("unable to expand path: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("unable to read file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, fmt.Errorf("unable to get absolute path: %w", err)
	}

	doc, err := newDocument(b, IsMarkdownFile(path))
	if err != nil {
		return Document{}, err
	}
	doc.Path = abs
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// FromReader reads a document from r. Content is treated as Markdown when
// name has a Markdown extension or, for unnamed input, when it looks like
// Markdown.
func FromReader(r io.Reader, name string) (Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("unable to read from reader: %w", err)
	}

	md := IsMarkdownFile(name)
	if name == "" {
		md = LooksLikeMarkdown(b)
	}
	return newDocument(b, md)
}

// FromClipboard reads a document from the system clipboard.
func FromClipboard() (Document, error) {
	if clipboard.Unsupported {
		return Document{}, errors.New("clipboard is not supported on this system")
	}
	s, err := clipboard.ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("unable to read clipboard: %w", err)
	}
	return FromReader(strings.NewReader(s), "")
}

// IsMarkdownFile returns whether path has a Markdown extension.
func IsMarkdownFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// LooksLikeMarkdown reports whether b starts with front matter or contains
// an ATX heading or fenced code block.
func LooksLikeMarkdown(b []byte) bool {
	if bytes.HasPrefix(b, []byte("---\n")) {
		return true
	}
	for _, line := range bytes.Split(b, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, []byte("# ")) || bytes.HasPrefix(line, []byte("## ")) ||
			bytes.HasPrefix(line, []byte("```")) {
			return true
		}
	}
	return false
}

// DocumentID returns the stable identifier of a text.
func DocumentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func newDocument(b []byte, markdown bool) (Document, error) {
	var (
		text  string
		title string
	)

	if markdown {
		body, fm := splitFrontmatter(b)
		title = fm.Title
		var heading string
		text, heading = MarkdownToText(body)
		if title == "" {
			title = heading
		}
	} else {
		text = strings.TrimSpace(strings.ReplaceAll(string(b), "\r\n", "\n"))
	}

	if strings.TrimSpace(text) == "" {
		return Document{}, ErrEmpty
	}
	if title == "" {
		title = firstLine(text)
	}

	return Document{
		ID:       DocumentID(text),
		Title:    truncate.StringWithTail(title, maxTitleWidth, "…"),
		Text:     text,
		Markdown: markdown,
	}, nil
}

type frontmatter struct {
	Title string `yaml:"title"`
}

// splitFrontmatter removes a leading YAML front matter block and returns
// its parsed title.
func splitFrontmatter(b []byte) ([]byte, frontmatter) {
	var fm frontmatter

	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(b, []byte("---\n")) {
		return b, fm
	}

	rest := b[4:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return b, fm
	}

	// Front matter that is not valid YAML is dropped without a title
	_ = yaml.Unmarshal(rest[:end], &fm)

	body := rest[end+4:]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return body, fm
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

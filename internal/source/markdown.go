package source

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var extraBreaks = regexp.MustCompile(`\n{3,}`)

// MarkdownToText renders Markdown as plain text suitable for the speech
// pipeline: headings and paragraphs become blank-line separated blocks,
// list items keep a "-" or "N." marker, and code, images and raw HTML are
// dropped. The text of the first heading is returned as well.
func MarkdownToText(src []byte) (string, string) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		sb       strings.Builder
		heading  strings.Builder
		inHead   bool
		firstH   = true
		counters []int // per nested list, -1 for bullets
	)

	write := func(s string) {
		sb.WriteString(s)
		if inHead && firstH {
			heading.WriteString(s)
		}
	}
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			write("\n")
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.Image, *ast.RawHTML:
			return ast.WalkSkipChildren, nil

		case *ast.AutoLink:
			if entering {
				write(string(n.Label(src)))
			}
			return ast.WalkSkipChildren, nil

		case *ast.Heading:
			if entering {
				inHead = true
			} else {
				inHead = false
				firstH = false
				write("\n\n")
			}

		case *ast.Paragraph:
			if !entering {
				write("\n\n")
			}

		case *ast.ThematicBreak:
			if entering {
				write("\n\n")
			}

		case *ast.List:
			if entering {
				newline()
				start := -1
				if n.IsOrdered() {
					start = n.Start
				}
				counters = append(counters, start)
			} else {
				counters = counters[:len(counters)-1]
				if len(counters) == 0 {
					write("\n")
				}
			}

		case *ast.ListItem:
			if len(counters) == 0 {
				break
			}
			top := len(counters) - 1
			if entering {
				if counters[top] < 0 {
					write("- ")
				} else {
					write(strconv.Itoa(counters[top]) + ". ")
					counters[top]++
				}
			} else {
				newline()
			}

		case *ast.Text:
			if !entering {
				break
			}
			write(string(n.Segment.Value(src)))
			if n.HardLineBreak() || n.SoftLineBreak() {
				write("\n")
			}

		case *ast.String:
			if entering {
				write(string(n.Value))
			}
		}
		return ast.WalkContinue, nil
	})

	out := extraBreaks.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out), strings.TrimSpace(heading.String())
}

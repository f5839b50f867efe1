// Package richtext handles editor bodies. The admin editor submits either a
// plain HTML string or its JSON document tree; both forms render to
// sanitized HTML for storage and delivery.
package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/vitrin-cms/server/internal/sanitize"
)

var ErrInvalidBody = errors.New("body must be an HTML string or a document object")

// Node is one node of an editor document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is inline formatting applied to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Body is a rich-text field. Exactly one of Source or Doc is set after
// unmarshaling a non-empty value.
type Body struct {
	Source string
	Doc    *Node
}

// FromHTML wraps an HTML string.
func FromHTML(s string) Body {
	return Body{Source: s}
}

// FromDoc parses stored document JSON; empty input yields a zero Body.
func FromDoc(raw []byte) (Body, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Body{}, nil
	}
	var node Node
	if err := json.Unmarshal(raw, &node); err != nil {
		return Body{}, fmt.Errorf("decode document: %w", err)
	}
	return Body{Doc: &node}, nil
}

func (b *Body) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*b = Body{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Body{Source: s}
		return nil
	case data[0] == '{':
		var node Node
		if err := json.Unmarshal(data, &node); err != nil {
			return err
		}
		if node.Type == "" {
			return ErrInvalidBody
		}
		*b = Body{Doc: &node}
		return nil
	default:
		return ErrInvalidBody
	}
}

func (b Body) MarshalJSON() ([]byte, error) {
	if b.Doc != nil {
		return json.Marshal(b.Doc)
	}
	return json.Marshal(b.Source)
}

// IsZero reports whether the body carries no content.
func (b Body) IsZero() bool {
	return b.Doc == nil && strings.TrimSpace(b.Source) == ""
}

// HTML renders the body and passes it through the rich-text policy.
func (b Body) HTML() string {
	if b.Doc != nil {
		return sanitize.HTML(Render(*b.Doc))
	}
	return sanitize.HTML(b.Source)
}

// DocJSON returns the document tree for storage, or nil for HTML bodies.
func (b Body) DocJSON() ([]byte, error) {
	if b.Doc == nil {
		return nil, nil
	}
	return json.Marshal(b.Doc)
}

// Render converts a document tree to HTML without sanitizing it.
func Render(node Node) string {
	var sb strings.Builder
	renderNode(&sb, node)
	return sb.String()
}

func renderNode(sb *strings.Builder, node Node) {
	switch node.Type {
	case "doc":
		renderChildren(sb, node)
	case "paragraph":
		wrap(sb, "p", node)
	case "heading":
		level := intAttr(node.Attrs, "level", 1)
		if level < 1 || level > 6 {
			level = 1
		}
		fmt.Fprintf(sb, "<h%d>", level)
		renderChildren(sb, node)
		fmt.Fprintf(sb, "</h%d>\n", level)
	case "bulletList":
		wrap(sb, "ul", node)
	case "orderedList":
		if start := intAttr(node.Attrs, "start", 1); start != 1 {
			fmt.Fprintf(sb, `<ol start="%d">`, start)
			renderChildren(sb, node)
			sb.WriteString("</ol>\n")
			return
		}
		wrap(sb, "ol", node)
	case "listItem":
		wrap(sb, "li", node)
	case "blockquote":
		wrap(sb, "blockquote", node)
	case "codeBlock":
		lang := stringAttr(node.Attrs, "language")
		if lang != "" {
			fmt.Fprintf(sb, `<pre><code class="language-%s">`, html.EscapeString(lang))
		} else {
			sb.WriteString("<pre><code>")
		}
		for _, child := range node.Content {
			sb.WriteString(html.EscapeString(child.Text))
		}
		sb.WriteString("</code></pre>\n")
	case "image":
		src := stringAttr(node.Attrs, "src")
		if src == "" {
			return
		}
		fmt.Fprintf(sb, `<img src="%s"`, html.EscapeString(src))
		if alt := stringAttr(node.Attrs, "alt"); alt != "" {
			fmt.Fprintf(sb, ` alt="%s"`, html.EscapeString(alt))
		}
		if title := stringAttr(node.Attrs, "title"); title != "" {
			fmt.Fprintf(sb, ` title="%s"`, html.EscapeString(title))
		}
		sb.WriteString(">")
	case "hardBreak":
		sb.WriteString("<br>")
	case "horizontalRule":
		sb.WriteString("<hr>\n")
	case "table":
		wrap(sb, "table", node)
	case "tableRow":
		wrap(sb, "tr", node)
	case "tableCell":
		wrap(sb, "td", node)
	case "tableHeader":
		wrap(sb, "th", node)
	case "text":
		sb.WriteString(renderText(node.Text, node.Marks))
	default:
		renderChildren(sb, node)
	}
}

func wrap(sb *strings.Builder, tag string, node Node) {
	sb.WriteString("<" + tag + ">")
	renderChildren(sb, node)
	sb.WriteString("</" + tag + ">")
	switch tag {
	case "p", "ul", "ol", "li", "blockquote", "table", "tr", "td", "th":
		sb.WriteString("\n")
	}
}

func renderChildren(sb *strings.Builder, node Node) {
	for _, child := range node.Content {
		renderNode(sb, child)
	}
}

// renderText applies marks from the innermost (last) to the outermost.
func renderText(text string, marks []Mark) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)
	for i := len(marks) - 1; i >= 0; i-- {
		mark := marks[i]
		switch mark.Type {
		case "bold":
			out = "<strong>" + out + "</strong>"
		case "italic":
			out = "<em>" + out + "</em>"
		case "underline":
			out = "<u>" + out + "</u>"
		case "strike":
			out = "<s>" + out + "</s>"
		case "code":
			out = "<code>" + out + "</code>"
		case "link":
			href := stringAttr(mark.Attrs, "href")
			if href == "" {
				continue
			}
			if stringAttr(mark.Attrs, "target") == "_blank" {
				out = fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, html.EscapeString(href), out)
			} else {
				out = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), out)
			}
		}
	}
	return out
}

func stringAttr(attrs map[string]any, key string) string {
	if v, ok := attrs[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func intAttr(attrs map[string]any, key string, fallback int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}

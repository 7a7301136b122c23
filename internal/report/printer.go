package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"appdocu/pkg"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-wordwrap"
)

// DefaultMaxPerLine is the width at which key/value text is wrapped.
const DefaultMaxPerLine = 80

// MismatchLine is printed in place of a bullet block whose row does not
// match its field list.
const MismatchLine = "❗ Error: The number of fields does not match the number of values in the current item."

// Colors styles the parts of a report. A nil func prints plain text.
type Colors struct {
	Title func(string, ...any) string
	Field func(string, ...any) string
	Error func(string, ...any) string
}

// NewColors returns the terminal palette.
func NewColors() *Colors {
	return &Colors{
		Title: enabled(color.New(color.FgCyan, color.Bold)),
		Field: enabled(color.New(color.FgYellow)),
		Error: enabled(color.New(color.FgRed)),
	}
}

// Printer renders report blocks as indented bullet text.
type Printer struct {
	w          io.Writer
	maxPerLine int
	colors     *Colors
	err        error
}

// Option configures a Printer.
type Option func(*Printer)

// WithMaxPerLine sets the wrap width of key/value values.
func WithMaxPerLine(n int) Option {
	return func(p *Printer) {
		if n > 0 {
			p.maxPerLine = n
		}
	}
}

// WithColors forces a palette. Passing nil disables colour.
func WithColors(c *Colors) Option {
	return func(p *Printer) { p.colors = c }
}

// NewPrinter writes plain text to w.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{w: w, maxPerLine: DefaultMaxPerLine}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTerminal writes to f, coloured when f is a terminal.
func NewTerminal(f *os.File, opts ...Option) *Printer {
	var colors *Colors
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		colors = NewColors()
	}
	return NewPrinter(f, append([]Option{WithColors(colors)}, opts...)...)
}

// Err returns the first write error.
func (p *Printer) Err() error {
	return p.err
}

// Title writes one heading line.
func (p *Printer) Title(title, spacer string) {
	p.line(spacer + p.paint(p.titleColor(), title))
}

// Bullets writes one block per row, pairing each value with its field name.
// A row whose length differs from fields is replaced by MismatchLine.
func (p *Printer) Bullets(rows [][]string, fields []string) {
	for _, row := range rows {
		if len(row) != len(fields) {
			p.line(p.paint(p.errorColor(), MismatchLine))
			continue
		}
		for i, field := range fields {
			p.line(fmt.Sprintf("   - %s: %s", p.paint(p.fieldColor(), field), row[i]))
		}
		p.line("")
	}
}

// KeyValues writes a titled block of key/value pairs. Values longer than
// the wrap width go on their own indented lines.
func (p *Printer) KeyValues(title, spacer string, kvs []pkg.KV) {
	if title != "" {
		p.line("")
		p.line(spacer + p.paint(p.titleColor(), title+":"))
	}
	for _, kv := range kvs {
		key := p.paint(p.fieldColor(), kv.Key)
		if utf8.RuneCountInString(kv.Value) <= p.maxPerLine {
			p.line(fmt.Sprintf("%s%s: %s", spacer, key, kv.Value))
			continue
		}
		p.line(fmt.Sprintf("%s%s:", spacer, key))
		for _, l := range strings.Split(wordwrap.WrapString(kv.Value, uint(p.maxPerLine)), "\n") {
			p.line(spacer + "    " + l)
		}
	}
	p.line("")
}

// Records writes a titled list of key/value records. Keys are capitalised.
func (p *Printer) Records(title string, records [][]pkg.KV) {
	if title != "" {
		p.line("")
		p.line(p.paint(p.titleColor(), title+":"))
	}
	for _, record := range records {
		for _, kv := range record {
			p.line(fmt.Sprintf("   - %s: %s", p.paint(p.fieldColor(), capitalize(kv.Key)), kv.Value))
		}
		p.line("")
	}
}

// ====================== Private Methods ======================

func (p *Printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s+"\n")
}

func (p *Printer) paint(f func(string, ...any) string, s string) string {
	if f == nil {
		return s
	}
	return f("%s", s)
}

func (p *Printer) titleColor() func(string, ...any) string {
	if p.colors == nil {
		return nil
	}
	return p.colors.Title
}

func (p *Printer) fieldColor() func(string, ...any) string {
	if p.colors == nil {
		return nil
	}
	return p.colors.Field
}

func (p *Printer) errorColor() func(string, ...any) string {
	if p.colors == nil {
		return nil
	}
	return p.colors.Error
}

func enabled(c *color.Color) func(string, ...any) string {
	c.EnableColor()
	return c.SprintfFunc()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

type palette struct {
	header  *color.Color
	name    *color.Color
	muted   *color.Color
	warning *color.Color
	error   *color.Color
}

func newPalette(colors bool) palette {
	p := palette{
		header:  color.New(color.Bold, color.FgCyan),
		name:    color.New(color.Bold),
		muted:   color.New(color.Faint),
		warning: color.New(color.FgYellow, color.Bold),
		error:   color.New(color.FgRed, color.Bold),
	}
	if !colors {
		for _, c := range []*color.Color{p.header, p.name, p.muted, p.warning, p.error} {
			c.DisableColor()
		}
	}
	return p
}

// Text writes doc for a terminal. Empty buckets are omitted.
func Text(w io.Writer, doc *Document, colors bool) error {
	p := newPalette(colors)
	tw := &textWriter{w: w}

	for _, b := range doc.Buckets {
		if len(b.Services) == 0 {
			continue
		}
		title := b.Lifetime
		if b.Keyed {
			title += " (keyed)"
		}
		tw.line(p.header.Sprint(title))
		for _, s := range b.Services {
			head := "  " + p.name.Sprint(s.Implementation)
			if s.Key != "" {
				head += " [" + s.Key + "]"
			}
			head += p.muted.Sprintf(" %s", s.Origin)
			if s.Location != "" {
				head += p.muted.Sprintf(" at %s", s.Location)
			}
			tw.line(head)

			names := make([]string, len(s.Aliases))
			for i, a := range s.Aliases {
				names[i] = a.Name
			}
			tw.line("    as " + strings.Join(names, ", "))
			tw.line("    new " + signature(s.Constructor))
		}
	}

	if len(doc.Diagnostics) > 0 {
		tw.line(p.header.Sprint("Diagnostics"))
		for _, d := range doc.Diagnostics {
			sev := p.warning
			if d.Severity == "error" {
				sev = p.error
			}
			text := "  " + sev.Sprintf("%s %s", d.Severity, d.Code) + ": " + d.Message
			if d.Location != "" {
				text += p.muted.Sprintf(" (%s)", d.Location)
			}
			tw.line(text)
			for _, loc := range d.Secondary {
				tw.line(p.muted.Sprintf("    also at %s", loc))
			}
		}
	}

	s := doc.Stats
	tw.line(p.muted.Sprintf("%d types, %d candidates, %d annotated, %d by convention, %d registrations",
		s.Types, s.Candidates, s.Annotated, s.Conventions, s.Entries))
	return tw.err
}

func signature(c Constructor) string {
	if c.Implicit || (c.Index < 0 && len(c.Parameters) == 0) {
		return "()"
	}
	parts := make([]string, len(c.Parameters))
	for i, p := range c.Parameters {
		parts[i] = p.Name + " " + p.Type
		if p.Key != "" {
			parts[i] += " [" + p.Key + "]"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) line(s string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintln(t.w, s)
}

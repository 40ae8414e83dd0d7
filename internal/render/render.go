// Package render formats stories and user profiles for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"hnwatch/internal/hn"
	"hnwatch/internal/reltime"
	"hnwatch/internal/story"
)

type Renderer struct {
	plain bool
	now   func() time.Time

	title lipgloss.Style
	host  lipgloss.Style
	meta  lipgloss.Style
	label lipgloss.Style
}

// New returns a renderer styled for out.
func New(out io.Writer) *Renderer {
	lr := lipgloss.NewRenderer(out)
	return &Renderer{
		now:   time.Now,
		title: lr.NewStyle().Bold(true),
		host:  lr.NewStyle().Foreground(lipgloss.Color("241")),
		meta:  lr.NewStyle().Foreground(lipgloss.Color("214")),
		label: lr.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// Plain returns a renderer that emits no escape sequences.
func Plain() *Renderer {
	return &Renderer{plain: true, now: time.Now}
}

func (r *Renderer) paint(st lipgloss.Style, s string) string {
	if r.plain {
		return s
	}
	return st.Render(s)
}

// Story renders s at 1-based position index:
//
//	 1. title - (hostname)
//	    score points by author age ago | N comments
func (r *Renderer) Story(index int, s story.Story) string {
	age := s.Age
	if !s.PostedAt.IsZero() {
		age = reltime.Since(s.PostedAt, r.now())
	}
	return fmt.Sprintf("%2d. %s - %s\n    %s\n",
		index,
		r.paint(r.title, s.Title),
		r.paint(r.host, "("+s.Hostname+")"),
		r.paint(r.meta, fmt.Sprintf("%d points by %s %s ago | %d comments", s.Score, s.By, age, s.Descendants)))
}

// Stories renders a whole category in ranking order.
func (r *Renderer) Stories(stories []story.Story) string {
	var b strings.Builder
	for i, s := range stories {
		b.WriteString(r.Story(i+1, s))
	}
	return b.String()
}

func (r *Renderer) User(u *hn.User) string {
	if u == nil {
		return "user not found\n"
	}
	created := time.Unix(u.Created, 0).UTC().Format("2006-01-02")
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.paint(r.label, "user:"), u.ID)
	fmt.Fprintf(&b, "%s %s (%s ago)\n", r.paint(r.label, "created:"), created, reltime.Since(time.Unix(u.Created, 0), r.now()))
	fmt.Fprintf(&b, "%s %d\n", r.paint(r.label, "karma:"), u.Karma)
	fmt.Fprintf(&b, "%s %s\n", r.paint(r.label, "about:"), u.About)
	return b.String()
}

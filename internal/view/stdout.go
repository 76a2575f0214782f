package view

import (
	"fmt"
	"hash/fnv"
	"io"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/waabox/unreleased/internal/domain"
)

const maxMessageLength = 80

var authorColors = []color.Attribute{
	color.FgBlue,
	color.FgCyan,
	color.FgHiBlue,
	color.FgHiCyan,
	color.FgGreen,
	color.FgMagenta,
}

// StdoutOptions controls terminal rendering.
type StdoutOptions struct {
	// Plain disables colors even when the terminal supports them.
	Plain bool
}

// RenderStdout writes one borderless table per commit log.
func RenderStdout(w io.Writer, logs []domain.CommitLog, reference time.Time, opts StdoutOptions) error {
	colored := !opts.Plain && !color.NoColor
	sha := paint(colored, color.FgHiBlack)
	date := paint(colored, color.FgYellow)

	for i, log := range logs {
		if _, err := fmt.Fprintf(w, "%s %s..%s\n\n", log.Repository.FullName(), log.BaseRef, log.HeadRef); err != nil {
			return err
		}

		if len(log.Commits) == 0 {
			if _, err := io.WriteString(w, " no commits\n\n"); err != nil {
				return err
			}
			continue
		}

		t := table.NewWriter()
		t.SetOutputMirror(w)
		style := table.StyleDefault
		style.Options = table.OptionsNoBordersAndSeparators
		t.SetStyle(style)
		for _, c := range log.Commits {
			author := paint(colored, authorColor(c.Author))
			t.AppendRow(table.Row{
				sha(c.ShortSHA()),
				truncate(c.Subject(), maxMessageLength),
				author(c.Author),
				date(humanizeSince(c.Date, reference)),
			})
		}
		t.Render()

		if i < len(logs)-1 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func paint(colored bool, attr color.Attribute) func(string) string {
	if !colored {
		return func(s string) string { return s }
	}
	c := color.New(attr)
	c.EnableColor()
	return func(s string) string { return c.Sprint(s) }
}

// authorColor picks a stable color for an author name.
func authorColor(name string) color.Attribute {
	h := fnv.New32a()
	h.Write([]byte(name))
	return authorColors[h.Sum32()%uint32(len(authorColors))]
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

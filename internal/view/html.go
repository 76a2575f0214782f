package view

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/waabox/unreleased/internal/domain"
)

//go:embed assets/template.html
var builtInTemplate string

const (
	timestampLayout  = "2006-01-02T15:04:05Z"
	commitDateLayout = "Jan _2, 2006"
)

// HTMLOptions controls document rendering.
type HTMLOptions struct {
	Title string
	// Template replaces the built-in template when non-empty.
	Template string
}

// HTMLData is the value passed to the HTML template.
type HTMLData struct {
	Title      string
	Timestamp  string
	CommitLogs []HTMLCommitLog
}

// HTMLCommitLog describes one repository in the HTML template.
type HTMLCommitLog struct {
	Repo    string
	BaseRef string
	HeadRef string
	// CompareURL is empty when there are no commits.
	CompareURL string
	Commits    []HTMLCommit
}

// HTMLCommit describes one commit in the HTML template.
type HTMLCommit struct {
	ShortSHA string
	HTMLURL  string
	Message  string
	Author   string
	Date     string
}

// RenderHTML executes the built-in or custom template against logs.
func RenderHTML(w io.Writer, logs []domain.CommitLog, now time.Time, opts HTMLOptions) error {
	src, name := builtInTemplate, "built-in HTML template"
	if opts.Template != "" {
		src, name = opts.Template, "HTML template"
	}

	tmpl, err := template.New("template.html").Parse(src)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if err := tmpl.Execute(w, BuildHTMLData(logs, opts.Title, now)); err != nil {
		return fmt.Errorf("failed to render HTML template: %w", err)
	}
	return nil
}

// BuildHTMLData converts commit logs into template data.
func BuildHTMLData(logs []domain.CommitLog, title string, now time.Time) HTMLData {
	data := HTMLData{
		Title:      title,
		Timestamp:  now.UTC().Format(timestampLayout),
		CommitLogs: make([]HTMLCommitLog, 0, len(logs)),
	}
	for _, log := range logs {
		entry := HTMLCommitLog{
			Repo:    log.Repository.FullName(),
			BaseRef: log.BaseRef,
			HeadRef: log.HeadRef,
			Commits: make([]HTMLCommit, 0, len(log.Commits)),
		}
		for _, c := range log.Commits {
			entry.Commits = append(entry.Commits, HTMLCommit{
				ShortSHA: c.ShortSHA(),
				HTMLURL:  c.HTMLURL,
				Message:  c.Subject(),
				Author:   c.Author,
				Date:     c.Date.Format(commitDateLayout),
			})
		}
		if len(entry.Commits) > 0 {
			entry.CompareURL = log.CompareURL
		}
		data.CommitLogs = append(data.CommitLogs, entry)
	}
	return data
}

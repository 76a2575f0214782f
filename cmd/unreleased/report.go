package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/waabox/unreleased/internal/auth"
	"github.com/waabox/unreleased/internal/config"
	"github.com/waabox/unreleased/internal/domain"
	githubprovider "github.com/waabox/unreleased/internal/provider/github"
	"github.com/waabox/unreleased/internal/service"
	"github.com/waabox/unreleased/internal/tui"
	"github.com/waabox/unreleased/internal/view"
)

const (
	progressAuto   = "auto"
	progressAlways = "always"
	progressNever  = "never"
)

type reportOptions struct {
	configPath   string
	filter       string
	glob         string
	outputFormat string
	stdoutPlain  bool
	htmlOutput   string
	htmlTitle    string
	htmlTemplate string
	progress     string
}

func (a *app) reportCommand() *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show unreleased commits for repos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.debug {
				return opts.printDebug(a.stdout)
			}
			return a.runReport(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config-path", "c", "", "Path to the config file (default "+config.DefaultConfigPath()+")")
	flags.StringVarP(&opts.filter, "filter", "f", "", "Regex to use for filtering repos")
	flags.StringVar(&opts.glob, "glob", "", "Glob to use for filtering repos, e.g. \"acme/*\"")
	flags.StringVarP(&opts.outputFormat, "output-format", "o", string(view.FormatStdout), "Output format (stdout, html)")
	flags.BoolVar(&opts.stdoutPlain, "stdout-plain", false, "Print output with no colors")
	flags.StringVar(&opts.htmlOutput, "html-output", "unreleased.html", "Path of the HTML file to write")
	flags.StringVar(&opts.htmlTitle, "html-title", "unreleased", "Title of the HTML report")
	flags.StringVar(&opts.htmlTemplate, "html-template", "", "Path to a custom HTML template")
	flags.StringVar(&opts.progress, "progress", progressAuto, "Show fetch progress on stderr (auto, always, never)")
	return cmd
}

func (a *app) runReport(cmd *cobra.Command, opts reportOptions) error {
	ctx := cmd.Context()

	format, err := view.ParseFormat(opts.outputFormat)
	if err != nil {
		return err
	}
	showProgress, err := a.progressEnabled(opts.progress)
	if err != nil {
		return err
	}
	var template string
	if format == view.FormatHTML && opts.htmlTemplate != "" {
		data, err := os.ReadFile(opts.htmlTemplate)
		if err != nil {
			return fmt.Errorf("failed to read HTML template from %q: %w", opts.htmlTemplate, err)
		}
		template = string(data)
	}

	filter, err := config.NewFilter(opts.filter, opts.glob)
	if err != nil {
		return err
	}

	path := opts.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("couldn't get config from file %q: %w", path, err)
	}
	repos, err := cfg.Repositories(filter)
	if err != nil {
		return fmt.Errorf("couldn't get config from file %q: %w", path, err)
	}
	a.logger.DebugContext(ctx, "loaded config", "path", path, "repos", len(repos))

	token, tokenSource, err := auth.NewResolver(
		auth.WithConfigToken(cfg.GitHub.Token),
		auth.WithGetenv(a.getenv),
		auth.WithRunner(a.runner),
		auth.WithLogger(a.logger),
	).Token(ctx)
	if err != nil {
		return err
	}

	source := githubprovider.NewAdapter(token, cfg.GitHub.APIURL,
		githubprovider.WithLogger(a.logger),
		githubprovider.WithUserAgent("unreleased/"+version),
	)
	fetchOpts := []service.Option{service.WithLogger(a.logger)}
	var progress *tui.Progress
	if showProgress && len(repos) > 0 {
		progress = tui.StartProgress(a.stderr, len(repos))
		fetchOpts = append(fetchOpts, service.WithProgress(progress.Report))
	}

	result := service.NewFetcher(source, fetchOpts...).Fetch(ctx, repos)
	if progress != nil {
		if err := progress.Stop(); err != nil {
			a.logger.WarnContext(ctx, "progress display failed", "error", err)
		}
	}
	if err := result.Err(); err != nil {
		if rejectedToken(result) {
			return fmt.Errorf("%w\n\nGitHub rejected the token from %s; %s", err, tokenSource, tokenHint(tokenSource, path))
		}
		return err
	}

	now := a.now()
	switch format {
	case view.FormatHTML:
		var buf bytes.Buffer
		if err := view.RenderHTML(&buf, result.Logs, now, view.HTMLOptions{Title: opts.htmlTitle, Template: template}); err != nil {
			return err
		}
		if err := os.WriteFile(opts.htmlOutput, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("couldn't write HTML output to %q: %w", opts.htmlOutput, err)
		}
		fmt.Fprintf(a.stderr, "wrote report to %s\n", opts.htmlOutput)
	default:
		return view.RenderStdout(a.stdout, result.Logs, now, view.StdoutOptions{Plain: opts.stdoutPlain})
	}
	return nil
}

// rejectedToken reports whether any repository failed with HTTP 401.
func rejectedToken(result service.Result) bool {
	for _, err := range result.Failures {
		if errors.Is(err, domain.ErrUnauthorized) {
			return true
		}
	}
	return false
}

func tokenHint(source auth.Source, configPath string) string {
	switch source {
	case auth.SourceEnv:
		return "check the value of " + auth.TokenEnvVar
	case auth.SourceConfig:
		return "check github.token in " + configPath
	}
	return `run "gh auth login" to refresh it`
}

func (a *app) progressEnabled(mode string) (bool, error) {
	switch mode {
	case progressAlways:
		return true, nil
	case progressNever:
		return false, nil
	case progressAuto:
		return a.terminal(a.stderr), nil
	}
	return false, fmt.Errorf("invalid progress mode %q (allowed: %s, %s, %s)", mode, progressAuto, progressAlways, progressNever)
}

func (o reportOptions) printDebug(w io.Writer) error {
	_, err := fmt.Fprintf(w, `DEBUG INFO

command:                report
config file path:       %s
repo filter:            %s
repo glob:              %s
output format:          %s
stdout plain:           %t
html output:            %s
html title:             %s
html template:          %s
progress:               %s
`,
		orNotProvided(o.configPath),
		orNotProvided(o.filter),
		orNotProvided(o.glob),
		o.outputFormat,
		o.stdoutPlain,
		o.htmlOutput,
		o.htmlTitle,
		orNotProvided(o.htmlTemplate),
		o.progress,
	)
	return err
}

func orNotProvided(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waabox/unreleased/internal/config"
	"github.com/waabox/unreleased/internal/domain"
	"github.com/waabox/unreleased/internal/git"
)

type addOptions struct {
	configPath          string
	headRef             string
	considerPrereleases bool
}

func (a *app) addCommand() *cobra.Command {
	var opts addOptions
	cmd := &cobra.Command{
		Use:   "add [DIR]",
		Short: "Add the GitHub repo of a local clone to the config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if a.debug {
				return opts.printDebug(a.stdout, dir, cmd)
			}
			return a.runAdd(cmd, dir, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config-path", "c", "", "Path to the config file (default "+config.DefaultConfigPath()+")")
	flags.StringVar(&opts.headRef, "head-ref", domain.DefaultHeadRef, "Branch to compare against the latest release")
	flags.BoolVar(&opts.considerPrereleases, "consider-prereleases", false, "Treat prereleases as releases")
	return cmd
}

func (a *app) runAdd(cmd *cobra.Command, dir string, opts addOptions) error {
	ctx := cmd.Context()

	remote, err := git.DetectRepository(dir)
	if err != nil {
		return err
	}

	raw := domain.RawRepository{Repo: remote.FullName()}
	if cmd.Flags().Changed("head-ref") {
		raw.HeadRef = &opts.headRef
	}
	if cmd.Flags().Changed("consider-prereleases") {
		raw.ConsiderPrereleases = &opts.considerPrereleases
	}
	repo, err := domain.NewRepository(raw)
	if err != nil {
		return fmt.Errorf("repo %q has errors:\n%s", raw.Repo, strings.TrimSuffix(err.Error(), "\n"))
	}

	path := opts.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("couldn't get config from file %q: %w", path, err)
	}
	for _, existing := range cfg.Repos {
		other, err := domain.NewRepository(existing)
		if err != nil {
			continue
		}
		if strings.EqualFold(other.FullName(), repo.FullName()) && other.HeadRef == repo.HeadRef {
			return fmt.Errorf("%s (head_ref %s) is already in %s", repo, repo.HeadRef, path)
		}
	}

	if err := config.AppendRepo(path, raw); err != nil {
		return err
	}
	a.logger.DebugContext(ctx, "appended repo", "repo", repo.FullName(), "remote", remote.URL, "path", path)
	fmt.Fprintf(a.stdout, "added %s to %s\n", repo, path)
	return nil
}

func (o addOptions) printDebug(w io.Writer, dir string, cmd *cobra.Command) error {
	headRef := notProvided
	if cmd.Flags().Changed("head-ref") {
		headRef = o.headRef
	}
	_, err := fmt.Fprintf(w, `DEBUG INFO

command:                add
directory:              %s
config file path:       %s
head ref:               %s
consider prereleases:   %t
`,
		dir,
		orNotProvided(o.configPath),
		headRef,
		o.considerPrereleases,
	)
	return err
}

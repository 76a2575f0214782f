package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/waabox/unreleased/internal/domain"
)

const (
	appDir   = "unreleased"
	fileName = "unreleased.toml"
)

// ErrNoMatch is returned when a filter was supplied and no configured repo matches it.
var ErrNoMatch = errors.New("no repos match the provided filter")

// GitHubConfig holds connection settings for GitHub.
type GitHubConfig struct {
	Token  string `toml:"token,omitempty"`
	APIURL string `toml:"api_url,omitempty"`
}

// Config holds all unreleased configuration.
type Config struct {
	GitHub GitHubConfig           `toml:"github"`
	Repos  []domain.RawRepository `toml:"repos"`
}

// DefaultConfigPath returns the default path for the unreleased config file.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appDir, fileName)
}

// LoadFrom reads configuration from the given TOML file path.
// Environment variables always take precedence over file values:
//   - UNRELEASED_GH_TOKEN   overrides github.token
//   - UNRELEASED_GH_API_URL overrides github.api_url
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("couldn't read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a TOML document and applies environment overrides.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("couldn't deserialize TOML: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UNRELEASED_GH_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("UNRELEASED_GH_API_URL"); v != "" {
		cfg.GitHub.APIURL = v
	}
}

// Repositories filters the configured entries and validates the survivors.
// Every defect of every entry is reported at once through *ValidationErrors.
// An entry identical to an earlier one, after defaults are applied, is a defect.
func (c Config) Repositories(filter Filter) ([]domain.Repository, error) {
	raws := c.Repos
	if filter.Active() {
		raws = nil
		for _, raw := range c.Repos {
			if filter.Match(raw.Repo) {
				raws = append(raws, raw)
			}
		}
		if len(raws) == 0 {
			return nil, ErrNoMatch
		}
	}

	repos := make([]domain.Repository, 0, len(raws))
	seen := make(map[domain.Repository]int, len(raws))
	var verrs ValidationErrors
	for i, raw := range raws {
		repo, err := domain.NewRepository(raw)
		if err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
			verrs.Entries = append(verrs.Entries, EntryError{Index: i, Err: verr})
			continue
		}
		if first, ok := seen[repo]; ok {
			verrs.Entries = append(verrs.Entries, EntryError{
				Index: i,
				Err:   &domain.ValidationError{Causes: []string{fmt.Sprintf("duplicate of repo #%d", first)}},
			})
			continue
		}
		seen[repo] = i
		repos = append(repos, repo)
	}
	if len(verrs.Entries) > 0 {
		return nil, &verrs
	}
	return repos, nil
}

// EntryError ties a validation failure to the position of the entry in the
// (filtered) repos list, counting from zero.
type EntryError struct {
	Index int
	Err   *domain.ValidationError
}

// ValidationErrors collects the validation failures of every invalid entry.
type ValidationErrors struct {
	Entries []EntryError
}

func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("config has errors:\n")
	for _, entry := range e.Entries {
		fmt.Fprintf(&sb, " - repo #%d has errors:\n", entry.Index)
		sb.WriteString(entry.Err.Error())
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Filter narrows the configured repos by their raw "owner/repo" string.
// A zero Filter matches everything.
type Filter struct {
	pattern *regexp.Regexp
	glob    string
}

// NewFilter compiles the optional regex and glob. Empty strings disable the
// corresponding check; when both are set an entry must match both.
func NewFilter(pattern, glob string) (Filter, error) {
	var f Filter
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid regex pattern provided: %w", err)
		}
		f.pattern = re
	}
	if glob != "" {
		if !doublestar.ValidatePattern(glob) {
			return Filter{}, fmt.Errorf("invalid glob pattern provided: %w", doublestar.ErrBadPattern)
		}
		f.glob = glob
	}
	return f, nil
}

// Active reports whether any filter was supplied.
func (f Filter) Active() bool {
	return f.pattern != nil || f.glob != ""
}

// Match reports whether repo passes every supplied filter.
func (f Filter) Match(repo string) bool {
	if f.pattern != nil && !f.pattern.MatchString(repo) {
		return false
	}
	if f.glob != "" {
		ok, err := doublestar.Match(f.glob, repo)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// AppendRepo adds raw as a new [[repos]] entry at the end of the config file at
// path, creating the file and its parent directories as needed. Existing
// contents, comments included, are preserved. The written file is 0600.
func AppendRepo(path string, raw domain.RawRepository) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("couldn't read file: %w", err)
	}

	var block bytes.Buffer
	if len(existing) > 0 {
		if !bytes.HasSuffix(existing, []byte("\n")) {
			block.WriteByte('\n')
		}
		block.WriteByte('\n')
	}
	entry := struct {
		Repos []domain.RawRepository `toml:"repos"`
	}{Repos: []domain.RawRepository{raw}}
	if err := toml.NewEncoder(&block).Encode(entry); err != nil {
		return fmt.Errorf("encoding repo entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if _, err := f.Write(block.Bytes()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

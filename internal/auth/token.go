package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// TokenEnvVar is checked first when looking up a GitHub token.
const TokenEnvVar = "UNRELEASED_GH_TOKEN"

// Source names where a token was found.
type Source string

const (
	SourceEnv    Source = "env"
	SourceConfig Source = "config"
	SourceGH     Source = "gh"
)

// Runner executes an external command and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Resolver finds a GitHub token by trying, in order, the environment, the
// config file and the GitHub CLI.
type Resolver struct {
	getenv      func(string) string
	run         Runner
	configToken string
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConfigToken sets the token read from the config file.
func WithConfigToken(token string) Option {
	return func(r *Resolver) {
		r.configToken = token
	}
}

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) Option {
	return func(r *Resolver) {
		r.getenv = fn
	}
}

// WithRunner replaces the command runner used for "gh auth token".
func WithRunner(run Runner) Option {
	return func(r *Resolver) {
		r.run = run
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		getenv: os.Getenv,
		run:    ExecRunner,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Token returns the first non-empty token in the lookup chain.
func (r *Resolver) Token(ctx context.Context) (string, Source, error) {
	if v := strings.TrimSpace(r.getenv(TokenEnvVar)); v != "" {
		r.logger.DebugContext(ctx, "using GitHub token", "source", SourceEnv)
		return v, SourceEnv, nil
	}
	if v := strings.TrimSpace(r.configToken); v != "" {
		r.logger.DebugContext(ctx, "using GitHub token", "source", SourceConfig)
		return v, SourceConfig, nil
	}

	token, err := r.fromGH(ctx)
	if err != nil {
		return "", "", &TokenError{Err: err}
	}
	r.logger.DebugContext(ctx, "using GitHub token", "source", SourceGH)
	return token, SourceGH, nil
}

func (r *Resolver) fromGH(ctx context.Context) (string, error) {
	stdout, stderr, err := r.run(ctx, "gh", "auth", "token")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf(`couldn't get token from "gh"; stderr: %s`, strings.TrimSpace(string(stderr)))
		}
		return "", fmt.Errorf(`couldn't get token from "gh": %w`, err)
	}
	token := strings.TrimSpace(string(stdout))
	if token == "" {
		return "", errors.New(`"gh auth token" printed an empty token`)
	}
	return token, nil
}

// TokenError is returned when no step of the lookup chain yields a token.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf(`couldn't get a GitHub authentication token

unreleased tries to get this token in the following order:
- Using the value of environment variable %s (this was not set)
- Using github.token from the config file (this was not set)
- Running "gh auth token" (this failed)

Make sure unreleased can get a token from one of these approaches, and that the token has
read access to code and metadata for the relevant repos.

Caused by: %v`, TokenEnvVar, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

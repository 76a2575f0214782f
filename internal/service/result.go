package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/waabox/unreleased/internal/domain"
)

// RepositoryError is a failure attributed to one repository.
type RepositoryError struct {
	Repository domain.Repository
	Err        error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Repository, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// SystemError is a failure of the fetch machinery itself, not tied to a repository.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system error: %v", e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// Result is the aggregate of one fetch run.
type Result struct {
	// Logs are sorted by repository owner, then name.
	Logs         []domain.CommitLog
	Failures     map[domain.Repository]error
	SystemErrors []error
}

// Failed reports whether any repository or system error was recorded.
func (r Result) Failed() bool {
	return len(r.Failures) > 0 || len(r.SystemErrors) > 0
}

// Err returns every recorded failure as a *FetchErrors, or nil.
func (r Result) Err() error {
	if !r.Failed() {
		return nil
	}
	repos := make([]domain.Repository, 0, len(r.Failures))
	for repo := range r.Failures {
		repos = append(repos, repo)
	}
	slices.SortFunc(repos, compareRepositories)

	errs := make([]error, 0, len(repos)+len(r.SystemErrors))
	for _, repo := range repos {
		errs = append(errs, &RepositoryError{Repository: repo, Err: r.Failures[repo]})
	}
	for _, err := range r.SystemErrors {
		errs = append(errs, &SystemError{Err: err})
	}
	return &FetchErrors{Errors: errs}
}

// FetchErrors enumerates every failure of a run, repositories first.
type FetchErrors struct {
	Errors []error
}

func (e *FetchErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("couldn't fetch commit logs for some repos:\n")
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, " - %v\n", err)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (e *FetchErrors) Unwrap() []error {
	return e.Errors
}

package service

import (
	"context"
	"fmt"

	"github.com/waabox/unreleased/internal/domain"
)

// Status is the kind of outcome produced for one repository.
type Status int

const (
	StatusProduced Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusProduced:
		return "produced"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of resolving a single repository.
type Outcome struct {
	Repository domain.Repository
	Status     Status
	Log        domain.CommitLog
	Err        error
}

// Resolve looks up the latest qualifying release of repo and fetches the
// commits since it. A repository without a qualifying release is skipped
// without issuing the comparison request.
func Resolve(ctx context.Context, source domain.ReleaseSource, repo domain.Repository) Outcome {
	release, ok, err := source.LatestRelease(ctx, repo)
	if err != nil {
		return Outcome{Repository: repo, Status: StatusFailed, Err: fmt.Errorf("couldn't get the latest release: %w", err)}
	}
	if !ok {
		return Outcome{Repository: repo, Status: StatusSkipped}
	}

	log, err := source.CompareCommits(ctx, repo, release.TagName, repo.HeadRef)
	if err != nil {
		return Outcome{Repository: repo, Status: StatusFailed, Err: fmt.Errorf("couldn't fetch commits: %w", err)}
	}
	return Outcome{Repository: repo, Status: StatusProduced, Log: log}
}

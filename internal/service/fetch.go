package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/semaphore"

	"github.com/waabox/unreleased/internal/domain"
)

// DefaultConcurrencyLimit caps how many repositories are resolved at once.
const DefaultConcurrencyLimit = 20

// Progress is reported after each repository finishes.
type Progress struct {
	Repository domain.Repository
	Status     Status
	Done       int
	Total      int
}

// Fetcher resolves many repositories against one ReleaseSource.
type Fetcher struct {
	source     domain.ReleaseSource
	limit      int64
	logger     *slog.Logger
	onProgress func(Progress)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrencyLimit sets the maximum number of repositories resolved at once.
// Values below 1 are ignored.
func WithConcurrencyLimit(limit int) Option {
	return func(f *Fetcher) {
		if limit > 0 {
			f.limit = int64(limit)
		}
	}
}

// WithLogger sets the logger for per-repository tracing.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithProgress registers a callback invoked once per finished repository.
// Calls are made sequentially from a single goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(f *Fetcher) {
		f.onProgress = fn
	}
}

// NewFetcher creates a Fetcher backed by source.
func NewFetcher(source domain.ReleaseSource, opts ...Option) *Fetcher {
	f := &Fetcher{
		source: source,
		limit:  DefaultConcurrencyLimit,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves every repository and aggregates the outcomes. It never fails
// itself: repository and system failures are recorded in the Result, and one
// repository's failure does not stop the others.
func (f *Fetcher) Fetch(ctx context.Context, repos []domain.Repository) Result {
	sem := semaphore.NewWeighted(f.limit)
	outcomes := make(chan taskOutcome, len(repos))

	for _, repo := range repos {
		go func() {
			outcomes <- f.runTask(ctx, sem, repo)
		}()
	}

	result := Result{Failures: make(map[domain.Repository]error)}
	var logs []domain.CommitLog

	for done := 1; done <= len(repos); done++ {
		o := <-outcomes
		switch {
		case o.system != nil:
			f.logger.ErrorContext(ctx, "fetch task crashed", "repo", o.Repository.FullName(), "error", o.system)
			result.SystemErrors = append(result.SystemErrors, o.system)
		case o.Status == StatusFailed:
			f.logger.WarnContext(ctx, "couldn't fetch commit log", "repo", o.Repository.FullName(), "error", o.Err)
			result.Failures[o.Repository] = o.Err
		case o.Status == StatusSkipped:
			f.logger.DebugContext(ctx, "no qualifying release", "repo", o.Repository.FullName())
		default:
			f.logger.DebugContext(ctx, "fetched commit log", "repo", o.Repository.FullName(), "base", o.Log.BaseRef, "head", o.Log.HeadRef, "commits", len(o.Log.Commits))
			logs = append(logs, o.Log)
		}

		if f.onProgress != nil {
			status := o.Status
			if o.system != nil {
				status = StatusFailed
			}
			f.onProgress(Progress{Repository: o.Repository, Status: status, Done: done, Total: len(repos)})
		}
	}

	slices.SortFunc(logs, func(a, b domain.CommitLog) int {
		return compareRepositories(a.Repository, b.Repository)
	})
	result.Logs = logs
	return result
}

type taskOutcome struct {
	Outcome
	system error
}

// runTask waits for a slot, then resolves repo. A panic inside the resolution
// is reported as a system error rather than tearing down the process.
func (f *Fetcher) runTask(ctx context.Context, sem *semaphore.Weighted, repo domain.Repository) (out taskOutcome) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return taskOutcome{Outcome: Outcome{
			Repository: repo,
			Status:     StatusFailed,
			Err:        fmt.Errorf("couldn't acquire a fetch slot: %w", err),
		}}
	}
	defer sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			out = taskOutcome{
				Outcome: Outcome{Repository: repo, Status: StatusFailed},
				system:  fmt.Errorf("task for %s panicked: %v", repo, r),
			}
		}
	}()

	f.logger.DebugContext(ctx, "resolving repository", "repo", repo.FullName(), "head", repo.HeadRef)
	return taskOutcome{Outcome: Resolve(ctx, f.source, repo)}
}

func compareRepositories(a, b domain.Repository) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return cmp.Compare(a.HeadRef, b.HeadRef)
}

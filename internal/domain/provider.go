package domain

import "context"

// ReleaseSource is the port the retrieval service uses to talk to a code host.
// Implementations must be safe for concurrent use.
type ReleaseSource interface {
	// LatestRelease returns the newest release allowed by repo.ConsiderPrereleases.
	// The boolean is false when the repository has no qualifying release.
	LatestRelease(ctx context.Context, repo Repository) (Release, bool, error)
	// CompareCommits returns the commits in base...head, oldest first.
	CompareCommits(ctx context.Context, repo Repository, base, head string) (CommitLog, error)
}

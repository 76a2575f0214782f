package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/waabox/unreleased/internal/domain"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	apiVersion  = "2022-11-28"
	contentType = "application/vnd.github+json"
)

// Adapter implements domain.ReleaseSource for the GitHub REST API.
type Adapter struct {
	token     string
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

// Ensure Adapter implements ReleaseSource.
var _ domain.ReleaseSource = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.client = c
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// WithUserAgent overrides the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(a *Adapter) {
		a.userAgent = ua
	}
}

// NewAdapter creates a GitHub adapter.
// baseURL is used for testing and GitHub Enterprise; pass empty string to use the public API.
// The default client has no timeout of its own; callers bound requests through the context.
func NewAdapter(token string, baseURL string, opts ...Option) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	a := &Adapter{
		token:     token,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "unreleased",
		client:    &http.Client{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LatestRelease lists the repository's releases and returns the first one the
// repository's prerelease policy accepts.
func (a *Adapter) LatestRelease(ctx context.Context, repo domain.Repository) (domain.Release, bool, error) {
	var raw []release
	if err := a.get(ctx, a.repoURL(repo, "releases"), &raw); err != nil {
		return domain.Release{}, false, err
	}
	releases := make([]domain.Release, len(raw))
	for i, r := range raw {
		releases[i] = r.toRelease()
	}
	r, ok := domain.SelectRelease(releases, repo.ConsiderPrereleases)
	return r, ok, nil
}

// CompareCommits fetches base...head. GitHub lists the commits newest first;
// they are returned oldest first.
func (a *Adapter) CompareCommits(ctx context.Context, repo domain.Repository, base, head string) (domain.CommitLog, error) {
	var result comparison
	if err := a.get(ctx, a.repoURL(repo, "compare", escapeRef(base)+"..."+escapeRef(head)), &result); err != nil {
		return domain.CommitLog{}, err
	}

	commits := make([]domain.Commit, len(result.Commits))
	for i, c := range result.Commits {
		commits[i] = c.toCommit()
	}
	slices.Reverse(commits)

	return domain.CommitLog{
		Repository: repo,
		BaseRef:    base,
		HeadRef:    head,
		Commits:    commits,
		CompareURL: result.HTMLURL,
	}, nil
}

// repoURL joins escaped path segments under /repos/{owner}/{name}.
func (a *Adapter) repoURL(repo domain.Repository, segments ...string) string {
	var b strings.Builder
	b.WriteString(a.baseURL)
	b.WriteString("/repos/")
	b.WriteString(url.PathEscape(repo.Owner))
	b.WriteString("/")
	b.WriteString(url.PathEscape(repo.Name))
	for _, s := range segments {
		b.WriteString("/")
		b.WriteString(s)
	}
	return b.String()
}

// escapeRef escapes a git ref for use in a URL path, keeping "/" separators
// so refs like release/1.x reach the API unchanged.
func escapeRef(ref string) string {
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (a *Adapter) get(ctx context.Context, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &RemoteError{URL: endpoint, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", contentType)
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", a.userAgent)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return &RemoteError{URL: endpoint, Err: fmt.Errorf("failed to send request to GitHub API: %w", err)}
	}
	defer resp.Body.Close()

	a.logger.DebugContext(ctx, "github request", "method", req.Method, "url", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := &RemoteError{URL: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
		if body, readErr := io.ReadAll(resp.Body); readErr == nil {
			rerr.Body = strings.TrimSpace(string(body))
		}
		return rerr
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &RemoteError{URL: endpoint, StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("failed to parse GitHub API response: %w", err)}
	}
	return nil
}

// release is the raw GitHub API response shape for a release.
type release struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
}

func (r release) toRelease() domain.Release {
	return domain.Release{TagName: r.TagName, Prerelease: r.Prerelease}
}

// comparison is the raw GitHub API response shape for a compare request.
type comparison struct {
	HTMLURL string   `json:"html_url"`
	Commits []commit `json:"commits"`
}

// commit is the raw GitHub API response shape for a commit within a comparison.
type commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (c commit) toCommit() domain.Commit {
	return domain.Commit{
		SHA:     c.SHA,
		Message: c.Commit.Message,
		Author:  c.Commit.Author.Name,
		Date:    c.Commit.Author.Date,
		HTMLURL: c.HTMLURL,
	}
}

package git

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// OriginRemote is the remote consulted when detecting a repository.
const OriginRemote = "origin"

// Remote is a GitHub repository identified from a git remote URL.
type Remote struct {
	Owner string
	Name  string
	// URL preserves the original remote URL unchanged.
	URL string
}

// FullName returns "owner/name".
func (r Remote) FullName() string {
	return r.Owner + "/" + r.Name
}

// DetectRepository opens the git repository containing dir (searching parent
// directories like git does) and parses the URL of its origin remote.
func DetectRepository(dir string) (Remote, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Remote{}, fmt.Errorf("could not open git repository at %q: %w", dir, err)
	}

	remote, err := repo.Remote(OriginRemote)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return Remote{}, fmt.Errorf("no %s remote found in %q", OriginRemote, dir)
		}
		return Remote{}, fmt.Errorf("reading %s remote: %w", OriginRemote, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return Remote{}, fmt.Errorf("%s remote has no URL", OriginRemote)
	}
	return ParseRemoteURL(urls[0])
}

// ParseRemoteURL parses a git remote URL and returns its owner and name.
// Supports HTTPS (https://github.com/owner/repo.git), scp-like SSH
// (git@github.com:owner/repo.git) and ssh:// URLs.
func ParseRemoteURL(rawURL string) (Remote, error) {
	normalized := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(rawURL), "/"), ".git")

	var path string
	switch {
	case strings.HasPrefix(normalized, "https://"), strings.HasPrefix(normalized, "http://"), strings.HasPrefix(normalized, "ssh://"):
		_, rest, _ := strings.Cut(normalized, "://")
		_, p, found := strings.Cut(rest, "/")
		if !found {
			return Remote{}, fmt.Errorf("invalid remote URL: %s", rawURL)
		}
		path = p
	case strings.Contains(normalized, "@") && strings.Contains(normalized, ":"):
		// scp-like: git@github.com:owner/repo
		_, p, _ := strings.Cut(normalized, ":")
		path = p
	default:
		return Remote{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
	}

	owner, name, found := strings.Cut(path, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return Remote{}, fmt.Errorf("remote URL path is not owner/repo: %s", rawURL)
	}
	return Remote{Owner: owner, Name: name, URL: rawURL}, nil
}

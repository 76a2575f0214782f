package domain

import (
	"strings"
	"time"
)

const shortSHALength = 7

// Commit is a single commit between a release tag and the tracked branch.
type Commit struct {
	SHA     string
	Message string
	Author  string
	Date    time.Time
	HTMLURL string
}

// ShortSHA returns the abbreviated commit hash.
func (c Commit) ShortSHA() string {
	if len(c.SHA) <= shortSHALength {
		return c.SHA
	}
	return c.SHA[:shortSHALength]
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return strings.TrimRight(c.Message[:i], "\r")
	}
	return c.Message
}

// CommitLog holds the commits on HeadRef since BaseRef, oldest first.
type CommitLog struct {
	Repository Repository
	BaseRef    string
	HeadRef    string
	Commits    []Commit
	CompareURL string
}

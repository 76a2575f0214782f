package domain

import (
	"fmt"
	"strings"
)

// DefaultHeadRef is the ref compared against the latest release when an entry does not set one.
const DefaultHeadRef = "main"

// Validation messages reported by NewRepository.
const (
	msgRepoEmpty     = "repo is empty"
	msgRepoFormat    = `repo needs to be in the format "owner/repo"`
	msgOwnerEmpty    = "owner is empty"
	msgNameEmpty     = "repo name is empty"
	msgHeadRefEmpty  = "head_ref is empty"
	ownerNameDivider = "/"
)

// RawRepository is a repository entry as it appears in the configuration file,
// before validation.
type RawRepository struct {
	Repo                string  `toml:"repo"`
	HeadRef             *string `toml:"head_ref,omitempty"`
	ConsiderPrereleases *bool   `toml:"consider_prereleases,omitempty"`
}

// Repository identifies a GitHub repository to report on.
// Values are built once by NewRepository and never mutated afterwards.
type Repository struct {
	Owner               string
	Name                string
	HeadRef             string
	ConsiderPrereleases bool
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + ownerNameDivider + r.Name
}

func (r Repository) String() string {
	return r.FullName()
}

// Compare orders repositories by owner, then name.
func (r Repository) Compare(other Repository) int {
	if c := strings.Compare(r.Owner, other.Owner); c != 0 {
		return c
	}
	return strings.Compare(r.Name, other.Name)
}

// ValidationError lists every problem found in a single repository entry.
type ValidationError struct {
	Causes []string
}

func (e *ValidationError) add(cause string) {
	e.Causes = append(e.Causes, cause)
}

// Has reports whether cause is among the recorded problems.
func (e *ValidationError) Has(cause string) bool {
	for _, c := range e.Causes {
		if c == cause {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	for _, c := range e.Causes {
		fmt.Fprintf(&sb, "   - %s\n", c)
	}
	return sb.String()
}

// NewRepository validates raw and converts it into a Repository.
// All checks run even after one fails, so the returned *ValidationError
// carries every defect of the entry.
func NewRepository(raw RawRepository) (Repository, error) {
	verr := &ValidationError{}

	var owner, name string
	trimmed := strings.TrimSpace(raw.Repo)
	o, n, found := strings.Cut(trimmed, ownerNameDivider)
	o, n = strings.TrimSpace(o), strings.TrimSpace(n)
	switch {
	case trimmed == "" || (found && o == "" && n == ""):
		verr.add(msgRepoEmpty)
	case !found || strings.Contains(n, ownerNameDivider):
		verr.add(msgRepoFormat)
	default:
		if o == "" {
			verr.add(msgOwnerEmpty)
		}
		if n == "" {
			verr.add(msgNameEmpty)
		}
		owner, name = o, n
	}

	headRef := DefaultHeadRef
	if raw.HeadRef != nil {
		headRef = strings.TrimSpace(*raw.HeadRef)
		if headRef == "" {
			verr.add(msgHeadRefEmpty)
		}
	}

	if len(verr.Causes) > 0 {
		return Repository{}, verr
	}

	considerPrereleases := false
	if raw.ConsiderPrereleases != nil {
		considerPrereleases = *raw.ConsiderPrereleases
	}

	return Repository{
		Owner:               owner,
		Name:                name,
		HeadRef:             headRef,
		ConsiderPrereleases: considerPrereleases,
	}, nil
}

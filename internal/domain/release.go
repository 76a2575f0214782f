package domain

// Release is an entry of a repository's release listing.
type Release struct {
	TagName    string
	Prerelease bool
}

// SelectRelease returns the first release in listing order that satisfies the
// prerelease policy. The listing is expected newest first and is not re-sorted.
func SelectRelease(releases []Release, considerPrereleases bool) (Release, bool) {
	for _, r := range releases {
		if r.Prerelease && !considerPrereleases {
			continue
		}
		return r, true
	}
	return Release{}, false
}

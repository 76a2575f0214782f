package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waabox/unreleased/internal/domain"
)

func TestSelectRelease_PrereleasePolicy(t *testing.T) {
	releases := []domain.Release{
		{TagName: "v2", Prerelease: true},
		{TagName: "v1", Prerelease: false},
	}

	stable, ok := domain.SelectRelease(releases, false)
	assert.True(t, ok)
	assert.Equal(t, "v1", stable.TagName)

	pre, ok := domain.SelectRelease(releases, true)
	assert.True(t, ok)
	assert.Equal(t, "v2", pre.TagName)
}

func TestSelectRelease_NoQualifyingRelease(t *testing.T) {
	_, ok := domain.SelectRelease(nil, false)
	assert.False(t, ok)

	_, ok = domain.SelectRelease([]domain.Release{{TagName: "v1-rc1", Prerelease: true}}, false)
	assert.False(t, ok)
}

func TestSelectRelease_KeepsListingOrder(t *testing.T) {
	releases := []domain.Release{{TagName: "v1.0.0"}, {TagName: "v3.0.0"}}

	r, ok := domain.SelectRelease(releases, false)
	assert.True(t, ok)
	assert.Equal(t, "v1.0.0", r.TagName)
}

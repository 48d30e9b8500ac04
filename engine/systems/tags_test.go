package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/core"
)

func sortedTags(names ...string) []core.NameHash {
	tags := make([]core.NameHash, 0, len(names))
	for _, name := range names {
		tags = append(tags, core.HashName(name))
	}
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j] < tags[j-1]; j-- {
			tags[j], tags[j-1] = tags[j-1], tags[j]
		}
	}
	return tags
}

func TestTagRegistryRegisterIsStable(t *testing.T) {
	registry := NewTagRegistry()
	tags := sortedTags("model", "opaque", "shadow_caster")

	first := registry.Register(tags)
	second := registry.Register(tags)

	require.NotZero(t, first)
	assert.Equal(t, first, second)
}

func TestTagRegistryLookupRoundtrip(t *testing.T) {
	registry := NewTagRegistry()
	tags := sortedTags("particle", "transparent")

	key := registry.Register(tags)
	got := registry.Lookup(key)

	assert.Equal(t, tags, got)
}

func TestTagRegistryLookupUnknownKeyIsEmpty(t *testing.T) {
	registry := NewTagRegistry()

	assert.Empty(t, registry.Lookup(0xDEADBEEF))
}

func TestTagRegistryRegisterKeepsExistingEntry(t *testing.T) {
	registry := NewTagRegistry()
	tags := sortedTags("debug", "gui")

	key := registry.Register(tags)
	registry.Register(tags)

	got := registry.Lookup(key)
	assert.Equal(t, tags, got)
}

func TestTagRegistryRejectsOversizedList(t *testing.T) {
	registry := NewTagRegistry()
	tags := make([]core.NameHash, MaxMaterialTagCount+1)
	for i := range tags {
		tags[i] = core.NameHash(i + 1)
	}

	assert.Zero(t, registry.Register(tags))
}

func TestMatchTagsSubset(t *testing.T) {
	materialTags := []core.NameHash{1, 3, 5}

	assert.True(t, MatchTags(materialTags, []core.NameHash{3, 5}))
	assert.True(t, MatchTags(materialTags, []core.NameHash{1}))
	assert.True(t, MatchTags(materialTags, []core.NameHash{1, 3, 5}))
}

func TestMatchTagsRequiresAscendingQuery(t *testing.T) {
	materialTags := []core.NameHash{1, 3, 5}

	// The cursor only moves forward, so a query sorted the wrong way around
	// cannot revisit earlier material tags.
	assert.False(t, MatchTags(materialTags, []core.NameHash{5, 3}))
}

func TestMatchTagsEmptyQueryNeverMatches(t *testing.T) {
	assert.False(t, MatchTags([]core.NameHash{1, 3, 5}, nil))
	assert.False(t, MatchTags(nil, nil))
}

func TestMatchTagsMissingTag(t *testing.T) {
	materialTags := []core.NameHash{2, 4}

	assert.False(t, MatchTags(materialTags, []core.NameHash{2, 3}))
	assert.False(t, MatchTags(nil, []core.NameHash{2}))
}

func TestMatchTagsDuplicateQueryTagCannotRematch(t *testing.T) {
	materialTags := []core.NameHash{7}

	// The second occurrence would have to match at or after index 1.
	assert.False(t, MatchTags(materialTags, []core.NameHash{7, 7}))
}

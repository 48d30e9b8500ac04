package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashNameMatchesPublishedVectors(t *testing.T) {
	// FNV-1a 64-bit reference values.
	assert.Equal(t, NameHash(0xcbf29ce484222325), HashName(""))
	assert.Equal(t, NameHash(0xaf63dc4c8601ec8c), HashName("a"))
	assert.Equal(t, NameHash(0x85944171f73967e8), HashName("foobar"))
}

func TestHashNameStable(t *testing.T) {
	first := HashName("diffuse_colour")
	assert.Equal(t, first, HashName("diffuse_colour"))
	assert.NotEqual(t, first, HashName("diffuse_texture"))
	assert.NotEqual(t, InvalidNameHash, first)
}

func TestNameOfReturnsHashedString(t *testing.T) {
	h := HashName("projection")
	assert.Equal(t, "projection", NameOf(h))
	assert.Equal(t, "", NameOf(NameHash(12345)))
}

func TestHashBuffer32MatchesPublishedVectors(t *testing.T) {
	// FNV-1a 32-bit reference values.
	assert.Equal(t, uint32(0x811c9dc5), HashBuffer32(nil))
	assert.Equal(t, uint32(0xe40c292c), HashBuffer32([]byte("a")))
	assert.Equal(t, uint32(0xbf9cf968), HashBuffer32([]byte("foobar")))
}

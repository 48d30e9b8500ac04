package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetIdentifiers(t *testing.T) {
	t.Helper()
	Owners = nil
	t.Cleanup(func() { Owners = nil })
}

func TestIdentifierAcquireAssignsLowestFreeSlot(t *testing.T) {
	resetIdentifiers(t)

	ownerA := &struct{ name string }{"a"}
	ownerB := &struct{ name string }{"b"}

	assert.Equal(t, uint32(0), IdentifierAcquireNewID(ownerA))
	assert.Equal(t, uint32(1), IdentifierAcquireNewID(ownerB))

	require.NoError(t, IdentifierReleaseID(0))
	// Freed slots are reused before the pool grows.
	assert.Equal(t, uint32(0), IdentifierAcquireNewID(ownerA))
}

func TestIdentifierPoolGrowsWhenExhausted(t *testing.T) {
	resetIdentifiers(t)

	var last uint32
	for i := 0; i < 101; i++ {
		last = IdentifierAcquireNewID(struct{}{})
	}
	assert.Equal(t, uint32(100), last)
}

func TestIdentifierReleaseOutOfRange(t *testing.T) {
	resetIdentifiers(t)

	assert.Error(t, IdentifierReleaseID(0))

	IdentifierAcquireNewID(struct{}{})
	assert.Error(t, IdentifierReleaseID(4096))
}

func TestGenerateResourceNameIsUnique(t *testing.T) {
	a := GenerateResourceName("rendertarget")
	b := GenerateResourceName("rendertarget")

	assert.True(t, strings.HasPrefix(a, "rendertarget."))
	assert.NotEqual(t, a, b)
}

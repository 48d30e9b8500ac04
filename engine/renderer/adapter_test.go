package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	RendererBackend
	name string
}

func (s *stubBackend) Name() string { return s.name }

func factoryFor(name string) AdapterFactory {
	return func() RendererBackend { return &stubBackend{name: name} }
}

func TestAdapterRegistryPriorityOrder(t *testing.T) {
	registry := NewAdapterRegistry()
	registry.Register("null", 0, factoryFor("null"))
	registry.Register("vulkan", 100, factoryFor("vulkan"))
	registry.Register("headless", 50, factoryFor("headless"))

	assert.Equal(t, []string{"vulkan", "headless", "null"}, registry.Available())

	backend := registry.Default()
	require.NotNil(t, backend)
	assert.Equal(t, "vulkan", backend.Name())
}

func TestAdapterRegistryGetByName(t *testing.T) {
	registry := NewAdapterRegistry()
	registry.Register("headless", 50, factoryFor("headless"))

	backend := registry.Get("headless")
	require.NotNil(t, backend)
	assert.Equal(t, "headless", backend.Name())

	assert.Nil(t, registry.Get("unknown"))
}

func TestAdapterRegistryReplaceAndUnregister(t *testing.T) {
	registry := NewAdapterRegistry()
	registry.Register("headless", 10, factoryFor("first"))
	registry.Register("headless", 90, factoryFor("second"))

	require.Equal(t, []string{"headless"}, registry.Available())
	assert.Equal(t, "second", registry.Get("headless").Name())

	registry.Unregister("headless")
	assert.Empty(t, registry.Available())
	assert.Nil(t, registry.Default())
}

func TestAdapterRegistryEmptyDefault(t *testing.T) {
	registry := NewAdapterRegistry()
	assert.Nil(t, registry.Default())
}

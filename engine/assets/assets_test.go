package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

func newTestAssetManager(t *testing.T, root string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(root))
	t.Cleanup(func() { am.Shutdown() })
	return am
}

func TestAssetNameFromPath(t *testing.T) {
	cases := map[string]string{
		"materials/brick.material.toml":          "brick",
		"shaders/simple.shader.toml":             "simple",
		"shaders/Shader.Builtin.World.vert.glsl": "Shader.Builtin.World",
		"shaders/Shader.Builtin.World.frag.glsl": "Shader.Builtin.World",
		"textures/stone_wall.png":                "stone_wall",
		"textures/stone_wall.jpg":                "stone_wall",
		"fonts/vector.fnt":                       "vector",
		"notes/readme":                           "readme",
	}
	for path, want := range cases {
		assert.Equal(t, want, assetNameFromPath(path), "path %s", path)
	}
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, metadata.ResourceTypeMaterial, determineAssetType("a/brick.material.toml"))
	assert.Equal(t, metadata.ResourceTypeShader, determineAssetType("a/world.shader.toml"))
	assert.Equal(t, metadata.ResourceTypeShader, determineAssetType("a/world.vert.glsl"))
	assert.Equal(t, metadata.ResourceTypeImage, determineAssetType("a/wall.png"))
	assert.Equal(t, metadata.ResourceTypeBitmapFont, determineAssetType("a/vector.fnt"))
	assert.Equal(t, metadata.ResourceTypeNone, determineAssetType("a/readme.md"))
}

func TestLoadAssetResolvesTypedPath(t *testing.T) {
	root := t.TempDir()
	materialDir := filepath.Join(root, "materials")
	require.NoError(t, os.MkdirAll(materialDir, 0o755))

	definition := "name = \"brick\"\nshader = \"Shader.Builtin.World\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(materialDir, "brick.material.toml"), []byte(definition), 0o644))

	am := newTestAssetManager(t, root)

	resource, err := am.LoadAsset("brick", metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	require.NotNil(t, resource)
	assert.Equal(t, metadata.ResourceTypeMaterial, resource.Type)
	assert.Equal(t, filepath.Join(materialDir, "brick.material.toml"), resource.FullPath)

	require.NoError(t, am.UnloadAsset(resource))
}

func TestLoadAssetBinaryReadsRawBytes(t *testing.T) {
	root := t.TempDir()
	payload := []byte{0x01, 0x02, 0x03, 0xFF}
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), payload, 0o644))

	am := newTestAssetManager(t, root)

	// Binary assets resolve relative to the asset root with no typed subdirectory.
	resource, err := am.LoadAsset("blob.bin", metadata.ResourceTypeBinary, nil)
	require.NoError(t, err)
	assert.Equal(t, "blob", resource.Name)
	assert.Equal(t, uint64(len(payload)), resource.DataSize)
	assert.Equal(t, payload, resource.Data)

	require.NoError(t, am.UnloadAsset(resource))
	assert.Nil(t, resource.Data)
}

func TestLoadAssetMissingFile(t *testing.T) {
	am := newTestAssetManager(t, t.TempDir())
	_, err := am.LoadAsset("missing", metadata.ResourceTypeMaterial, nil)
	assert.Error(t, err)
}

func TestLoadAssetUnknownType(t *testing.T) {
	am := newTestAssetManager(t, t.TempDir())
	_, err := am.LoadAsset("anything", metadata.ResourceType(99), nil)
	assert.Error(t, err)
}

func TestUnloadAssetNilResource(t *testing.T) {
	am := newTestAssetManager(t, t.TempDir())
	assert.NoError(t, am.UnloadAsset(nil))
}

func TestWatcherDeliversTypedEvents(t *testing.T) {
	root := t.TempDir()
	textureDir := filepath.Join(root, "textures")
	require.NoError(t, os.MkdirAll(textureDir, 0o755))

	am := newTestAssetManager(t, root)

	// A write to a watched directory surfaces as a named, typed event.
	require.NoError(t, os.WriteFile(filepath.Join(textureDir, "stone_wall.png"), []byte("not-a-real-png"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-am.Events():
			if event.Name != "stone_wall" {
				continue
			}
			assert.Equal(t, metadata.ResourceTypeImage, event.Type)
			assert.Equal(t, filepath.Join(textureDir, "stone_wall.png"), event.Path)
			return
		case <-deadline:
			t.Fatal("timed out waiting for the watcher event")
		}
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	am := newTestAssetManager(t, root)

	// The directory does not exist at Initialize time; the watcher must adopt
	// it when it appears and then report files created inside it.
	shaderDir := filepath.Join(root, "shaders")
	require.NoError(t, os.MkdirAll(shaderDir, 0o755))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		// Keep rewriting until the new directory watch is in place.
		require.NoError(t, os.WriteFile(filepath.Join(shaderDir, "glow.frag.glsl"), []byte("void main() {}"), 0o644))
		select {
		case event := <-am.Events():
			if event.Name == "glow" {
				assert.Equal(t, metadata.ResourceTypeShader, event.Type)
				return
			}
		case <-time.After(50 * time.Millisecond):
		}
	}
	t.Fatal("timed out waiting for the event from the new directory")
}

func TestShutdownIsIdempotent(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir()))

	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
}

package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/pneuma/engine/assets/loaders"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/** @brief A change to a watched asset file, delivered to the frame loop. */
type AssetEvent struct {
	// Name is the load name of the asset, e.g. "stone_wall" for
	// "textures/stone_wall.png".
	Name string
	Type metadata.ResourceType
	Path string
}

type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	events   chan AssetEvent
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		events:   make(chan AssetEvent, 64),
		done:     make(chan struct{}),
	}, nil
}

// Initialize indexes the asset directory, registers a loader per resource
// type and starts watching the tree for changes.
func (am *AssetManager) Initialize(assetsDir string) error {
	am.root = assetsDir

	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})

	go am.start()

	return am.addRecursive(assetsDir)
}

// Events exposes asset file changes. The channel is buffered and never
// blocks the watcher; events are dropped with a warning when the frame loop
// falls behind.
func (am *AssetManager) Events() <-chan AssetEvent {
	return am.events
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	return nil
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name, false)
}

func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset resolves the named asset's path by type and hands it to the
// registered loader.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	path, err := am.resolvePath(name, resourceType)
	if err != nil {
		return nil, err
	}

	loader, ok := am.loaders[resourceType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for resource type %s", resourceType)
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()

	resource, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}
	if resource.Name == "" {
		resource.Name = name
	}
	return resource, nil
}

func (am *AssetManager) UnloadAsset(resource *metadata.Resource) error {
	if resource == nil {
		return nil
	}
	loader, ok := am.loaders[resource.Type]
	if !ok {
		return fmt.Errorf("no loader registered for resource type %s", resource.Type)
	}
	return loader.Unload(resource)
}

// resolvePath maps an asset name to its file under the asset root. Images
// may be png or jpg; every other type has a single extension.
func (am *AssetManager) resolvePath(name string, resourceType metadata.ResourceType) (string, error) {
	switch resourceType {
	case metadata.ResourceTypeMaterial:
		return filepath.Join(am.root, "materials", name+".material.toml"), nil
	case metadata.ResourceTypeShader:
		return filepath.Join(am.root, "shaders", name+".shader.toml"), nil
	case metadata.ResourceTypeImage:
		path := filepath.Join(am.root, "textures", name+".png")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return filepath.Join(am.root, "textures", name+".jpg"), nil
	case metadata.ResourceTypeBitmapFont:
		return filepath.Join(am.root, "fonts", name+".fnt"), nil
	case metadata.ResourceTypeBinary:
		return filepath.Join(am.root, name), nil
	}
	return "", fmt.Errorf("unknown resource type %d", resourceType)
}

func (am *AssetManager) start() {
	for {
		select {
		case e := <-am.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			// A deleted path cannot be stat'ed, so removal is attempted for
			// files and directories alike.
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case err := <-am.fsnotify.Errors:
			if err != nil {
				core.LogError("asset watcher: %s", err.Error())
			}

		case <-am.done:
			am.fsnotify.Close()
			close(am.events)
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.indexFile(walkPath)
		return nil
	})
}

// indexFile records a typed asset without emitting a change event, used
// during the initial walk.
func (am *AssetManager) indexFile(path string) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}
	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: assetType}
	am.mutex.Unlock()
}

// handleFileEvent records a created or modified file and notifies the frame
// loop.
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()

	event := AssetEvent{
		Name: assetNameFromPath(path),
		Type: assetType,
		Path: path,
	}
	select {
	case am.events <- event:
	default:
		core.LogWarn("asset event for '%s' dropped, frame loop is behind", path)
	}
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func determineAssetType(path string) metadata.ResourceType {
	switch {
	case strings.HasSuffix(path, ".material.toml"):
		return metadata.ResourceTypeMaterial
	case strings.HasSuffix(path, ".shader.toml"):
		return metadata.ResourceTypeShader
	case strings.HasSuffix(path, ".glsl"),
		strings.HasSuffix(path, ".vert"),
		strings.HasSuffix(path, ".frag"):
		return metadata.ResourceTypeShader
	case strings.HasSuffix(path, ".png"), strings.HasSuffix(path, ".jpg"):
		return metadata.ResourceTypeImage
	case strings.HasSuffix(path, ".fnt"):
		return metadata.ResourceTypeBitmapFont
	}
	return metadata.ResourceTypeNone
}

// Longest suffix first, so "x.vert.glsl" is not cut at ".glsl" only.
var assetNameSuffixes = []string{
	".material.toml",
	".shader.toml",
	".vert.glsl",
	".frag.glsl",
	".vert",
	".frag",
	".glsl",
	".png",
	".jpg",
	".fnt",
}

// assetNameFromPath strips the directory and the type suffix, so
// "materials/brick.material.toml" and "textures/brick.png" both map to
// "brick". Only known suffixes are stripped; dots inside the asset name,
// as in "Shader.Builtin.World.vert.glsl", survive.
func assetNameFromPath(path string) string {
	name := filepath.Base(path)
	for _, suffix := range assetNameSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

package assets

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/assets/loaders"
	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/renderer"
	"github.com/spaghettifunk/vulkantesting/engine/resources"
)

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

// AssetManager loads files below a root directory through the loader
// registered for their type.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader
	logger  *core.Logger

	mutex sync.RWMutex
}

func NewAssetManager(root string, logger *core.Logger) *AssetManager {
	am := &AssetManager{
		root:    root,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[resources.ResourceType]Loader),
		logger:  logger,
	}
	// Register loaders
	am.registerLoader(resources.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(resources.ResourceTypeShader, &loaders.ShaderLoader{})
	return am
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads name, relative to the root, with the loader for resourceType.
func (am *AssetManager) LoadAsset(name string, resourceType resources.ResourceType) (*resources.Resource, error) {
	loader, ok := am.loaders[resourceType]
	if !ok {
		return nil, errors.Newf("no loader registered for asset type: %s", resourceType)
	}

	path := filepath.Join(am.root, name)
	res, err := loader.Load(path, name)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()

	am.logger.Debug("Asset loaded", "path", path, "type", resourceType, "bytes", res.DataSize)
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *resources.Resource) error {
	loader, ok := am.loaders[res.Type]
	if !ok {
		return errors.Newf("no loader registered for asset type: %s", res.Type)
	}
	am.mutex.Lock()
	delete(am.assets, res.FullPath)
	am.mutex.Unlock()
	return loader.Unload(res)
}

// Loaded lists what has been loaded so far.
func (am *AssetManager) Loaded() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	return out
}

// LoadShaders reads the vertex and fragment stages of the triangle pipeline.
func (am *AssetManager) LoadShaders(vertex, fragment string) (*renderer.ShaderSet, error) {
	vert, err := am.LoadAsset(vertex, resources.ResourceTypeShader)
	if err != nil {
		return nil, errors.Wrap(err, "vertex stage")
	}
	frag, err := am.LoadAsset(fragment, resources.ResourceTypeShader)
	if err != nil {
		return nil, errors.Wrap(err, "fragment stage")
	}
	return &renderer.ShaderSet{
		Vertex:   vert.Data.([]uint32),
		Fragment: frag.Data.([]uint32),
	}, nil
}

package renderer

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/containers"
	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

const (
	// Initial slot count of a fresh container. Doubles on demand.
	assetContainerInitialCapacity = 8
	// Hard ceiling on slots so a slot index always fits the handle's slot field.
	MaxAssetSlots = 1 << 20
)

type assetSlot struct {
	asset      interface{}
	assetType  metadata.AssetType
	generation uint32
	live       bool
}

// AssetContainer maps opaque handles to backend-owned resource objects.
// The container is the single owner of every stored object; callers hold
// handles, never references, across Store calls. Slots are recycled through
// a free queue and carry a generation counter so a handle to a released
// slot stops resolving even after the slot is reused.
//
// Not safe for concurrent use. All resource creation and resolution happens
// on the frame goroutine.
type AssetContainer struct {
	slots     []assetSlot
	freeSlots *containers.RingQueue[uint32]
	liveCount uint32
}

func NewAssetContainer() *AssetContainer {
	c := &AssetContainer{
		slots:     make([]assetSlot, assetContainerInitialCapacity),
		freeSlots: containers.NewRingQueue[uint32](assetContainerInitialCapacity),
	}
	for i := range c.slots {
		// Generation starts at 1 so no live handle ever encodes to zero.
		c.slots[i].generation = 1
		c.freeSlots.Enqueue(uint32(i))
	}
	return c
}

// Store takes ownership of asset and returns the handle it is reachable
// under. The container grows geometrically when no free slot remains and
// fails only when the slot ceiling is reached.
func (c *AssetContainer) Store(asset interface{}, assetType metadata.AssetType) (metadata.AssetHandle, error) {
	if assetType <= metadata.AssetTypeInvalid || assetType >= metadata.AssetTypeMax {
		return metadata.InvalidAssetHandle, fmt.Errorf("asset container: cannot store asset with type %d", assetType)
	}
	if asset == nil {
		return metadata.InvalidAssetHandle, fmt.Errorf("asset container: cannot store a nil %s asset", assetType.String())
	}
	if c.freeSlots.IsEmpty() {
		if err := c.grow(); err != nil {
			return metadata.InvalidAssetHandle, err
		}
	}
	slot, err := c.freeSlots.Dequeue()
	if err != nil {
		return metadata.InvalidAssetHandle, err
	}
	entry := &c.slots[slot]
	entry.asset = asset
	entry.assetType = assetType
	entry.live = true
	c.liveCount++
	return metadata.NewAssetHandle(assetType, entry.generation, slot), nil
}

// Resolve returns the object stored under handle, or nil when the handle is
// out of range, its slot has been released, its generation is stale, or the
// stored type does not match expected. Misses are ordinary control flow and
// are not logged here; callers log with their own context.
func (c *AssetContainer) Resolve(handle metadata.AssetHandle, expected metadata.AssetType) interface{} {
	entry := c.lookup(handle)
	if entry == nil || entry.assetType != expected {
		return nil
	}
	return entry.asset
}

// Release marks the handle's slot free and drops the container's reference
// to the stored object. The backend destroys the object itself before
// calling Release. Releasing a stale or foreign handle is a caller bug and
// is ignored with a warning.
func (c *AssetContainer) Release(handle metadata.AssetHandle) {
	entry := c.lookup(handle)
	if entry == nil {
		core.LogWarn("asset container: release of invalid handle %s ignored", handle.String())
		return
	}
	entry.asset = nil
	entry.assetType = metadata.AssetTypeInvalid
	entry.live = false
	entry.generation++
	if entry.generation > metadata.AssetHandleGenerationMask {
		entry.generation = 1
	}
	c.liveCount--
	c.freeSlots.Enqueue(handle.Slot())
}

// Replace swaps the object stored under handle for asset while keeping the
// handle valid. The slot's generation is untouched, so every copy of the
// handle now resolves to the new object. Used for in-place reloads.
func (c *AssetContainer) Replace(handle metadata.AssetHandle, asset interface{}) error {
	if asset == nil {
		return fmt.Errorf("asset container: cannot replace with a nil asset")
	}
	entry := c.lookup(handle)
	if entry == nil {
		return fmt.Errorf("asset container: replace of invalid handle %s", handle.String())
	}
	entry.asset = asset
	return nil
}

// IsValid reports whether handle currently resolves to a live object of the
// type encoded in the handle itself.
func (c *AssetContainer) IsValid(handle metadata.AssetHandle) bool {
	return c.lookup(handle) != nil
}

// LiveCount returns the number of occupied slots. Used by backends to
// report leaks at shutdown.
func (c *AssetContainer) LiveCount() uint32 {
	return c.liveCount
}

func (c *AssetContainer) lookup(handle metadata.AssetHandle) *assetSlot {
	if handle == metadata.InvalidAssetHandle {
		return nil
	}
	slot := handle.Slot()
	if slot >= uint32(len(c.slots)) {
		return nil
	}
	entry := &c.slots[slot]
	if !entry.live || entry.generation != handle.Generation() || entry.assetType != handle.Type() {
		return nil
	}
	return entry
}

func (c *AssetContainer) grow() error {
	oldCap := uint32(len(c.slots))
	if oldCap >= MaxAssetSlots {
		return fmt.Errorf("asset container: slot ceiling of %d reached: %w", MaxAssetSlots, core.ErrContainerFull)
	}
	newCap := oldCap * 2
	if newCap > MaxAssetSlots {
		newCap = MaxAssetSlots
	}
	grown := make([]assetSlot, newCap)
	copy(grown, c.slots)
	c.slots = grown
	// The free queue is only ever empty when growing, so it is rebuilt at
	// the new capacity and seeded with the fresh slots.
	c.freeSlots = containers.NewRingQueue[uint32](int(newCap))
	for i := oldCap; i < newCap; i++ {
		c.slots[i].generation = 1
		c.freeSlots.Enqueue(i)
	}
	return nil
}

// AssetFrom resolves handle against c and asserts the stored object to *T.
// It returns nil on any validity failure, same as Resolve.
func AssetFrom[T any](c *AssetContainer, handle metadata.AssetHandle, expected metadata.AssetType) *T {
	asset := c.Resolve(handle, expected)
	if asset == nil {
		return nil
	}
	typed, ok := asset.(*T)
	if !ok {
		return nil
	}
	return typed
}

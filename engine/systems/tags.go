package systems

import (
	"encoding/binary"
	"slices"

	"github.com/spaghettifunk/pneuma/engine/core"
)

/** @brief The maximum number of tags a single material can carry. */
const MaxMaterialTagCount = 8

/**
 * @brief One interned, ascending-sorted tag set. Lists are immutable once
 * registered; materials and render views refer to them by key.
 */
type TagList struct {
	Tags  [MaxMaterialTagCount]core.NameHash
	Count uint32
}

/**
 * @brief Interns material tag lists under 32-bit content keys. The key is a
 * hash of the raw tag bytes, so the same sorted list always produces the
 * same key no matter how often it is registered.
 */
type TagRegistry struct {
	lists map[uint32]TagList
}

func NewTagRegistry() *TagRegistry {
	return &TagRegistry{
		lists: make(map[uint32]TagList),
	}
}

/**
 * @brief Interns the given tag list and returns its key. Tags must be sorted
 * in ascending order. If the key is already registered the existing entry is
 * kept and its key returned. A key of 0 indicates the list was rejected.
 */
func (r *TagRegistry) Register(tags []core.NameHash) uint32 {
	if len(tags) > MaxMaterialTagCount {
		core.LogError("tag list with %d tags exceeds the maximum of %d, refusing to register", len(tags), MaxMaterialTagCount)
		return 0
	}
	if !slices.IsSorted(tags) {
		core.LogWarn("tag list is not sorted in ascending order; matching against it will miss tags")
	}

	key := core.HashBuffer32(tagListBytes(tags))
	if _, ok := r.lists[key]; ok {
		return key
	}

	list := TagList{Count: uint32(len(tags))}
	copy(list.Tags[:], tags)
	r.lists[key] = list
	return key
}

/**
 * @brief Returns the tags registered under key, or an empty list when the
 * key is unknown.
 */
func (r *TagRegistry) Lookup(key uint32) []core.NameHash {
	list, ok := r.lists[key]
	if !ok {
		core.LogError("failed to get material tag list with key 0x%08x", key)
		return nil
	}
	return list.Tags[:list.Count]
}

// tagListBytes flattens the list for content hashing.
func tagListBytes(tags []core.NameHash) []byte {
	buf := make([]byte, 8*len(tags))
	for i, tag := range tags {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(tag))
	}
	return buf
}

/**
 * @brief Reports whether every query tag appears in the material's tag list.
 * Both lists must be sorted in ascending order; the scan keeps a single
 * forward cursor over the material list, so a query tag can only match at or
 * after the position of the previous hit. An empty query matches nothing.
 */
func MatchTags(materialTags, tags []core.NameHash) bool {
	lastHit := 0
	for _, tag := range tags {
		hit := false
		for mt := lastHit; mt < len(materialTags); mt++ {
			if tag == materialTags[mt] {
				hit = true
				lastHit = mt + 1
				break
			}
		}
		if !hit {
			return false
		}
	}
	return len(tags) > 0
}

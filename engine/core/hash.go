package core

import (
	"hash/fnv"
	"sync"
)

// NameHash identifies a named shader binding (uniform, attribute, sampler,
// tag) at runtime. Hashes are stable FNV-1a so they can be stored in game
// objects and compared across frames.
type NameHash uint64

// InvalidNameHash is never produced by HashName.
const InvalidNameHash NameHash = 0

var reverseNames sync.Map // NameHash -> string, debug lookups only

// HashName hashes a human-readable identifier for runtime lookups.
func HashName(name string) NameHash {
	h := fnv.New64a()
	h.Write([]byte(name))
	nh := NameHash(h.Sum64())
	reverseNames.Store(nh, name)
	return nh
}

// NameOf returns the original string for a hash produced by HashName in this
// process, or an empty string. Intended for log messages.
func NameOf(h NameHash) string {
	if name, ok := reverseNames.Load(h); ok {
		return name.(string)
	}
	return ""
}

// HashBuffer32 hashes raw bytes into a 32-bit key (tag-list interning).
func HashBuffer32(data []byte) uint32 {
	h := fnv.New32a()
	h.Write(data)
	return h.Sum32()
}

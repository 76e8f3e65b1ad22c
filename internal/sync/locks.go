package sync

import (
	"hash/fnv"
	"sync"
)

// KeyedMutex serializes pushes that target the same entity. Keys hash
// onto a fixed pool of stripes so the table never grows with entity
// cardinality; two distinct entities sharing a stripe just queue, which
// is harmless.
type KeyedMutex struct {
	stripes []sync.Mutex
}

func NewKeyedMutex(stripes int) *KeyedMutex {
	if stripes <= 0 {
		stripes = 256
	}
	return &KeyedMutex{stripes: make([]sync.Mutex, stripes)}
}

func (m *KeyedMutex) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &m.stripes[int(h.Sum32())%len(m.stripes)]
}

func (m *KeyedMutex) Lock(key string)   { m.stripe(key).Lock() }
func (m *KeyedMutex) Unlock(key string) { m.stripe(key).Unlock() }

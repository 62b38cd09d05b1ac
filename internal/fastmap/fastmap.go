// Package fastmap provides a fast hash map for integer keys.
// Uses fibonacci hashing for better distribution of sequential keys.
package fastmap

// Uint32Map is a fast hash map from uint32 to V.
// Uses open addressing with linear probing and fibonacci hashing.
// The zero value is an empty map ready to use.
type Uint32Map[V any] struct {
	buckets []bucket[V]
	count   int
	mask    uint32
}

type bucket[V any] struct {
	key   uint32
	value V
	used  bool // key=0 is valid
}

// Fibonacci hash constant: 2^32 / golden ratio
const fibHash32 = 2654435769

func (m *Uint32Map[V]) hash(key uint32) uint32 {
	return key * fibHash32
}

// find returns the bucket index holding key.
func (m *Uint32Map[V]) find(key uint32) (uint32, bool) {
	if len(m.buckets) == 0 {
		return 0, false
	}
	idx := m.hash(key) & m.mask
	for {
		b := &m.buckets[idx]
		if !b.used {
			return 0, false
		}
		if b.key == key {
			return idx, true
		}
		idx = (idx + 1) & m.mask
	}
}

// Get returns the value for the given key.
func (m *Uint32Map[V]) Get(key uint32) (V, bool) {
	idx, ok := m.find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return m.buckets[idx].value, true
}

// Set stores a key-value pair.
func (m *Uint32Map[V]) Set(key uint32, value V) {
	if len(m.buckets) == 0 {
		m.buckets = make([]bucket[V], 16)
		m.mask = 15
	} else if m.count >= len(m.buckets)*3/4 {
		m.grow()
	}

	idx := m.hash(key) & m.mask
	for {
		b := &m.buckets[idx]
		if !b.used {
			b.key = key
			b.value = value
			b.used = true
			m.count++
			return
		}
		if b.key == key {
			b.value = value
			return
		}
		idx = (idx + 1) & m.mask
	}
}

// Delete removes key and reports whether it was present.
// Entries after the hole are shifted back so probing never needs tombstones.
func (m *Uint32Map[V]) Delete(key uint32) bool {
	i, ok := m.find(key)
	if !ok {
		return false
	}

	m.buckets[i] = bucket[V]{}
	j := i
	for {
		j = (j + 1) & m.mask
		b := m.buckets[j]
		if !b.used {
			break
		}
		if home := m.hash(b.key) & m.mask; between(home, i, j) {
			continue
		}
		m.buckets[i] = b
		m.buckets[j] = bucket[V]{}
		i = j
	}
	m.count--
	return true
}

// between reports whether home lies in the cyclic range (i, j].
func between(home, i, j uint32) bool {
	if i <= j {
		return i < home && home <= j
	}
	return i < home || home <= j
}

// grow doubles the hash table size
func (m *Uint32Map[V]) grow() {
	oldBuckets := m.buckets
	newSize := len(oldBuckets) * 2
	m.buckets = make([]bucket[V], newSize)
	m.mask = uint32(newSize - 1)
	m.count = 0

	for i := range oldBuckets {
		if oldBuckets[i].used {
			m.Set(oldBuckets[i].key, oldBuckets[i].value)
		}
	}
}

// ForEach iterates over all key-value pairs.
func (m *Uint32Map[V]) ForEach(fn func(uint32, V)) {
	for i := range m.buckets {
		if m.buckets[i].used {
			fn(m.buckets[i].key, m.buckets[i].value)
		}
	}
}

// Clear removes all entries but keeps the backing array.
func (m *Uint32Map[V]) Clear() {
	clear(m.buckets)
	m.count = 0
}

// Len returns the number of entries.
func (m *Uint32Map[V]) Len() int {
	return m.count
}

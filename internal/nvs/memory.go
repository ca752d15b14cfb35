package nvs

import (
	"sync"

	"github.com/EternisAI/silo-device/internal/secret"
)

type memoryEntry struct {
	flag  uint8
	value []byte
	isU8  bool
}

// Memory is an in-process KV. Contents do not survive a restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[string]*memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[string]*memoryEntry)}
}

// Namespace returns a view of the given namespace.
func (m *Memory) Namespace(name string) *MemoryNamespace {
	return &MemoryNamespace{mem: m, name: name}
}

type MemoryNamespace struct {
	mem  *Memory
	name string
}

func (n *MemoryNamespace) lookup(key string) (*memoryEntry, bool) {
	ns, ok := n.mem.entries[n.name]
	if !ok {
		return nil, false
	}
	e, ok := ns[key]
	return e, ok
}

func (n *MemoryNamespace) put(key string, e *memoryEntry) {
	ns, ok := n.mem.entries[n.name]
	if !ok {
		ns = make(map[string]*memoryEntry)
		n.mem.entries[n.name] = ns
	}
	if old, ok := ns[key]; ok {
		secret.Wipe(old.value)
	}
	ns[key] = e
}

func (n *MemoryNamespace) GetU8(key string) (uint8, bool, error) {
	n.mem.mu.RLock()
	defer n.mem.mu.RUnlock()

	e, ok := n.lookup(key)
	if !ok {
		return 0, false, nil
	}
	if !e.isU8 {
		return 0, true, ErrKindMismatch
	}
	return e.flag, true, nil
}

func (n *MemoryNamespace) SetU8(key string, value uint8) error {
	n.mem.mu.Lock()
	defer n.mem.mu.Unlock()

	n.put(key, &memoryEntry{flag: value, isU8: true})
	return nil
}

func (n *MemoryNamespace) GetString(key string, buf []byte) (int, bool, error) {
	n.mem.mu.RLock()
	defer n.mem.mu.RUnlock()

	e, ok := n.lookup(key)
	if !ok {
		return 0, false, nil
	}
	if e.isU8 {
		return 0, true, ErrKindMismatch
	}
	if len(e.value) > len(buf) {
		return 0, true, ErrBufferTooSmall
	}
	return copy(buf, e.value), true, nil
}

func (n *MemoryNamespace) SetString(key string, value []byte) error {
	n.mem.mu.Lock()
	defer n.mem.mu.Unlock()

	n.put(key, &memoryEntry{value: append([]byte(nil), value...)})
	return nil
}

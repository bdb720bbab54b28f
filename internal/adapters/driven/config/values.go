// Package config holds the flat key/value map shared by the config stores.
package config

import (
	"maps"
	"sort"
	"strings"
	"sync"
)

// Values is a concurrency-safe map of dot-notation keys. TOML decodes
// numbers as int64 or float64 and tests set plain ints, so the numeric
// getters accept all three.
type Values struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewValues wraps data, which may be nil.
func NewValues(data map[string]any) *Values {
	if data == nil {
		data = make(map[string]any)
	}
	return &Values{data: data}
}

// Get returns the raw value for key.
func (v *Values) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[key]
	return val, ok
}

// GetString returns "" for missing or non-string values.
func (v *Values) GetString(key string) string {
	s, _ := v.lookup(key).(string)
	return s
}

// GetInt truncates floats.
func (v *Values) GetInt(key string) int {
	return int(v.GetFloat(key))
}

// GetFloat returns 0 for missing or non-numeric values.
func (v *Values) GetFloat(key string) float64 {
	switch n := v.lookup(key).(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func (v *Values) lookup(key string) any {
	val, _ := v.Get(key)
	return val
}

// Put sets key.
func (v *Values) Put(key string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
}

// Update runs fn with the write lock held, after setting key.
func (v *Values) Update(key string, value any, fn func(map[string]any) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
	return fn(v.data)
}

// Flatten turns nested tables into dot-notation keys:
// {"retrieval": {"top_k": 4}} becomes {"retrieval.top_k": 4}.
func Flatten(nested map[string]any) map[string]any {
	flat := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if table, ok := val.(map[string]any); ok {
				walk(k, table)
				continue
			}
			flat[k] = val
		}
	}
	walk("", nested)
	return flat
}

// Nest is the inverse of Flatten. When "a" and "a.b" are both set the
// table wins and "a" is dropped.
func Nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range maps.Keys(flat) {
		keys = append(keys, k)
	}
	// Deepest keys first, so tables exist before scalars could claim them.
	sort.Slice(keys, func(i, j int) bool {
		return strings.Count(keys[i], ".") > strings.Count(keys[j], ".")
	})

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, isTable := node[leaf].(map[string]any); !isTable {
			node[leaf] = flat[key]
		}
	}
	return root
}

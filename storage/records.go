package storage

import (
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
)

// decodeCollection parses a stored collection. Providers may hand back a
// list or an object keyed by id or index; both are flattened into a list of
// objects and anything that is not an object is dropped. Object values are
// ordered by their position field when every value has one, otherwise by
// key, numerically when the keys are indexes.
func decodeCollection(data []byte) ([]any, error) {
	if len(data) == 0 {
		return []any{}, nil
	}
	var root any
	if err := sonic.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return flattenCollection(root), nil
}

func flattenCollection(root any) []any {
	out := []any{}
	switch v := root.(type) {
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(v) {
			if obj, ok := v[k].(map[string]any); ok {
				out = append(out, obj)
			}
		}
		sortByPosition(out)
	}
	return out
}

func sortByPosition(records []any) {
	pos := make([]float64, len(records))
	for i, r := range records {
		p, ok := r.(map[string]any)["position"].(float64)
		if !ok {
			return
		}
		pos[i] = p
	}
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return pos[idx[a]] < pos[idx[b]] })
	sorted := make([]any, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	numeric := true
	for k := range m {
		keys = append(keys, k)
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		})
		return keys
	}
	sort.Strings(keys)
	return keys
}

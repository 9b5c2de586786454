package session

import (
	"reflect"
	"strings"
)

// WriteField assigns value at a dotted path inside data, creating
// intermediate maps as needed. A non-map value found at an intermediate
// segment is overwritten with a fresh map; there is no schema and no
// conflict detection.
func WriteField(data map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	cur := data
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[k] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

// ToggleField applies a membership symmetric difference to the list at a
// dotted path: remove value when present, append it otherwise. A missing
// or non-list field starts as an empty list. Applying the same toggle twice
// restores the original contents.
func ToggleField(data map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	cur := data
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[k] = next
		}
		cur = next
	}

	leaf := keys[len(keys)-1]
	list, _ := cur[leaf].([]any)

	for i, item := range list {
		if reflect.DeepEqual(item, value) {
			cur[leaf] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
	cur[leaf] = append(list, value)
}

package query

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// IDs returns the distinct ids of items in order.
func IDs[T any](items []T, idOf func(T) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		id := idOf(item)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// AttachCounts sets a grouped count on every item, looked up by the item's id.
// Items without a group get 0. Only the caller's slice is written.
func AttachCounts[T any](items []T, idOf func(T) uuid.UUID, counts map[uuid.UUID]int64, set func(*T, int64)) {
	for i := range items {
		set(&items[i], counts[idOf(items[i])])
	}
}

// Project reduces each item to the projected fields, keyed by their JSON
// names. The "id" field and any names in keep (requested derived attributes)
// always survive. A nil projection is not valid here; callers return full
// items instead.
func Project[T any](items []T, projection []string, keep ...string) ([]map[string]json.RawMessage, error) {
	wanted := make(map[string]bool, len(projection)+len(keep)+1)
	wanted["id"] = true
	for _, f := range projection {
		wanted[f] = true
	}
	for _, k := range keep {
		wanted[k] = true
	}

	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode item: %w", err)
		}
		var all map[string]json.RawMessage
		if err := json.Unmarshal(raw, &all); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		shaped := make(map[string]json.RawMessage, len(wanted))
		for k, v := range all {
			if wanted[k] {
				shaped[k] = v
			}
		}
		out = append(out, shaped)
	}
	return out, nil
}

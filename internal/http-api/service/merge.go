package service

import (
	"sort"

	"libhub/internal/http-api/models"
)

// Merge reconciles two versions of an id-keyed collection: records from
// incoming overwrite records from existing with the same id, whole-record
// (no field-level merging). Output is ordered by ascending id so the result
// is deterministic for the same inputs.
//
// Laws the backup/import flows rely on:
//
//	Merge(x, nil) == x
//	Merge(nil, y) == y
//	Merge(Merge(x, y), y) == Merge(x, y)
func Merge[T models.Identifiable](existing, incoming []T) []T {
	byID := make(map[int64]T, len(existing)+len(incoming))
	for _, item := range existing {
		byID[item.Identity()] = item
	}
	for _, item := range incoming {
		byID[item.Identity()] = item
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

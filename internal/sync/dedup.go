package sync

import "github.com/bidwatch/koneps-sync/internal/entity"

// FilterNewNotices drops every notice whose natural key is already stored,
// silently. Keys accepted into the result are added to the set as we go,
// so a key that repeats within one fetched batch is also inserted at most
// once. The caller's set is extended in place.
func FilterNewNotices(notices []entity.Notice, existing map[entity.NoticeKey]struct{}) []entity.Notice {
	fresh := make([]entity.Notice, 0, len(notices))
	for _, n := range notices {
		key := n.Key()
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		fresh = append(fresh, n)
	}
	return fresh
}

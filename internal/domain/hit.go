package domain

// CandidateHit is a single nearest-neighbor match from the vector index.
// Distance follows the configured metric; lower means more similar.
type CandidateHit struct {
	RecordID int64
	Distance float32
}

// DistinctIDs returns the record ids of hits with duplicates removed,
// preserving first-seen order. Similarity rank carries no meaning past this
// point; the record store applies its own ordering.
func DistinctIDs(hits []CandidateHit) []int64 {
	seen := make(map[int64]struct{}, len(hits))
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.RecordID]; ok {
			continue
		}
		seen[h.RecordID] = struct{}{}
		ids = append(ids, h.RecordID)
	}
	return ids
}

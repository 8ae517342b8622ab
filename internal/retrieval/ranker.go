package retrieval

// defaultOverlapDedupeRatio drops a hit whose token range shares at least
// this fraction of the shorter range with one already retained.
const defaultOverlapDedupeRatio = 0.5

type RankConfig struct {
	// MinScore drops hits scoring below it. Hits without a score are never
	// dropped by the threshold.
	MinScore *float64

	// OverlapDedupeRatio is the range-overlap fraction at which a hit is
	// considered a near-duplicate. Zero means the 0.5 default.
	OverlapDedupeRatio float64
}

// rangeKey buckets retained token ranges. Page-less chunks (plain text)
// bucket under page 0.
type rangeKey struct {
	documentID string
	page       int
}

// Rank filters and de-duplicates a hit list that arrives ranked by
// descending similarity, preserving its order: hits below the score
// threshold are dropped, then repeated chunk ids, then hits whose token
// range mostly overlaps a range already retained for the same document and
// page.
func Rank(hits []Hit, cfg RankConfig) []Hit {
	ratio := cfg.OverlapDedupeRatio
	if ratio <= 0 {
		ratio = defaultOverlapDedupeRatio
	}

	kept := make([]Hit, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	ranges := make(map[rangeKey][][2]int)

	for _, hit := range hits {
		if cfg.MinScore != nil && hit.Score != nil && *hit.Score < *cfg.MinScore {
			continue
		}
		if hit.ChunkID != "" {
			if _, dup := seen[hit.ChunkID]; dup {
				continue
			}
		}

		if hit.Meta != nil {
			key := rangeKey{documentID: hit.DocumentID}
			if hit.Meta.Page != nil {
				key.page = *hit.Meta.Page
			}
			span := [2]int{hit.Meta.StartToken, hit.Meta.EndToken}
			if overlapsRetained(ranges[key], span, ratio) {
				continue
			}
			ranges[key] = append(ranges[key], span)
		}

		if hit.ChunkID != "" {
			seen[hit.ChunkID] = struct{}{}
		}
		kept = append(kept, hit)
	}
	return kept
}

func overlapsRetained(retained [][2]int, span [2]int, ratio float64) bool {
	for _, r := range retained {
		if overlapFraction(r, span) >= ratio {
			return true
		}
	}
	return false
}

// overlapFraction is the shared token count relative to the shorter of the
// two ranges. Zero-length ranges count as length 1.
func overlapFraction(a, b [2]int) float64 {
	end := a[1]
	if b[1] < end {
		end = b[1]
	}
	start := a[0]
	if b[0] > start {
		start = b[0]
	}
	shared := end - start
	if shared < 0 {
		shared = 0
	}

	lenA := a[1] - a[0]
	if lenA < 1 {
		lenA = 1
	}
	lenB := b[1] - b[0]
	if lenB < 1 {
		lenB = 1
	}
	shorter := lenA
	if lenB < shorter {
		shorter = lenB
	}
	return float64(shared) / float64(shorter)
}

package entity

// ExtractionBatch is one fixed-size slice of a batch run.
type ExtractionBatch struct {
	Number  int      `json:"batch_number"` // 1-based
	Members []string `json:"members"`
	Total   int      `json:"total"`
}

// SliceBatches splits ids into consecutive batches of at most size members.
func SliceBatches(ids []string, size int) []ExtractionBatch {
	if size <= 0 {
		size = 1
	}
	var out []ExtractionBatch
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ExtractionBatch{
			Number:  len(out) + 1,
			Members: ids[start:end],
			Total:   end - start,
		})
	}
	return out
}

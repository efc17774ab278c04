package taxonomy

import (
	"encoding/json"
	"strings"

	"github.com/teranos/capgen/errors"
)

// Merge folds L0 batches, in order, into one Industry.
//
// The industry name and description come from the first batch that supplies
// a non-empty value. L0 children are concatenated in arrival order and the
// declared counts are summed. Input batches are not modified; the result
// shares no slices with them.
func Merge(batches []*Batch) (*Industry, error) {
	ind := &Industry{L0: []L0Capability{}}
	for i, b := range batches {
		if b == nil {
			return nil, errors.NewMergeError(nil, "batch %d is missing", i)
		}
		if ind.Name == "" {
			ind.Name = strings.TrimSpace(b.Industry)
		}
		if ind.Description == "" {
			ind.Description = strings.TrimSpace(b.IndustryDescription)
		}
		ind.L0 = append(ind.L0, cloneL0(b.L0)...)
		ind.Declared = ind.Declared.Add(b.CountSummary)
	}
	return ind, nil
}

// MergeJSON decodes raw batch documents and merges them. Any chunk that is
// not a JSON object carrying every key in BatchKeys fails the whole merge.
func MergeJSON(chunks [][]byte) (*Industry, error) {
	batches := make([]*Batch, 0, len(chunks))
	for i, chunk := range chunks {
		missing, err := MissingBatchKey(chunk)
		if err != nil {
			return nil, errors.NewMergeError(err, "chunk %d is not a JSON object", i)
		}
		if missing != "" {
			return nil, errors.NewMergeError(nil, "chunk %d is missing key %q", i, missing)
		}

		var b Batch
		if err := json.Unmarshal(chunk, &b); err != nil {
			return nil, errors.NewMergeError(err, "chunk %d is not valid batch JSON", i)
		}
		batches = append(batches, &b)
	}
	return Merge(batches)
}

// Package taxonomy is the capability tree (industry → L0 → L1 → L2) and the
// operations on it that do not talk to a model: merging L0 batches,
// data-quality checks, flattening to rows and CSV export.
package taxonomy

import (
	"bytes"
	"encoding/json"
)

// Level markers written to the level columns of exported rows.
const (
	LevelL0 = "0"
	LevelL1 = "1"
	LevelL2 = "2"
)

// CountSummary holds the denormalized counts a model reports alongside a
// batch. They are advisory; real counts come from Industry.Counts.
type CountSummary struct {
	L0 int `json:"L0_capabilities_count"`
	L1 int `json:"L1_capabilities_count"`
	L2 int `json:"L2_capabilities_count"`
}

// Add returns the element-wise sum
func (c CountSummary) Add(o CountSummary) CountSummary {
	return CountSummary{L0: c.L0 + o.L0, L1: c.L1 + o.L1, L2: c.L2 + o.L2}
}

// Batch is one parsed L0 generation response.
type Batch struct {
	Industry            string         `json:"industry"`
	IndustryDescription string         `json:"industry_description"`
	L0                  []L0Capability `json:"L0_capabilities"`
	CountSummary
}

// BatchKeys are the top-level keys every batch document must carry.
var BatchKeys = []string{
	"industry",
	"industry_description",
	"L0_capabilities",
	"L0_capabilities_count",
	"L1_capabilities_count",
	"L2_capabilities_count",
}

// MissingBatchKey decodes data as a JSON object and returns the first of
// BatchKeys it lacks, or "" when all are present. A JSON null has no keys.
func MissingBatchKey(data []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", err
	}
	for _, key := range BatchKeys {
		if _, ok := fields[key]; !ok {
			return key, nil
		}
	}
	return "", nil
}

// Industry is the root of a generated taxonomy. It is built once per
// generation request and owned by that request.
type Industry struct {
	Name        string         `json:"industry"`
	Description string         `json:"industry_description"`
	L0          []L0Capability `json:"L0_capabilities"`
	Declared    CountSummary   `json:"declared_counts"`
}

// L0Capability is a top-level capability
type L0Capability struct {
	Name        string         `json:"L0_capability"`
	Description string         `json:"L0_capability_description"`
	L1          []L1Capability `json:"L1_capabilities"`
}

// L1Capability belongs to exactly one L0. L2 is empty until attachment.
type L1Capability struct {
	Name        string    `json:"L1_capability"`
	Description string    `json:"L1_capability_description"`
	L2          []L2Entry `json:"L2_capabilities,omitempty"`
}

// L2Capability is a leaf
type L2Capability struct {
	Name        string `json:"L2_capability"`
	Description string `json:"L2_capability_description"`
}

// L2Entry is one element of a model's L2 array, kept verbatim. Elements that
// are not well-formed L2 objects are legal in the tree and skipped on export.
type L2Entry struct {
	raw json.RawMessage
}

// NewL2Entry wraps a well-formed capability
func NewL2Entry(c L2Capability) L2Entry {
	raw, _ := json.Marshal(c)
	return L2Entry{raw: raw}
}

// RawL2Entry wraps an arbitrary JSON value
func RawL2Entry(raw []byte) L2Entry {
	return L2Entry{raw: append(json.RawMessage(nil), raw...)}
}

// Capability decodes the entry. ok is false unless the entry is a JSON
// object carrying both L2_capability and L2_capability_description as strings.
func (e L2Entry) Capability() (c L2Capability, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.raw, &fields); err != nil || fields == nil {
		return L2Capability{}, false
	}
	nameRaw, hasName := fields["L2_capability"]
	descRaw, hasDesc := fields["L2_capability_description"]
	if !hasName || !hasDesc {
		return L2Capability{}, false
	}
	if !isJSONString(nameRaw) || !isJSONString(descRaw) {
		return L2Capability{}, false
	}
	if json.Unmarshal(nameRaw, &c.Name) != nil || json.Unmarshal(descRaw, &c.Description) != nil {
		return L2Capability{}, false
	}
	return c, true
}

// json.Unmarshal accepts null into a string; require an actual string literal
func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

// Raw returns the entry's JSON text
func (e L2Entry) Raw() []byte {
	return e.raw
}

// MarshalJSON emits the entry verbatim
func (e L2Entry) MarshalJSON() ([]byte, error) {
	if len(e.raw) == 0 {
		return []byte("null"), nil
	}
	return e.raw, nil
}

// UnmarshalJSON keeps a copy of the element
func (e *L2Entry) UnmarshalJSON(data []byte) error {
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Counts walks the tree. L2 counts every attached entry, well-formed or not.
func (ind *Industry) Counts() CountSummary {
	var c CountSummary
	for _, l0 := range ind.L0 {
		c.L0++
		for _, l1 := range l0.L1 {
			c.L1++
			c.L2 += len(l1.L2)
		}
	}
	return c
}

// Complete reports whether every L1 has at least one L2 entry. Only complete
// trees may be flattened.
func (ind *Industry) Complete() bool {
	for _, l0 := range ind.L0 {
		for _, l1 := range l0.L1 {
			if len(l1.L2) == 0 {
				return false
			}
		}
	}
	return true
}

// L1Count returns the number of L1 nodes
func (ind *Industry) L1Count() int {
	n := 0
	for _, l0 := range ind.L0 {
		n += len(l0.L1)
	}
	return n
}

// Clone returns a deep copy. L2 entries share their immutable raw bytes.
func (ind *Industry) Clone() *Industry {
	out := *ind
	out.L0 = cloneL0(ind.L0)
	return &out
}

func cloneL0(in []L0Capability) []L0Capability {
	if in == nil {
		return nil
	}
	out := make([]L0Capability, len(in))
	for i, l0 := range in {
		out[i] = l0
		if l0.L1 != nil {
			out[i].L1 = make([]L1Capability, len(l0.L1))
			for j, l1 := range l0.L1 {
				out[i].L1[j] = l1
				if l1.L2 != nil {
					out[i].L1[j].L2 = append([]L2Entry(nil), l1.L2...)
				}
			}
		}
	}
	return out
}

package taxonomy

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const retailBatch = `{"industry":"Retail","industry_description":"d","L0_capabilities":[{"L0_capability":"A","L0_capability_description":"da","L1_capabilities":[{"L1_capability":"A1","L1_capability_description":"d1"}]}],"L0_capabilities_count":1,"L1_capabilities_count":1,"L2_capabilities_count":0}`

func decodeBatch(t *testing.T, s string) *Batch {
	t.Helper()
	var b Batch
	require.NoError(t, json.Unmarshal([]byte(s), &b))
	return &b
}

func makeBatch(industry string, l0Names []string, l1PerL0 int) *Batch {
	b := &Batch{Industry: industry, IndustryDescription: industry + " description"}
	for _, name := range l0Names {
		l0 := L0Capability{Name: name, Description: name + " desc"}
		for i := 0; i < l1PerL0; i++ {
			l0.L1 = append(l0.L1, L1Capability{
				Name:        fmt.Sprintf("%s-%d", name, i+1),
				Description: fmt.Sprintf("%s-%d desc", name, i+1),
			})
		}
		b.L0 = append(b.L0, l0)
	}
	b.CountSummary = CountSummary{L0: len(l0Names), L1: len(l0Names) * l1PerL0}
	return b
}

func l2Entries(n int, prefix string) []L2Entry {
	entries := make([]L2Entry, n)
	for i := range entries {
		entries[i] = NewL2Entry(L2Capability{
			Name:        fmt.Sprintf("%s-%d", prefix, i+1),
			Description: fmt.Sprintf("%s-%d desc", prefix, i+1),
		})
	}
	return entries
}

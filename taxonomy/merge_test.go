package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/errors"
)

func TestMerge_SingleBatch(t *testing.T) {
	ind, err := Merge([]*Batch{decodeBatch(t, retailBatch)})
	require.NoError(t, err)

	assert.Equal(t, "Retail", ind.Name)
	assert.Equal(t, "d", ind.Description)
	require.Len(t, ind.L0, 1)
	assert.Equal(t, "A", ind.L0[0].Name)
	assert.Equal(t, "da", ind.L0[0].Description)
	require.Len(t, ind.L0[0].L1, 1)
	assert.Equal(t, "A1", ind.L0[0].L1[0].Name)
	assert.Equal(t, "d1", ind.L0[0].L1[0].Description)
	assert.Equal(t, CountSummary{L0: 1, L1: 1}, ind.Declared)
}

func TestMerge_PreservesOrderAndSumsCounts(t *testing.T) {
	batches := []*Batch{
		makeBatch("Retail", []string{"A", "B"}, 3),
		makeBatch("Retail", []string{"C"}, 2),
		makeBatch("Retail", nil, 0),
	}

	ind, err := Merge(batches)
	require.NoError(t, err)

	var names []string
	for _, l0 := range ind.L0 {
		names = append(names, l0.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
	assert.Equal(t, CountSummary{L0: 3, L1: 8}, ind.Declared)
	assert.Equal(t, CountSummary{L0: 3, L1: 8}, ind.Counts())
}

func TestMerge_L0CountIsSumOfBatches(t *testing.T) {
	for n := 0; n < 5; n++ {
		var batches []*Batch
		want := 0
		for i := 0; i <= n; i++ {
			l0 := make([]string, i)
			for j := range l0 {
				l0[j] = "x"
			}
			want += i
			batches = append(batches, makeBatch("Retail", l0, 1))
		}
		ind, err := Merge(batches)
		require.NoError(t, err)
		assert.Len(t, ind.L0, want)
	}
}

func TestMerge_FirstNonEmptyIdentityWins(t *testing.T) {
	first := makeBatch("", []string{"A"}, 1)
	first.IndustryDescription = ""
	second := makeBatch("Retail", []string{"B"}, 1)
	second.IndustryDescription = "second"
	third := makeBatch("Retail & Consumer", []string{"C"}, 1)
	third.IndustryDescription = "third"

	ind, err := Merge([]*Batch{first, second, third})
	require.NoError(t, err)
	assert.Equal(t, "Retail", ind.Name)
	assert.Equal(t, "second", ind.Description)
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	b := makeBatch("Retail", []string{"A"}, 1)
	ind, err := Merge([]*Batch{b})
	require.NoError(t, err)

	ind.L0[0].Name = "changed"
	ind.L0[0].L1[0].L2 = l2Entries(1, "x")

	assert.Equal(t, "A", b.L0[0].Name)
	assert.Empty(t, b.L0[0].L1[0].L2)
}

func TestMerge_NilBatch(t *testing.T) {
	_, err := Merge([]*Batch{makeBatch("Retail", []string{"A"}, 1), nil})
	require.Error(t, err)
	assert.True(t, errors.IsMergeError(err))
}

func TestMerge_Empty(t *testing.T) {
	ind, err := Merge(nil)
	require.NoError(t, err)
	assert.Empty(t, ind.L0)
	assert.True(t, ind.Complete())
}

func TestMergeJSON(t *testing.T) {
	ind, err := MergeJSON([][]byte{[]byte(retailBatch), []byte(retailBatch)})
	require.NoError(t, err)
	assert.Len(t, ind.L0, 2)
	assert.Equal(t, 2, ind.Declared.L1)
}

func TestMergeJSON_InvalidChunk(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
	}{
		{"not json", "not json"},
		{"null", "null"},
		{"empty object", "{}"},
		{"unrelated object", `{"foo":1}`},
		{"array", `[` + retailBatch + `]`},
		{"missing counts", `{"industry":"Retail","industry_description":"d","L0_capabilities":[]}`},
		{"wrong shape", `{"industry":"Retail","industry_description":"d","L0_capabilities":"none","L0_capabilities_count":0,"L1_capabilities_count":0,"L2_capabilities_count":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind, err := MergeJSON([][]byte{[]byte(retailBatch), []byte(tt.chunk)})
			require.Error(t, err)
			assert.Nil(t, ind)
			assert.True(t, errors.IsMergeError(err))
			assert.Equal(t, errors.KindMerge, errors.KindOf(err))
			assert.Contains(t, err.Error(), "chunk 1")
		})
	}
}

func TestMissingBatchKey(t *testing.T) {
	key, err := MissingBatchKey([]byte(retailBatch))
	require.NoError(t, err)
	assert.Empty(t, key)

	key, err = MissingBatchKey([]byte("null"))
	require.NoError(t, err)
	assert.Equal(t, "industry", key)

	key, err = MissingBatchKey([]byte(`{"industry":"Retail","industry_description":"d","L0_capabilities":[],"L0_capabilities_count":0,"L1_capabilities_count":0}`))
	require.NoError(t, err)
	assert.Equal(t, "L2_capabilities_count", key)

	_, err = MissingBatchKey([]byte(`[]`))
	assert.Error(t, err)
}

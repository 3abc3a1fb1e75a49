package dataset

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIndices_Sizes(t *testing.T) {
	tests := []struct {
		n        int
		testSize float64
		wantTest int
	}{
		{10, 0.2, 2},
		{11, 0.2, 3}, // ceil
		{5, 0.2, 1},
		{100, 0.25, 25},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			train, test, err := SplitIndices(tt.n, tt.testSize, 42)
			require.NoError(t, err)
			assert.Len(t, test, tt.wantTest)
			assert.Len(t, train, tt.n-tt.wantTest)
		})
	}
}

func TestSplitIndices_DisjointAndComplete(t *testing.T) {
	train, test, err := SplitIndices(50, 0.2, 7)
	require.NoError(t, err)

	all := append(slices.Clone(train), test...)
	slices.Sort(all)
	for i, v := range all {
		require.Equal(t, i, v)
	}
}

func TestSplitIndices_Deterministic(t *testing.T) {
	train1, test1, err := SplitIndices(30, 0.2, 42)
	require.NoError(t, err)
	train2, test2, err := SplitIndices(30, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	_, test3, err := SplitIndices(30, 0.2, 43)
	require.NoError(t, err)
	assert.NotEqual(t, test1, test3)
}

func TestSplitIndices_Errors(t *testing.T) {
	_, _, err := SplitIndices(10, 0, 42)
	assert.Error(t, err)

	_, _, err = SplitIndices(10, 1, 42)
	assert.Error(t, err)

	_, _, err = SplitIndices(1, 0.2, 42)
	assert.ErrorIs(t, err, ErrSplitTooSmall)

	_, _, err = SplitIndices(0, 0.2, 42)
	assert.ErrorIs(t, err, ErrSplitTooSmall)
}

func TestDatasetSplit(t *testing.T) {
	var b strings.Builder
	b.WriteString("text,final_difficulty\n")
	for i := range 20 {
		fmt.Fprintf(&b, "passage number %d,level%d\n", i, i%3)
	}
	ds, err := Read(strings.NewReader(b.String()), DefaultColumns())
	require.NoError(t, err)

	train, test, err := ds.Split(0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, 16, train.Len())
	assert.Equal(t, 4, test.Len())
	assert.Equal(t, ds.Header, test.Header)
}

package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrSplitTooSmall indicates that a split would leave one side empty.
var ErrSplitTooSmall = errors.New("not enough rows to split into train and test sets")

// SplitIndices shuffles 0..n-1 with a seeded generator and returns the
// train and test index sets. The test set holds ceil(n*testSize) rows.
// The same n, testSize and seed always produce the same partition.
func SplitIndices(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %g", testSize)
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 1 || nTest >= n {
		return nil, nil, fmt.Errorf("%w: %d rows with test size %g", ErrSplitTooSmall, n, testSize)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	return perm[nTest:], perm[:nTest], nil
}

// Split partitions the dataset into train and test sets.
func (d *Dataset) Split(testSize float64, seed uint64) (train, test *Dataset, err error) {
	trainIdx, testIdx, err := SplitIndices(len(d.Rows), testSize, seed)
	if err != nil {
		return nil, nil, err
	}
	return d.Subset(trainIdx), d.Subset(testIdx), nil
}

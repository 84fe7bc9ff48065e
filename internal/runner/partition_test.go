package runner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_Examples(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		workers int
		want    []int
	}{
		{"even split", 5000, 4, []int{1250, 1250, 1250, 1250}},
		{"remainder to first workers", 10, 3, []int{4, 3, 3}},
		{"fewer requests than workers", 2, 4, []int{1, 1, 0, 0}},
		{"zero requests", 0, 3, []int{0, 0, 0}},
		{"single worker", 7, 1, []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Partition(tt.total, tt.workers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPartition_SumAndSpread(t *testing.T) {
	for total := 0; total <= 300; total += 7 {
		for workers := 1; workers <= 17; workers++ {
			counts, err := Partition(total, workers)
			require.NoError(t, err)
			require.Len(t, counts, workers)

			sum, lo, hi := 0, counts[0], counts[0]
			for _, n := range counts {
				sum += n
				lo = min(lo, n)
				hi = max(hi, n)
			}
			assert.Equal(t, total, sum, "total=%d workers=%d", total, workers)
			assert.LessOrEqual(t, hi-lo, 1, "total=%d workers=%d", total, workers)
		}
	}
}

func TestPartition_InvalidInput(t *testing.T) {
	_, err := Partition(10, 0)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "concurrency", cfgErr.Field)

	_, err = Partition(-1, 2)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "requests", cfgErr.Field)
}

func TestAssign_SkipsEmptyShares(t *testing.T) {
	cfg := DefaultConfig()
	got := assign(&cfg, []int{2, 1, 0, 0})

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 2, got[0].Requests)
	assert.Equal(t, 1, got[1].Index)
	assert.Same(t, &cfg, got[1].Config)
}

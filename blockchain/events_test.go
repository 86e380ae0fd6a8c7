package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanWindowsPartition(t *testing.T) {
	ws := scanWindows(1, 12_000, ScanWindow)
	require.Len(t, ws, 3)
	assert.Equal(t, window{1, 5000}, ws[0])
	assert.Equal(t, window{5001, 10_000}, ws[1])
	assert.Equal(t, window{10_001, 12_000}, ws[2])
}

func TestScanWindowsExactMultiple(t *testing.T) {
	ws := scanWindows(1, 10_000, ScanWindow)
	require.Len(t, ws, 2)
	assert.Equal(t, window{5001, 10_000}, ws[1])
}

func TestScanWindowsSingleBlock(t *testing.T) {
	ws := scanWindows(42, 42, ScanWindow)
	require.Len(t, ws, 1)
	assert.Equal(t, window{42, 42}, ws[0])
}

func TestScanWindowsCoverWithoutGapsOrOverlap(t *testing.T) {
	ws := scanWindows(100, 23_456, ScanWindow)
	require.NotEmpty(t, ws)
	assert.Equal(t, uint64(100), ws[0].from)
	assert.Equal(t, uint64(23_456), ws[len(ws)-1].to)
	for i := 1; i < len(ws); i++ {
		assert.Equal(t, ws[i-1].to+1, ws[i].from)
	}
}

package channels

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singnet/snet-client-go/types"
)

var testMPE = common.HexToAddress("0x5e592F9b1d303183d963635f895f0f0C48284f4e")

func TestStoreLoadMissingIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir(), testMPE)
	state, err := s.Load()
	require.NoError(t, err)
	assert.Zero(t, state.LastScannedBlock)
	assert.Empty(t, state.Channels)
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir(), testMPE)
	saved := &cacheState{
		LastScannedBlock: 123456,
		Channels: []types.ChannelInfo{{
			ID:         types.NewBigInt(big.NewInt(7)),
			Sender:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
			Signer:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
			Recipient:  common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
			Value:      types.NewBigInt(big.NewInt(1000)),
			Expiration: types.NewBigInt(big.NewInt(999999)),
		}},
	}
	require.NoError(t, s.Save(saved))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), loaded.LastScannedBlock)
	require.Len(t, loaded.Channels, 1)
	assert.Equal(t, int64(7), loaded.Channels[0].ID.Unwrap().Int64())
	assert.Equal(t, saved.Channels[0].Sender, loaded.Channels[0].Sender)
	assert.Equal(t, int64(1000), loaded.Channels[0].Value.Unwrap().Int64())
}

func TestStoreCorruptCacheRebuildsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, testMPE)
	require.NoError(t, s.Save(&cacheState{LastScannedBlock: 5}))
	require.NoError(t, os.WriteFile(s.path, []byte("{broken"), 0o644))

	state, err := s.Load()
	require.NoError(t, err)
	assert.Zero(t, state.LastScannedBlock)
}

func TestStorePathIsScopedByEscrow(t *testing.T) {
	dir := t.TempDir()
	a := NewStore(dir, testMPE)
	b := NewStore(dir, common.HexToAddress("0x0000000000000000000000000000000000000001"))
	assert.NotEqual(t, a.path, b.path)
	assert.True(t, strings.HasPrefix(a.path, filepath.Join(dir, "cache", "mpe")))
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, testMPE)
	require.NoError(t, s.Save(&cacheState{LastScannedBlock: 1}))

	entries, err := os.ReadDir(filepath.Dir(s.path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "channels.json", entries[0].Name())
}

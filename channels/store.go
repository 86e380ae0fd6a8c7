package channels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singnet/snet-client-go/types"
)

// cacheState is the serialized shape of the channel cache.
type cacheState struct {
	LastScannedBlock uint64              `json:"last_scanned_block"`
	Channels         []types.ChannelInfo `json:"channels"`
}

// Store persists the channel cache for one escrow address. Caches of
// different escrow contracts never share a file, so switching contracts
// yields a disjoint cache.
type Store struct {
	path string
}

// NewStore places the cache under baseDir at cache/mpe/{escrow}/channels.json.
func NewStore(baseDir string, mpe common.Address) *Store {
	return &Store{
		path: filepath.Join(baseDir, "cache", "mpe", strings.ToLower(mpe.Hex()), "channels.json"),
	}
}

// Load reads the cache; a missing file is an empty cache.
func (s *Store) Load() (*cacheState, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &cacheState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read channel cache: %w", err)
	}
	var state cacheState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt cache is rebuilt from chain events rather than fatal.
		return &cacheState{}, nil
	}
	return &state, nil
}

// Save writes the cache atomically: tempfile in the same directory, then
// rename.
func (s *Store) Save(state *cacheState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode channel cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".channels-*")
	if err != nil {
		return fmt.Errorf("create cache tempfile: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write channel cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close channel cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace channel cache: %w", err)
	}
	return nil
}

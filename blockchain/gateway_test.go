package blockchain

import (
	"context"
	"math/big"
	"testing"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitConfirmationsDefaultReturnsOnFirstReceipt(t *testing.T) {
	receipt := &ethtypes.Receipt{BlockNumber: big.NewInt(100)}

	// Depths 0 and 1 never touch the node again; only deeper settings poll.
	for _, depth := range []uint64{0, 1} {
		g := &Gateway{confirmations: depth}
		require.NoError(t, g.waitConfirmations(context.Background(), receipt))
	}
}

func TestWithConfirmationsOption(t *testing.T) {
	g := &Gateway{}
	WithConfirmations(6)(g)
	assert.Equal(t, uint64(6), g.confirmations)
}

package payment

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextVoucherAdvancesByPrice(t *testing.T) {
	s := testSigner(t, testKey)
	e := NewEngine(s, testMPE)

	state := &State{
		CurrentNonce:        big.NewInt(0),
		CurrentSignedAmount: big.NewInt(300),
		Unspent:             big.NewInt(700),
	}
	v, err := e.NextVoucher(big.NewInt(42), state, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(310), v.Amount.Int64())
	assert.Equal(t, int64(0), v.Nonce.Int64())
	assert.Equal(t, testMPE, v.MPEAddress)
	assert.Len(t, v.Signature, 65)
}

func TestNextVoucherIsIdempotentOnSameState(t *testing.T) {
	s := testSigner(t, testKey)
	e := NewEngine(s, testMPE)

	state := &State{
		CurrentNonce:        big.NewInt(2),
		CurrentSignedAmount: big.NewInt(50),
	}
	first, err := e.NextVoucher(big.NewInt(7), state, big.NewInt(5))
	require.NoError(t, err)
	second, err := e.NextVoucher(big.NewInt(7), state, big.NewInt(5))
	require.NoError(t, err)

	// A retry after a transport failure re-signs the identical voucher, so
	// no funds are burned by resending it.
	assert.Equal(t, first.Amount, second.Amount)
	assert.Equal(t, first.Signature, second.Signature)
}

func TestLockChannelSerializes(t *testing.T) {
	s := testSigner(t, testKey)
	e := NewEngine(s, testMPE)

	var mu sync.Mutex
	active := 0
	peak := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := e.LockChannel(big.NewInt(1))
			defer unlock()
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestLockChannelIndependentChannels(t *testing.T) {
	s := testSigner(t, testKey)
	e := NewEngine(s, testMPE)

	unlockA := e.LockChannel(big.NewInt(1))
	defer unlockA()
	done := make(chan struct{})
	go func() {
		unlockB := e.LockChannel(big.NewInt(2))
		unlockB()
		close(done)
	}()
	<-done
}

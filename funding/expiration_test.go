package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singnet/snet-client-go/types"
)

func TestResolveExpirationAbsolute(t *testing.T) {
	target, err := ResolveExpiration("1230000", 1_200_000, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_230_000), target.Uint64())
}

func TestResolveExpirationRelativeBlocks(t *testing.T) {
	target, err := ResolveExpiration("+500blocks", 1_000_000, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_500), target.Uint64())
}

func TestResolveExpirationRelativeDays(t *testing.T) {
	target, err := ResolveExpiration("+10days", 1_000_000, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000+10*BlocksPerDay), target.Uint64())
}

func TestResolveExpirationFarTargetNeedsForce(t *testing.T) {
	_, err := ResolveExpiration("+365days", 1_000_000, false)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrExpirationTooFar))

	target, err := ResolveExpiration("+365days", 1_000_000, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000+365*BlocksPerDay), target.Uint64())
}

func TestResolveExpirationHorizonBoundary(t *testing.T) {
	// Exactly at the horizon is allowed without force.
	target, err := ResolveExpiration("+180days", 1_000_000, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000+180*BlocksPerDay), target.Uint64())
}

func TestResolveExpirationRejectsPastTargets(t *testing.T) {
	for _, expr := range []string{"100", "1000", "+0blocks", "+0days"} {
		_, err := ResolveExpiration(expr, 1000, false)
		require.Error(t, err, "expression %q", expr)
		assert.True(t, types.IsCode(err, types.ErrExpirationTooClose), "expression %q", expr)
	}

	// Force does not override the lower bound; an expired channel is useless.
	_, err := ResolveExpiration("100", 1000, true)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrExpirationTooClose))
}

func TestResolveExpirationRejectsGarbage(t *testing.T) {
	for _, expr := range []string{"", "+days", "tomorrow", "-5blocks", "+1.5days"} {
		_, err := ResolveExpiration(expr, 1_000_000, false)
		assert.Error(t, err, "expression %q", expr)
	}
}

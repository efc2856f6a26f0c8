package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

func ownershipCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	catalog, err := models.NewCatalog([]models.Player{
		{ID: 1, Position: models.PositionMID, OwnershipPercent: 60},
		{ID: 2, Position: models.PositionMID, OwnershipPercent: 2},
		{ID: 3, Position: models.PositionFWD, OwnershipPercent: 150},
		{ID: 4, Position: models.PositionFWD},
	})
	require.NoError(t, err)
	return catalog
}

func TestApply_StandardIsIdentity(t *testing.T) {
	catalog := ownershipCatalog(t)
	scores := map[int]float64{1: 50, 2: 40, 3: 30, 4: 20, 99: 10}

	once := Apply(scores, catalog, Standard)
	twice := Apply(once, catalog, Standard)
	assert.Equal(t, scores, once)
	assert.Equal(t, once, twice)
}

func TestApply_Multipliers(t *testing.T) {
	catalog := ownershipCatalog(t)
	scores := map[int]float64{1: 50, 2: 40, 3: 30, 4: 20}

	protect := Apply(scores, catalog, RankProtection)
	assert.InDelta(t, 50*1.3, protect[1], 1e-9)
	assert.InDelta(t, 40*1.01, protect[2], 1e-9)
	assert.InDelta(t, 30.0, protect[3], 1e-9, "ownership above 100%% is treated as unowned")
	assert.InDelta(t, 20.0, protect[4], 1e-9)

	climb := Apply(scores, catalog, RankClimbing)
	assert.InDelta(t, 50*1.4, climb[1], 1e-9)
	assert.InDelta(t, 40*1.98, climb[2], 1e-9)
	assert.InDelta(t, 60.0, climb[3], 1e-9)
	assert.InDelta(t, 40.0, climb[4], 1e-9)
}

func TestApply_DoesNotMutateInputAndKeepsUnknownIDs(t *testing.T) {
	catalog := ownershipCatalog(t)
	scores := map[int]float64{1: 50, 42: 7}

	out := Apply(scores, catalog, RankClimbing)
	assert.Equal(t, map[int]float64{1: 50, 42: 7}, scores)
	assert.Equal(t, 7.0, out[42])
}

func TestApply_OrderingByOwnership(t *testing.T) {
	// Equal base scores: protection prefers the owned player, climbing the differential.
	catalog := ownershipCatalog(t)
	scores := map[int]float64{1: 10, 2: 10}

	assert.Greater(t, Apply(scores, catalog, RankProtection)[1], Apply(scores, catalog, RankProtection)[2])
	assert.Greater(t, Apply(scores, catalog, RankClimbing)[2], Apply(scores, catalog, RankClimbing)[1])
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Standard, got)

	_, err = ParseMode("yolo")
	assert.Error(t, err)
}

func TestTier(t *testing.T) {
	assert.Equal(t, "template", Tier(models.Player{OwnershipPercent: 45}))
	assert.Equal(t, "popular", Tier(models.Player{OwnershipPercent: 12}))
	assert.Equal(t, "moderate", Tier(models.Player{OwnershipPercent: 6}))
	assert.Equal(t, "differential", Tier(models.Player{OwnershipPercent: 1}))
}

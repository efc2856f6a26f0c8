package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	catalog, err := NewCatalog([]Player{
		{ID: 3, Name: "Salah", Position: PositionMID, Cost: 13},
		{ID: 1, Name: "Raya", Position: PositionGK, Cost: 5.5},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.Len())
	assert.Equal(t, []int{1, 3}, catalog.IDs())
	p, ok := catalog.Get(3)
	require.True(t, ok)
	assert.Equal(t, "Salah", p.Name)
	_, ok = catalog.Get(2)
	assert.False(t, ok)

	players := catalog.Players()
	players[0].Name = "changed"
	p, _ = catalog.Get(3)
	assert.Equal(t, "Salah", p.Name)
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := NewCatalog([]Player{
		{ID: 1, Position: PositionGK},
		{ID: 1, Position: PositionDEF},
	})
	assert.ErrorIs(t, err, ErrDuplicatePlayer)

	_, err = NewCatalog([]Player{{ID: 2, Position: "GOALIE"}})
	assert.ErrorIs(t, err, ErrUnknownPlayerPosition)

	_, err = NewCatalog([]Player{{ID: 3, Position: PositionFWD, Cost: -1}})
	assert.Error(t, err)
}

func TestCatalog_SubsetAndCounts(t *testing.T) {
	catalog, err := NewCatalog([]Player{
		{ID: 1, Position: PositionGK},
		{ID: 2, Position: PositionDEF},
		{ID: 3, Position: PositionDEF},
		{ID: 4, Position: PositionFWD},
	})
	require.NoError(t, err)

	sub := catalog.Subset([]int{2, 3, 99})
	assert.Equal(t, 2, sub.Len())
	assert.True(t, sub.Has(2))
	assert.False(t, sub.Has(1))

	counts := catalog.CountByPosition()
	assert.Equal(t, 2, counts[PositionDEF])
	assert.Equal(t, 0, counts[PositionMID])
}

func TestParsePosition(t *testing.T) {
	cases := map[string]Position{
		"GK": PositionGK, "gkp": PositionGK, "1": PositionGK,
		"DEF": PositionDEF, "2": PositionDEF,
		"mid": PositionMID, "3": PositionMID,
		"FW": PositionFWD, "FWD": PositionFWD, "4": PositionFWD,
	}
	for in, want := range cases {
		got, err := ParsePosition(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePosition("5")
	assert.ErrorIs(t, err, ErrUnknownPlayerPosition)
}

func TestFormationString(t *testing.T) {
	players := []Player{{Position: PositionGK}}
	for i := 0; i < 4; i++ {
		players = append(players, Player{Position: PositionDEF})
	}
	for i := 0; i < 4; i++ {
		players = append(players, Player{Position: PositionMID})
	}
	players = append(players, Player{Position: PositionFWD}, Player{Position: PositionFWD})

	assert.Equal(t, "4-4-2", FormationString(players))
}

func TestPointsPerCost(t *testing.T) {
	assert.Equal(t, 20.0, Player{Cost: 5, TotalPoints: 100}.PointsPerCost())
	assert.Zero(t, Player{Cost: 0, TotalPoints: 100}.PointsPerCost())
}

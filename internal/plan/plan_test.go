package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBoardsDeniesAtCeiling(t *testing.T) {
	limits := DefaultLimits()
	require.NoError(t, CheckBoards(limits, Free, 49))
	assert.Error(t, CheckBoards(limits, Free, 50))
}

func TestCheckBoardsProIsUnlimited(t *testing.T) {
	limits := DefaultLimits()
	assert.NoError(t, CheckBoards(limits, Pro, 1_000_000))
}

func TestCheckCardsDeniesAtCeiling(t *testing.T) {
	limits := DefaultLimits()
	require.NoError(t, CheckCards(limits, Free, 499))
	assert.Error(t, CheckCards(limits, Free, 500))
}

func TestCheckUnknownTierIsUnrestricted(t *testing.T) {
	limits := DefaultLimits()
	assert.NoError(t, CheckBoards(limits, Tier("ENTERPRISE"), 10_000))
}

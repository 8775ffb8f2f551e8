package dal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSetDifferenceFindsForeignIDs(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	foreign := setDifference([]uuid.UUID{a, b, c}, []uuid.UUID{a, b})
	assert.Equal(t, []uuid.UUID{c}, foreign)
}

func TestSetDifferenceEmptyWhenAllOwned(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	foreign := setDifference([]uuid.UUID{a, b}, []uuid.UUID{b, a})
	assert.Empty(t, foreign)
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.True(t, PriorityUrgent.Valid())
	assert.False(t, Priority("CRITICAL").Valid())
	assert.False(t, Priority("").Valid())
}

func TestSameAssignee(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.True(t, sameAssignee(nil, nil))
	assert.False(t, sameAssignee(nil, &a))
	assert.False(t, sameAssignee(&a, nil))
	assert.True(t, sameAssignee(&a, &a))
	assert.False(t, sameAssignee(&a, &b))
}

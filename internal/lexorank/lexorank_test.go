package lexorank

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAfterEmpty(t *testing.T) {
	assert.Equal(t, "m", NextAfter(""))
}

func TestNextAfterIncrements(t *testing.T) {
	assert.Equal(t, "n", NextAfter("m"))
	assert.Equal(t, "mm", NextAfter("ml"))
}

func TestNextAfterWrapsOnZ(t *testing.T) {
	assert.Equal(t, "za", NextAfter("z"))
	assert.Equal(t, "mza", NextAfter("mz"))
}

func TestNextAfterOrdering(t *testing.T) {
	r := NextAfter("")
	for i := 0; i < 50; i++ {
		next := NextAfter(r)
		require.Less(t, r, next, "rank %d should sort before rank %d", i, i+1)
		r = next
	}
}

func TestMidpointOrdering(t *testing.T) {
	before := "m"
	mid := Midpoint(before, "n")
	assert.Greater(t, mid, before)
	assert.Less(t, mid, "n")
}

func TestNextAfterOverflowAtCeiling(t *testing.T) {
	long := make([]byte, MaxLength)
	for i := range long {
		long[i] = 'm'
	}
	r := NextAfter(string(long))
	first, _ := utf8.DecodeRuneInString(r)
	assert.Equal(t, rune(0xFFFF), first)
}

type rankedItem struct {
	id    int
	order string
}

func (r rankedItem) Rank() string { return r.order }

func TestRebalanceAssignsIncreasingRanks(t *testing.T) {
	items := []rankedItem{
		{id: 1, order: "mzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{id: 2, order: "a"},
		{id: 3, order: "g"},
	}
	out := Rebalance(items)
	require.Len(t, out, 3)
	// items[1] ("a") sorts first, items[2] ("g") second, items[0] (long) third.
	assert.Less(t, out[1], out[2])
	assert.Less(t, out[2], out[0])
}

func TestRebalanceIsIdempotent(t *testing.T) {
	items := []rankedItem{
		{id: 1, order: "f"},
		{id: 2, order: "b"},
		{id: 3, order: "z"},
	}
	first := Rebalance(items)

	withFirst := make([]rankedItem, len(items))
	for i, it := range items {
		withFirst[i] = rankedItem{id: it.id, order: first[i]}
	}
	second := Rebalance(withFirst)

	assert.Equal(t, first, second)
}

func TestRebalanceBeyond26Items(t *testing.T) {
	items := make([]rankedItem, 30)
	for i := range items {
		items[i] = rankedItem{id: i, order: string(rune('a' + i%26))}
	}
	out := Rebalance(items)
	assert.Len(t, out, 30)
}

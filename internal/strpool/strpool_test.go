package strpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIdempotent(t *testing.T) {
	p := New()
	id1 := p.Add("P1/A.cppl")
	id2 := p.Add("P1/A.cppl")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, Invalid, id1)
}

func TestAddMonotonic(t *testing.T) {
	p := New()
	ids := make([]ID, 0, 3)
	for _, s := range []string{"a", "b", "c"} {
		ids = append(ids, p.Add(s))
	}
	assert.Equal(t, []ID{1, 2, 3}, ids)
}

func TestGetRoundTrip(t *testing.T) {
	p := New()
	id := p.Add("P1/B.cppl")
	s, ok := p.Get(id)
	require.True(t, ok)
	assert.Equal(t, "P1/B.cppl", s)
}

func TestGetInvalid(t *testing.T) {
	p := New()
	_, ok := p.Get(Invalid)
	assert.False(t, ok)
	_, ok = p.Get(ID(999))
	assert.False(t, ok)
}

func TestTwoPoolsDoNotShareIDs(t *testing.T) {
	p1 := New()
	p2 := New()
	id1 := p1.Add("x")
	id2 := p2.Add("y")
	assert.Equal(t, id1, id2) // both 1, but from different pools
	s, _ := p1.Get(id2)
	assert.NotEqual(t, "y", s)
}

func TestItemsOrder(t *testing.T) {
	p := New()
	p.Add("a")
	p.Add("b")
	items := p.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Value)
	assert.Equal(t, "b", items[1].Value)
}

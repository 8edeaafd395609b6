package viewstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneDoesNotShareFilters(t *testing.T) {
	s := State{
		SortKey:  "cutNumber",
		SortDesc: true,
		Filters:  map[string]string{"loIn": "済"},
		ScrollY:  120,
	}
	cp := s.Clone()
	cp.Filters["loIn"] = "changed"

	assert.Equal(t, "済", s.Filters["loIn"])
	assert.Equal(t, "cutNumber", cp.SortKey)
	assert.Equal(t, 120, cp.ScrollY)
}

func TestCloneOfZeroState(t *testing.T) {
	var s State
	cp := s.Clone()
	assert.Nil(t, cp.Filters)
}

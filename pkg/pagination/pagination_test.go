package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsValidate(t *testing.T) {
	p := &Params{Page: 0, PerPage: 500}
	p.Validate()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PerPage)

	p = &Params{Page: 3, PerPage: 10}
	p.Validate()
	assert.Equal(t, 20, p.Offset())
}

func TestPageSlicing(t *testing.T) {
	items := make([]int, 7)
	for i := range items {
		items[i] = i
	}

	res := Page(items, &Params{Page: 2, PerPage: 3})
	assert.Equal(t, []int{3, 4, 5}, res.Items)
	assert.Equal(t, int64(7), res.Pagination.Total)
	assert.Equal(t, 3, res.Pagination.TotalPages)
	assert.True(t, res.Pagination.HasNext)
	assert.True(t, res.Pagination.HasPrev)

	res = Page(items, &Params{Page: 3, PerPage: 3})
	assert.Equal(t, []int{6}, res.Items)
	assert.False(t, res.Pagination.HasNext)
}

func TestPagePastEnd(t *testing.T) {
	res := Page([]string{"a", "b"}, &Params{Page: 9, PerPage: 25})
	assert.Empty(t, res.Items)
	assert.Equal(t, int64(2), res.Pagination.Total)
}

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		page, limit  int
		total, items int
		hasNext      bool
		hasPrev      bool
	}{
		{"single page", 1, 20, 3, 3, false, false},
		{"middle page of 12 by 5", 2, 5, 12, 5, true, true},
		{"last partial page", 3, 5, 12, 2, false, true},
		{"first of many", 1, 5, 12, 5, true, false},
		{"empty catalog", 1, 20, 0, 0, false, false},
		{"page past the end", 4, 5, 12, 0, false, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			items := make([]*Media, tt.items)
			p := NewPage(items, tt.page, tt.limit, tt.total)

			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.hasNext, p.HasNext, "hasNext")
			assert.Equal(t, tt.hasPrev, p.HasPrev, "hasPrev")
			assert.Len(t, p.Items, tt.items)
		})
	}
}

func TestNewPage_NilItems(t *testing.T) {
	t.Parallel()

	p := NewPage(nil, 1, 20, 0)
	assert.NotNil(t, p.Items, "items serializes as [] rather than null")
}

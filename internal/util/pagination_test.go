package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size          int
		wantOffset, wantLim int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 0, 0, DefaultPageSize},
		{-2, 500, 0, MaxPageSize},
	}
	for _, tc := range tests {
		off, lim := Calculate(tc.page, tc.size)
		assert.Equal(t, tc.wantOffset, off)
		assert.Equal(t, tc.wantLim, lim)
	}
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}

func TestMeta(t *testing.T) {
	t.Parallel()

	m := Meta(2, 10, 10, 25)
	assert.Equal(t, int64(3), m["total_pages"])
	assert.Equal(t, true, m["has_prev"])
	assert.Equal(t, true, m["has_next"])

	m = Meta(3, 20, 10, 25)
	assert.Equal(t, false, m["has_next"])
}

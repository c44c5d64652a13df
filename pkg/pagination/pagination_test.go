package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Params
		want Params
	}{
		{"defaults", Params{}, Params{Page: 1, Limit: DefaultLimit}},
		{"negative page", Params{Page: -2, Limit: 20}, Params{Page: 1, Limit: 20}},
		{"over max limit", Params{Page: 3, Limit: 500}, Params{Page: 3, Limit: MaxLimit}},
		{"passthrough", Params{Page: 2, Limit: 50}, Params{Page: 2, Limit: 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 12}.Offset())
	assert.Equal(t, 24, Params{Page: 3, Limit: 12}.Offset())
	assert.Equal(t, 0, Params{}.Offset())
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Params{Page: 2, Limit: 10}, 25)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 10, meta.Limit)
	assert.Equal(t, int64(25), meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	empty := NewMeta(Params{}, 0)
	assert.Equal(t, 1, empty.TotalPages)
}

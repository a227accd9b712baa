package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsert(t *testing.T) {
	tests := []struct {
		name string
		list []string
		text string
		want []string
	}{
		{name: "append to empty", list: nil, text: "A", want: []string{"A"}},
		{name: "append new", list: []string{"B"}, text: "A", want: []string{"B", "A"}},
		{name: "no duplicate", list: []string{"B", "A"}, text: "A", want: []string{"B", "A"}},
		{name: "moves existing to end", list: []string{"A", "B"}, text: "A", want: []string{"B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Upsert(tt.list, tt.text))
		})
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	once := Upsert([]string{"B"}, "A")
	twice := Upsert(once, "A")
	assert.Equal(t, once, twice)
}

func TestUpsert_DoesNotMutateInput(t *testing.T) {
	list := []string{"A", "B"}
	_ = Upsert(list, "A")
	assert.Equal(t, []string{"A", "B"}, list)
}

func TestRemove(t *testing.T) {
	assert.Equal(t, []string{"Y"}, Remove([]string{"X", "Y"}, "X"))
	assert.Equal(t, []string{"X", "Y"}, Remove([]string{"X", "Y"}, "Z"))
	assert.Empty(t, Remove(nil, "X"))
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name   string
		list   []string
		old    string
		text   string
		want   []string
		wantOK bool
	}{
		{
			name:   "in place",
			list:   []string{"X", "Y", "Z"},
			old:    "Y",
			text:   "Y2",
			want:   []string{"X", "Y2", "Z"},
			wantOK: true,
		},
		{
			name:   "same text",
			list:   []string{"X", "Y"},
			old:    "Y",
			text:   "Y",
			want:   []string{"X", "Y"},
			wantOK: true,
		},
		{
			name:   "drops other occurrence of new text",
			list:   []string{"X", "Y", "Z"},
			old:    "X",
			text:   "Z",
			want:   []string{"Z", "Y"},
			wantOK: true,
		},
		{
			name:   "missing old",
			list:   []string{"X"},
			old:    "Q",
			text:   "R",
			want:   []string{"X"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Replace(tt.list, tt.old, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplaceByAlias(t *testing.T) {
	list := []string{"// alias1\na + 1", "// alias2\nb * 2"}

	got, ok := ReplaceByAlias(list, "alias1", "// alias1\na + 10")
	assert.True(t, ok)
	assert.Len(t, got, len(list))
	assert.Equal(t, []string{"// alias1\na + 10", "// alias2\nb * 2"}, got)

	got, ok = ReplaceByAlias(list, "missing", "x")
	assert.False(t, ok)
	assert.Equal(t, list, got)
}

func TestFindByAlias(t *testing.T) {
	list := []string{"// alias1\na + 1", "c - d"}

	text, ok := FindByAlias(list, "alias1")
	assert.True(t, ok)
	assert.Equal(t, "// alias1\na + 1", text)

	text, ok = FindByAlias(list, "c - d")
	assert.True(t, ok)
	assert.Equal(t, "c - d", text)

	_, ok = FindByAlias(list, "nope")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Normalize([]string{"A", "B", "A"}))
	assert.Empty(t, Normalize(nil))
}

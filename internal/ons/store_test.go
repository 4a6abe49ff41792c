package ons

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAdd_MergesDuplicateID(t *testing.T) {
	store := NewStore()
	store.Add(areaWithSquare("101", "Centretown", 100, -75.8, 45.0, 0.2))
	store.Add(areaWithSquare("101", "Centretown East", 999, -75.5, 45.0, 0.2))

	require.Equal(t, 1, store.Len())
	a, ok := store.Get("101")
	require.True(t, ok)
	assert.Equal(t, "Centretown", a.Name)
	assert.Equal(t, float64(100), a.Population)
	assert.Len(t, a.Polygons(), 2)
}

func TestStoreAdd_IgnoresEmptyID(t *testing.T) {
	store := NewStore()
	store.Add(&Area{ID: "  ", Name: "Nowhere"})
	store.Add(nil)

	assert.Equal(t, 0, store.Len())
}

func TestFindByName_FoldsAccentsAndCase(t *testing.T) {
	store := NewStore()
	store.Add(&Area{ID: "201", Name: "Côte-du-Nord"})

	for _, name := range []string{"Côte-du-Nord", "cote du nord", "CÔTE-DU-NORD", "cote-du-nord"} {
		id, ok := store.FindByName(name)
		require.True(t, ok, "name %q should resolve", name)
		assert.Equal(t, "201", id)
	}
}

func TestFindByName_CollapsesPunctuation(t *testing.T) {
	store := NewStore()
	store.Add(&Area{ID: "202", Name: "Hintonburg - Mechanicsville"})

	id, ok := store.FindByName("hintonburg mechanicsville")
	require.True(t, ok)
	assert.Equal(t, "202", id)
}

func TestFindByName_Unknown(t *testing.T) {
	store := NewStore()
	store.Add(&Area{ID: "201", Name: "Alta Vista"})

	_, ok := store.FindByName("Barrhaven")
	assert.False(t, ok)
}

func TestFindByName_FirstRegistrationWins(t *testing.T) {
	store := NewStore()
	store.Add(&Area{ID: "301", Name: "Overlap"})
	store.Add(&Area{ID: "302", Name: "OVERLAP"})

	id, ok := store.FindByName("overlap")
	require.True(t, ok)
	assert.Equal(t, "301", id)
}

func TestFoldName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Centretown", "centretown"},
		{"  Vanier  ", "vanier"},
		{"Côte-du-Nord", "cote du nord"},
		{"Hintonburg - Mechanicsville", "hintonburg mechanicsville"},
		{"Queenswood Heights & Area", "queenswood heights area"},
		{"", ""},
		{"---", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, foldName(tc.in), "foldName(%q)", tc.in)
	}
}

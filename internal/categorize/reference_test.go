package categorize

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOSMReferences(t *testing.T) {
	path := writeTable(t, "osm.csv",
		"name,lat,lon,amenity\n"+
			"Joe's Corner Diner,45.4001,-75.7002,restaurant\n"+
			"Corner Pharmacy,45.41,-75.71,pharmacy\n"+
			"Broken Row,not-a-number,-75.7,cafe\n"+
			",45.4,-75.7,cafe\n"+
			"Null Island Cafe,0,0,cafe\n")

	refs, err := LoadOSMReferences(path)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Joe's Corner Diner", refs[0].Name)
	assert.Equal(t, CategoryRestaurant, refs[0].Category)
	assert.InDelta(t, 45.4001, refs[0].Lat, 1e-9)
	assert.InDelta(t, -75.7002, refs[0].Lng, 1e-9)
}

func TestLoadOSMReferences_ShopColumn(t *testing.T) {
	path := writeTable(t, "osm.csv",
		"name,lat,lng,shop\n"+
			"Beechwood Butcher,45.44,-75.67,butcher\n")

	refs, err := LoadOSMReferences(path)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, CategorySpecialtyFood, refs[0].Category)
}

func TestLoadOSMReferences_MissingFile(t *testing.T) {
	_, err := LoadOSMReferences(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestLoadGroceryReferences(t *testing.T) {
	path := writeTable(t, "grocery.csv",
		"name,latitude,longitude\n"+
			"Beechwood Market,45.44,-75.67\n"+
			"Parkdale Food Centre,45.40,-75.72\n")

	refs, err := LoadGroceryReferences(path)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for _, ref := range refs {
		assert.Equal(t, CategoryGrocery, ref.Category)
	}
}

func TestLoadedReferencesMatchable(t *testing.T) {
	path := writeTable(t, "osm.csv",
		"name,lat,lon,amenity\n"+
			"Joe's Corner Diner,45.4001,-75.7002,restaurant\n")
	refs, err := LoadOSMReferences(path)
	require.NoError(t, err)

	c, err := New(nil, nil, refs, 0, 0)
	require.NoError(t, err)
	m := c.Categorize("Joe's Corner Diner", 45.4, -75.7)
	require.Equal(t, SourceCrossref, m.Source)
	assert.Equal(t, CategoryRestaurant, m.Category)
}

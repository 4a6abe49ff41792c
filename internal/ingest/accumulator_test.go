package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/openneighbourhoods/civic-cli/internal/ons"
)

// squareArea builds an area whose single polygon is an axis-aligned
// square, the simplest containment fixture.
func squareArea(id, name string, pop, minLng, minLat, size float64) *ons.Area {
	a := &ons.Area{ID: id, Name: name, Population: pop}
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		minLng, minLat,
		minLng + size, minLat,
		minLng + size, minLat + size,
		minLng, minLat + size,
		minLng, minLat,
	})
	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(ring); err != nil {
		panic(err)
	}
	a.AddPolygon(poly)
	return a
}

// --- Labels ---

func TestPrimaryLabel(t *testing.T) {
	assert.Equal(t, "Theft", PrimaryLabel("Theft | Vol"))
	assert.Equal(t, "Theft", PrimaryLabel("  Theft  "))
	assert.Equal(t, "Road Repair", PrimaryLabel("Road Repair"))
	assert.Equal(t, "", PrimaryLabel(""))
	assert.Equal(t, "", PrimaryLabel(" | Vol"))
	// Latin-1 junk bytes are dropped before the split.
	assert.Equal(t, "Caf", PrimaryLabel("Caf\xe9 | Café"))
}

// --- Accumulation and finalize ---

func TestAccumulator_FractionsRoundOnceAtFinalize(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Riverview", 3000, -75.8, 45.0, 0.4))

	acc := NewAccumulator()
	// Three thirds must finalize to exactly 1, not 0 from per-add rounding.
	third := 1.0 / 3.0
	acc.Add("101", third)
	acc.Add("101", third)
	acc.Add("101", third)

	metrics := acc.Finalize(store, 10)
	require.Contains(t, metrics, "101")
	assert.Equal(t, 1.0, metrics["101"].Total)
}

func TestAccumulator_Finalize(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Riverview", 2000, -75.8, 45.0, 0.4))

	acc := NewAccumulator()
	for i := 0; i < 5; i++ {
		acc.Add("101", 1)
		acc.AddType("101", "Theft | Vol", 1)
	}
	acc.AddRecent("101", 1)
	acc.AddRecent("101", 1)

	metrics := acc.Finalize(store, 10)
	m := metrics["101"]
	require.NotNil(t, m)

	assert.Equal(t, "Riverview", m.Name)
	assert.Equal(t, 5.0, m.Total)
	assert.Equal(t, 2.0, m.Recent)
	assert.Equal(t, 2.5, m.RatePer1000)
	require.Len(t, m.Types, 1)
	assert.Equal(t, TypeCount{Label: "Theft", Count: 5}, m.Types[0])
}

func TestAccumulator_Finalize_ZeroPopulationNoRate(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Greenbelt", 0, -75.8, 45.0, 0.4))

	acc := NewAccumulator()
	acc.Add("101", 4)

	metrics := acc.Finalize(store, 10)
	require.Contains(t, metrics, "101")
	assert.Equal(t, 4.0, metrics["101"].Total)
	assert.Equal(t, 0.0, metrics["101"].RatePer1000)
}

func TestAccumulator_Finalize_DropsUnknownAreas(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Riverview", 2000, -75.8, 45.0, 0.4))

	acc := NewAccumulator()
	acc.Add("101", 1)
	acc.Add("999", 1)

	metrics := acc.Finalize(store, 10)
	assert.Len(t, metrics, 1)
	assert.Contains(t, metrics, "101")
}

func TestAddType_EmptyLabelIgnored(t *testing.T) {
	acc := NewAccumulator()
	acc.Add("101", 1)
	acc.AddType("101", "", 1)
	acc.AddType("101", "   ", 1)
	acc.AddType("101", " | Vol", 1)

	require.Contains(t, acc.Tallies(), "101")
	assert.Empty(t, acc.Tallies()["101"].Types)
}

// --- Top types ---

func TestTopTypes_OrderAndCap(t *testing.T) {
	types := map[string]float64{
		"Theft":    10,
		"Assault":  7,
		"Mischief": 7,
		"Fraud":    2,
	}

	top := topTypes(types, 3)
	require.Len(t, top, 3)
	assert.Equal(t, TypeCount{Label: "Theft", Count: 10}, top[0])
	// Equal counts order by label so reruns emit identical artifacts.
	assert.Equal(t, TypeCount{Label: "Assault", Count: 7}, top[1])
	assert.Equal(t, TypeCount{Label: "Mischief", Count: 7}, top[2])
}

func TestTopTypes_RoundsCounts(t *testing.T) {
	top := topTypes(map[string]float64{"Theft": 2.6}, 5)
	require.Len(t, top, 1)
	assert.Equal(t, 3.0, top[0].Count)
}

func TestTopTypes_Empty(t *testing.T) {
	assert.Nil(t, topTypes(nil, 5))
	assert.Nil(t, topTypes(map[string]float64{"Theft": 1}, 0))
}

// --- Attribution ---

func TestResolveCoord_PointWins(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Riverview", 3000, -75.8, 45.0, 0.4))
	store.Add(squareArea("102", "Old Mill", 1000, -75.3, 45.0, 0.2))
	store.SetWard("5", []string{"101", "102"})

	shares, how := resolveCoord(store, 45.1, -75.7, "5")
	assert.Equal(t, attributedCoord, how)
	assert.Equal(t, map[string]float64{"101": 1}, shares)
}

func TestResolveCoord_WardFallbackSplitsByPopulation(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Riverview", 3000, -75.8, 45.0, 0.4))
	store.Add(squareArea("102", "Old Mill", 1000, -75.3, 45.0, 0.2))
	store.SetWard("5", []string{"101", "102"})

	shares, how := resolveCoord(store, 52.0, -100.0, "5")
	assert.Equal(t, attributedWard, how)
	require.Len(t, shares, 2)
	assert.InDelta(t, 0.75, shares["101"], 1e-9)
	assert.InDelta(t, 0.25, shares["102"], 1e-9)
}

func TestResolveCoord_Unassignable(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Riverview", 3000, -75.8, 45.0, 0.4))

	shares, how := resolveCoord(store, 52.0, -100.0, "99")
	assert.Equal(t, attributedNone, how)
	assert.Nil(t, shares)
}

func TestResolveName_MatchIgnoresCaseAndAccents(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Côte-du-Nord", 3000, -75.8, 45.0, 0.4))

	shares, how := resolveName(store, "cote du nord", "")
	assert.Equal(t, attributedName, how)
	assert.Equal(t, map[string]float64{"101": 1}, shares)
}

func TestResolveName_WardFallback(t *testing.T) {
	store := ons.NewStore()
	store.Add(squareArea("101", "Riverview", 3000, -75.8, 45.0, 0.4))
	store.SetWard("5", []string{"101"})

	shares, how := resolveName(store, "No Such Place", "5")
	assert.Equal(t, attributedWard, how)
	assert.Equal(t, map[string]float64{"101": 1}, shares)

	_, how = resolveName(store, "No Such Place", "99")
	assert.Equal(t, attributedNone, how)
}

package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openneighbourhoods/civic-cli/internal/ons"
)

func requestsTestAreas() *ons.Store {
	store := ons.NewStore()
	east := squareArea("201", "Eastway", 2000, -75.8, 45.0, 0.4)
	east.AreaKm2 = 4
	store.Add(east)
	store.Add(squareArea("202", "Farpoint", 500, -70.0, 40.0, 0.2))
	store.SetWard("3", []string{"201", "202"})
	return store
}

func TestIsRoadComplaint(t *testing.T) {
	keywords := []string{"road", "pothole", " Snow "}

	assert.True(t, isRoadComplaint(requestRow{Type: "Pothole | Nid-de-poule"}, keywords))
	assert.True(t, isRoadComplaint(requestRow{Type: "Other", Description: "damaged ROAD surface"}, keywords))
	assert.True(t, isRoadComplaint(requestRow{Type: "Snow Removal"}, keywords))
	assert.False(t, isRoadComplaint(requestRow{Type: "Graffiti", Description: "on the wall"}, keywords))
	assert.False(t, isRoadComplaint(requestRow{Type: "Pothole"}, nil))
}

func TestRequests_Process(t *testing.T) {
	env := newTestEnv(t, requestsTestAreas())
	writeInput(t, env, "requests.csv",
		"type,description,lat,lng,ward,date\n"+
			"Pothole | Nid-de-poule,Deep hole on Main,45.1,-75.7,,2024-01-15\n"+
			"Graffiti,On the wall,45.1,-75.7,,2019-02-01\n"+
			"Snow Removal,Street not plowed,,,3,2024-03-01\n"+
			"Noise,Loud party,50.0,-60.0,99,2024-01-01\n"+
			"x\n")

	d := &Requests{}
	res, err := d.Process(context.Background(), env)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Geolocated)
	assert.Equal(t, 1, res.WardAssigned)
	assert.Equal(t, 1, res.Unassigned)
	assert.Equal(t, 2, res.Areas)

	var metrics map[string]*RequestsAreaMetrics
	decodeArtifact(t, res.OutputPath, &metrics)

	// Eastway: two located requests plus 0.8 of the ward-split one. The
	// pothole and the snow request both count as road complaints.
	east := metrics["201"]
	require.NotNil(t, east)
	assert.Equal(t, "Eastway", east.Name)
	assert.Equal(t, 3.0, east.Total)
	assert.Equal(t, 2.0, east.Recent)
	assert.Equal(t, 1.4, east.RatePer1000)
	assert.Equal(t, 2.0, east.RoadComplaints)
	assert.Equal(t, 0.45, east.RoadComplaintsPerKm2)
	require.Len(t, east.Types, 3)
	assert.Equal(t, "Graffiti", east.Types[0].Label)
	assert.Equal(t, "Pothole", east.Types[1].Label)
	assert.Equal(t, "Snow Removal", east.Types[2].Label)

	// Farpoint has no area size on file, so no density.
	far := metrics["202"]
	require.NotNil(t, far)
	assert.Equal(t, 0.0, far.RoadComplaints)
	assert.Equal(t, 0.0, far.RoadComplaintsPerKm2)
}

func TestRequests_Process_NoRoadKeywords(t *testing.T) {
	env := newTestEnv(t, requestsTestAreas())
	env.Config.Requests.RoadTypes = nil
	writeInput(t, env, "requests.csv",
		"type,lat,lng\n"+
			"Pothole,45.1,-75.7\n")

	res, err := (&Requests{}).Process(context.Background(), env)
	require.NoError(t, err)

	var metrics map[string]*RequestsAreaMetrics
	decodeArtifact(t, res.OutputPath, &metrics)
	require.Contains(t, metrics, "201")
	assert.Equal(t, 1.0, metrics["201"].Total)
	assert.Equal(t, 0.0, metrics["201"].RoadComplaints)
}

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_StandardDatasets(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"crime", "requests", "development", "food"}, reg.AllNames())
}

func TestRegistry_SelectEmptyReturnsAllInOrder(t *testing.T) {
	reg := NewRegistry()

	datasets, err := reg.Select(nil)
	require.NoError(t, err)
	require.Len(t, datasets, 4)
	assert.Equal(t, "crime", datasets[0].Name())
	assert.Equal(t, "food", datasets[3].Name())
}

func TestRegistry_SelectByName(t *testing.T) {
	reg := NewRegistry()

	datasets, err := reg.Select([]string{"food", "crime"})
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	assert.Equal(t, "food", datasets[0].Name())
	assert.Equal(t, "crime", datasets[1].Name())
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("census")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dataset "census"`)
}

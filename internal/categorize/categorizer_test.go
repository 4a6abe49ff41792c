package categorize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCategorizer(t *testing.T, overrides Overrides, refs []Reference) *Categorizer {
	t.Helper()
	c, err := New(overrides, nil, refs, 0, 0)
	require.NoError(t, err)
	return c
}

func TestCategorize_EmptyName(t *testing.T) {
	c := newTestCategorizer(t, nil, nil)

	m := c.Categorize("   ", 45.4, -75.7)
	assert.Equal(t, SourceNone, m.Source)
	assert.Empty(t, m.Category)
}

func TestCategorize_OverrideBeatsPattern(t *testing.T) {
	overrides := Overrides{NormalizeName("Board of Education Café"): CategoryInstitutional}
	c := newTestCategorizer(t, overrides, nil)

	// "café" would pattern-match cafe; the override outranks it.
	m := c.Categorize("Board of Education Café", 45.4, -75.7)
	assert.Equal(t, SourceOverride, m.Source)
	assert.Equal(t, CategoryInstitutional, m.Category)
}

func TestCategorize_SchoolCafeteriaPriorityCascade(t *testing.T) {
	c := newTestCategorizer(t, nil, nil)

	// Matches institutional (school, cafeteria) and fast_food (pizza);
	// institutional has the lower priority number and wins.
	m := c.Categorize("ABC School Cafeteria Pizza Corner", 45.4, -75.7)
	assert.Equal(t, SourcePattern, m.Source)
	assert.Equal(t, CategoryInstitutional, m.Category)
}

func TestCategorize_PriorityIndependentOfRuleOrder(t *testing.T) {
	rules := DefaultRules()
	for i, j := 0, len(rules)-1; i < j; i, j = i+1, j-1 {
		rules[i], rules[j] = rules[j], rules[i]
	}
	c, err := New(nil, rules, nil, 0, 0)
	require.NoError(t, err)

	m := c.Categorize("ABC School Cafeteria Pizza Corner", 45.4, -75.7)
	assert.Equal(t, CategoryInstitutional, m.Category)
}

func TestCategorize_ChainPattern(t *testing.T) {
	c := newTestCategorizer(t, nil, nil)

	m := c.Categorize("Tim Hortons", 45.4, -75.7)
	assert.Equal(t, SourcePattern, m.Source)
	assert.Equal(t, CategoryFastFood, m.Category)
}

func TestCategorize_WordBoundary(t *testing.T) {
	c := newTestCategorizer(t, nil, nil)

	// "sub" must not match inside "substation".
	m := c.Categorize("Substation Electronics", 45.4, -75.7)
	assert.Equal(t, SourceNone, m.Source)

	m = c.Categorize("Mr. Sub", 45.4, -75.7)
	assert.Equal(t, CategoryFastFood, m.Category)
}

func TestCategorize_CrossrefDiner(t *testing.T) {
	refs := []Reference{
		NewReference("Joe's Corner Diner", 45.4001, -75.7002, CategoryRestaurant),
	}
	c := newTestCategorizer(t, nil, refs)

	// No keyword matches "Joe's Corner Diner"; the nearby identical
	// reference resolves it with similarity 1.0.
	m := c.Categorize("Joe's Corner Diner", 45.4, -75.7)
	require.Equal(t, SourceCrossref, m.Source)
	assert.Equal(t, CategoryRestaurant, m.Category)
	assert.InDelta(t, 1.0, m.Similarity, 1e-9)
	assert.Equal(t, "Joe's Corner Diner", m.Reference)
}

func TestCategorize_CrossrefRequiresProximity(t *testing.T) {
	refs := []Reference{
		// Identical name, but more than 0.0005 degrees away.
		NewReference("Joe's Corner Diner", 45.41, -75.7, CategoryRestaurant),
	}
	c := newTestCategorizer(t, nil, refs)

	m := c.Categorize("Joe's Corner Diner", 45.4, -75.7)
	assert.Equal(t, SourceNone, m.Source)
}

func TestCategorize_CrossrefRequiresSimilarity(t *testing.T) {
	refs := []Reference{
		// Same coordinates, unrelated name.
		NewReference("Golden Palace Buffet", 45.4, -75.7, CategoryRestaurant),
	}
	c := newTestCategorizer(t, nil, refs)

	m := c.Categorize("Joe's Corner Diner", 45.4, -75.7)
	assert.Equal(t, SourceNone, m.Source)
}

func TestCategorize_CrossrefThresholdIsStrict(t *testing.T) {
	// Similarity works out to exactly 0.6, which does not clear the gate.
	refs := []Reference{
		NewReference("alpha bravo charlie echo", 45.4, -75.7, CategoryRestaurant),
	}
	c := newTestCategorizer(t, nil, refs)

	m := c.Categorize("alpha bravo charlie delta", 45.4, -75.7)
	assert.Equal(t, SourceNone, m.Source)
}

func TestCategorize_CrossrefHighestSimilarityWins(t *testing.T) {
	refs := []Reference{
		NewReference("Corner Diner", 45.4, -75.7, CategoryCafe),
		NewReference("Joe's Corner Diner", 45.4, -75.7, CategoryRestaurant),
	}
	c := newTestCategorizer(t, nil, refs)

	m := c.Categorize("Joe's Corner Diner", 45.4, -75.7)
	require.Equal(t, SourceCrossref, m.Source)
	assert.Equal(t, CategoryRestaurant, m.Category)
}

func TestCategorize_CrossrefTieKeepsFirstReference(t *testing.T) {
	refs := []Reference{
		NewReference("Joe's Corner Diner", 45.4, -75.7, CategoryCafe),
		NewReference("Joe's Corner Diner", 45.4, -75.7, CategoryRestaurant),
	}
	c := newTestCategorizer(t, nil, refs)

	m := c.Categorize("Joe's Corner Diner", 45.4, -75.7)
	require.Equal(t, SourceCrossref, m.Source)
	assert.Equal(t, CategoryCafe, m.Category)
}

func TestCategorize_CrossrefSkipsBadCoordinates(t *testing.T) {
	refs := []Reference{
		NewReference("Joe's Corner Diner", 45.4, -75.7, CategoryRestaurant),
	}
	c := newTestCategorizer(t, nil, refs)

	m := c.Categorize("Joe's Corner Diner", math.NaN(), -75.7)
	assert.Equal(t, SourceNone, m.Source)

	m = c.Categorize("Joe's Corner Diner", 0, 0)
	assert.Equal(t, SourceNone, m.Source)
}

func TestCategorize_Deterministic(t *testing.T) {
	refs := []Reference{
		NewReference("Joe's Corner Diner", 45.4, -75.7, CategoryRestaurant),
		NewReference("Corner Diner Express", 45.4, -75.7, CategoryFastFood),
	}
	c := newTestCategorizer(t, nil, refs)

	first := c.Categorize("Joe's Corner Diner", 45.4, -75.7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Categorize("Joe's Corner Diner", 45.4, -75.7))
	}
}

func TestCategorize_UncategorizedKeepsRecord(t *testing.T) {
	c := newTestCategorizer(t, nil, nil)

	m := c.Categorize("Zzyzx Holdings", 45.4, -75.7)
	assert.Equal(t, SourceNone, m.Source)
	assert.Empty(t, m.Category)
	assert.Zero(t, m.Similarity)
}

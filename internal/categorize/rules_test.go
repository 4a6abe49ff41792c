package categorize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultRules_Compile(t *testing.T) {
	compiled, err := compileRules(DefaultRules())
	require.NoError(t, err)
	assert.Len(t, compiled, len(DefaultRules()))
}

func TestDefaultRules_PrioritiesStrictlyIncrease(t *testing.T) {
	rules := DefaultRules()
	require.NotEmpty(t, rules)
	assert.Equal(t, 1, rules[0].Priority)
	for i := 1; i < len(rules); i++ {
		assert.Greater(t, rules[i].Priority, rules[i-1].Priority,
			"rule %s out of order", rules[i].Category)
	}
}

func TestDefaultRules_CategoriesAreStandard(t *testing.T) {
	for _, r := range DefaultRules() {
		assert.True(t, ValidCategory(r.Category), "category %s", r.Category)
		assert.NotEmpty(t, r.Patterns, "category %s", r.Category)
	}
}

func TestLoadRules_YAML(t *testing.T) {
	path := writeTable(t, "rules.yaml", `
- category: institutional
  priority: 1
  patterns: ["school", "cafeteria"]
- category: fast_food
  priority: 13
  patterns: ["pizza"]
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, CategoryInstitutional, rules[0].Category)
	assert.Equal(t, []string{"pizza"}, rules[1].Patterns)

	c, err := New(nil, rules, nil, 0, 0)
	require.NoError(t, err)
	m := c.Categorize("ABC School Cafeteria Pizza Corner", 45.4, -75.7)
	assert.Equal(t, CategoryInstitutional, m.Category)
}

func TestLoadRules_MissingCategory(t *testing.T) {
	path := writeTable(t, "rules.yaml", `
- priority: 1
  patterns: ["school"]
`)

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no category")
}

func TestLoadRules_BadPriority(t *testing.T) {
	path := writeTable(t, "rules.yaml", `
- category: cafe
  priority: 0
  patterns: ["espresso"]
`)

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive priority")
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadOverrides_NormalizesKeys(t *testing.T) {
	path := writeTable(t, "overrides.yaml", `
"Joe's Corner Diner": cafe
"Café Crème": restaurant
`)

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, CategoryCafe, overrides["joe s corner diner"])
	assert.Equal(t, CategoryRestaurant, overrides["cafe creme"])
}

func TestLoadOverrides_AppliedThroughCascade(t *testing.T) {
	path := writeTable(t, "overrides.yaml", `
"Tim Hortons": institutional
`)
	overrides, err := LoadOverrides(path)
	require.NoError(t, err)

	c, err := New(overrides, nil, nil, 0, 0)
	require.NoError(t, err)
	m := c.Categorize("Tim Hortons", 45.4, -75.7)
	assert.Equal(t, SourceOverride, m.Source)
	assert.Equal(t, CategoryInstitutional, m.Category)
}

func TestLoadOverrides_EmptyCategory(t *testing.T) {
	path := writeTable(t, "overrides.yaml", `
"Some Place": ""
`)

	_, err := LoadOverrides(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no category")
}

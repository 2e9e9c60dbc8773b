package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoOverridePath_ReturnsDefaults(t *testing.T) {
	c := Load("", nil)
	assert.NotEmpty(t, c.PriorityPackages())
	assert.NotEmpty(t, c.ArchiveGuides())
	assert.Equal(t, defaultPriorityPackages, c.PriorityPackages())
}

func TestLoad_ValidOverride_ReplacesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
priority_packages:
  - owner: acme
    repo: widgets
    tier: ecosystem
    description: test package
`), 0o644))

	c := Load(path, nil)
	packages := c.PriorityPackages()
	require.Len(t, packages, 1)
	assert.Equal(t, "acme", packages[0].Owner)
	// archive guides weren't overridden, so defaults survive untouched
	assert.Equal(t, defaultArchiveGuides, c.ArchiveGuides())
}

func TestLoad_MalformedOverride_FallsBackSilently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	c := Load(path, nil)
	assert.Equal(t, defaultPriorityPackages, c.PriorityPackages())
}

func TestLoad_MissingOverrideFile_FallsBackSilently(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Equal(t, defaultPriorityPackages, c.PriorityPackages())
}

func TestReplacePriorityPackages_Swaps(t *testing.T) {
	c := Load("", nil)
	fresh := []PriorityPackage{{Owner: "apple", Repo: "swift", Tier: TierAppleOfficial}}
	c.ReplacePriorityPackages(fresh)
	assert.Equal(t, fresh, c.PriorityPackages())
}

func TestExtractRepoRefs_DedupesAndStripsGitSuffix(t *testing.T) {
	content := `See github.com/apple/swift-nio and github.com/apple/swift-nio.git again, plus github.com/pointfreeco/swift-composable-architecture.`
	refs := ExtractRepoRefs(content)
	assert.Equal(t, []RepoRef{
		{Owner: "apple", Repo: "swift-nio"},
		{Owner: "pointfreeco", Repo: "swift-composable-architecture"},
	}, refs)
}

func TestWriteJSON_WritesReadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "priority-packages.json")
	packages := []PriorityPackage{{Owner: "apple", Repo: "swift", Tier: TierAppleOfficial, Stars: 100}}
	require.NoError(t, WriteJSON(path, packages))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"owner": "apple"`)
}

package crawl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_FreshDirectory(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())
	assert.True(t, st.ShouldRecrawl("https://example.com/a", "hash1", filepath.Join(dir, "a.json"), false))
}

func TestUpdatePage_TracksNewAndUpdatedCounters(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())

	filePath := filepath.Join(dir, "docs", "swiftui", "view.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(t, os.WriteFile(filePath, []byte("{}"), 0o644))

	st.UpdatePage("https://example.com/view", PageMetadata{
		Framework:   "swiftui",
		FilePath:    filePath,
		ContentHash: "hash1",
		Depth:       1,
		LastCrawled: time.Now(),
	})

	stats := st.Statistics()
	assert.Equal(t, 1, stats.TotalPages)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 0, stats.Updated)

	// Recrawling the same URL with the same hash and an existing file
	// should not require a refetch.
	assert.False(t, st.ShouldRecrawl("https://example.com/view", "hash1", filePath, false))

	// A changed hash requires a refetch, and updating again increments
	// "updated" rather than "new".
	assert.True(t, st.ShouldRecrawl("https://example.com/view", "hash2", filePath, false))
	st.UpdatePage("https://example.com/view", PageMetadata{
		Framework:   "swiftui",
		FilePath:    filePath,
		ContentHash: "hash2",
		Depth:       1,
		LastCrawled: time.Now(),
	})
	stats = st.Statistics()
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Updated)
}

func TestShouldRecrawl_MissingFileForcesRefetch(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())

	filePath := filepath.Join(dir, "docs", "foundation", "url.json")
	st.UpdatePage("https://example.com/url", PageMetadata{
		Framework:   "foundation",
		FilePath:    filePath,
		ContentHash: "hash1",
	})

	// filePath was never actually written to disk.
	assert.True(t, st.ShouldRecrawl("https://example.com/url", "hash1", filePath, false))
}

func TestShouldRecrawl_ForceAlwaysTrue(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())

	assert.True(t, st.ShouldRecrawl("https://example.com/anything", "", "", true))
}

func TestSaveSessionState_RoundTripsThroughLoadOrCreate(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())

	session := CrawlSessionState{
		Visited:          []string{"https://example.com/a", "https://example.com/b"},
		Queue:            []QueueEntry{{URL: "https://example.com/c", Depth: 2}},
		StartURL:         "https://example.com/a",
		OutputDirectory:  dir,
		SessionStartTime: time.Now(),
		IsActive:         true,
	}
	require.NoError(t, st.SaveSessionState(session))

	reloaded := NewState(dir)
	require.NoError(t, reloaded.LoadOrCreate())
	active, ok := reloaded.ActiveSession()
	require.True(t, ok)
	assert.Equal(t, session.Visited, active.Visited)
	assert.Equal(t, session.Queue, active.Queue)
	assert.True(t, active.IsActive)
}

func TestClearSessionState_RemovesActiveMarker(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())
	require.NoError(t, st.SaveSessionState(CrawlSessionState{IsActive: true}))

	_, ok := st.ActiveSession()
	require.True(t, ok)

	require.NoError(t, st.ClearSessionState())
	_, ok = st.ActiveSession()
	assert.False(t, ok)
}

func TestAutoSaveIfNeeded_SkipsWithinInterval(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())
	st.autoSaveInterval = time.Hour

	session := CrawlSessionState{IsActive: true, LastSaveTime: time.Now()}
	require.NoError(t, st.AutoSaveIfNeeded(session))

	// metadata.json should not exist yet: the interval hasn't elapsed and
	// SaveSessionState was never called directly.
	_, err := os.Stat(filepath.Join(dir, metadataFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestAutoSaveIfNeeded_SavesWhenIntervalElapsed(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())
	st.autoSaveInterval = time.Millisecond

	session := CrawlSessionState{IsActive: true, LastSaveTime: time.Now().Add(-time.Hour)}
	require.NoError(t, st.AutoSaveIfNeeded(session))

	_, err := os.Stat(filepath.Join(dir, metadataFileName))
	assert.NoError(t, err)
}

func TestFinalizeCrawl_ClearsSessionAndStampsLastCrawl(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())
	require.NoError(t, st.SaveSessionState(CrawlSessionState{IsActive: true}))
	require.NoError(t, st.FinalizeCrawl())

	_, ok := st.ActiveSession()
	assert.False(t, ok)
}

func TestRecordFrameworkErrorAndMarkComplete(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())

	st.RecordFrameworkError("swiftui")
	st.MarkFrameworkComplete("swiftui")

	frameworks := st.FrameworkStatistics()
	assert.Equal(t, 1, frameworks["swiftui"].Errors)
	assert.Equal(t, FrameworkStatusComplete, frameworks["swiftui"].Status)
	assert.Equal(t, 1, st.Statistics().Errors)
}

func TestLoadOrCreate_DiscardsMetadataWhenMostFilesMissing(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.LoadOrCreate())

	// Ten pages recorded, but only one backing file actually exists: well
	// under the 50% survival threshold.
	for i := 0; i < 10; i++ {
		url := filepath.Join("https://example.com", string(rune('a'+i)))
		path := filepath.Join(dir, string(rune('a'+i))+".json")
		if i == 0 {
			require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		}
		st.UpdatePage(url, PageMetadata{FilePath: path, ContentHash: "x"})
	}
	require.NoError(t, st.persist())

	reloaded := NewState(dir)
	require.NoError(t, reloaded.LoadOrCreate())
	assert.Empty(t, reloaded.FrameworkStatistics())
	assert.Equal(t, 0, reloaded.Statistics().TotalPages)
}

func TestLockUnlock_UnlockIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	st := NewState(dir)
	require.NoError(t, st.Lock())
	require.NoError(t, st.Unlock())
	require.NoError(t, st.Unlock()) // safe to call twice
}

// Package crawl implements the crawl state actor (metadata + session
// checkpoint, change detection, per-framework counters) and the crawl
// engine's fetch/extract/persist state machine built on top of it.
package crawl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

const (
	metadataFileName = "metadata.json"
	lockFileName     = "metadata.json.lock"

	// defaultAutoSaveInterval is the wall-clock threshold autoSaveIfNeeded
	// checks against before writing a fresh checkpoint.
	defaultAutoSaveInterval = 30 * time.Second

	// spotCheckSampleSize bounds how many page entries loadOrCreate
	// verifies exist on disk before trusting a metadata file.
	spotCheckSampleSize = 100

	// spotCheckMinSurviving is the fraction of sampled entries that must
	// still exist on disk for a metadata file to be trusted.
	spotCheckMinSurviving = 0.5
)

// PageMetadata records what the crawl engine knows about one URL as of
// its last successful persist.
type PageMetadata struct {
	Framework   string    `json:"framework"`
	FilePath    string    `json:"filePath"`
	ContentHash string    `json:"contentHash"`
	Depth       int       `json:"depth"`
	LastCrawled time.Time `json:"lastCrawled"`
}

// FrameworkStats tracks per-framework counters across a crawl.
type FrameworkStats struct {
	Pages   int    `json:"pages"`
	New     int    `json:"new"`
	Updated int    `json:"updated"`
	Errors  int    `json:"errors"`
	Status  string `json:"status"` // "inProgress" | "complete"
}

const (
	FrameworkStatusInProgress = "inProgress"
	FrameworkStatusComplete   = "complete"
)

// QueueEntry is one pending fetch in a checkpointed crawl session.
type QueueEntry struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// CrawlSessionState is the resumability checkpoint: everything needed to
// pick a crawl back up after an interruption.
type CrawlSessionState struct {
	Visited          []string     `json:"visited"`
	Queue            []QueueEntry `json:"queue"`
	StartURL         string       `json:"startURL"`
	OutputDirectory  string       `json:"outputDirectory"`
	SessionStartTime time.Time    `json:"sessionStartTime"`
	LastSaveTime     time.Time    `json:"lastSaveTime"`
	IsActive         bool         `json:"isActive"`
}

// CrawlStatistics are the crawl-wide counters summarized after a run.
type CrawlStatistics struct {
	TotalPages int `json:"totalPages"`
	New        int `json:"new"`
	Updated    int `json:"updated"`
	Errors     int `json:"errors"`
	Skipped    int `json:"skipped"`
}

// metadataFile is the on-disk shape of metadata.json (§6).
type metadataFile struct {
	Pages      map[string]PageMetadata   `json:"pages"`
	Frameworks map[string]FrameworkStats `json:"frameworks"`
	CrawlState *CrawlSessionState        `json:"crawlState,omitempty"`
	Stats      CrawlStatistics           `json:"stats"`
	LastCrawl  *time.Time                `json:"lastCrawl,omitempty"`
}

// State is the single-writer actor guarding one metadata record. All
// mutators are serialized through mu; callers never see a torn read.
type State struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
	data metadataFile

	autoSaveInterval time.Duration
}

// NewState constructs a State rooted at baseDir/metadata.json. It does not
// touch disk; call LoadOrCreate to populate it.
func NewState(baseDir string) *State {
	path := filepath.Join(baseDir, metadataFileName)
	return &State{
		path:             path,
		lock:             flock.New(filepath.Join(baseDir, lockFileName)),
		autoSaveInterval: defaultAutoSaveInterval,
		data: metadataFile{
			Pages:      make(map[string]PageMetadata),
			Frameworks: make(map[string]FrameworkStats),
		},
	}
}

// Lock acquires the cross-process crawl lock, blocking until available.
// Only one crawl may be active against a given base directory at a time.
func (s *State) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: create base directory", err)
	}
	if err := s.lock.Lock(); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: acquire crawl lock", err)
	}
	return nil
}

// Unlock releases the cross-process crawl lock. Safe to call even if Lock
// was never called or already released.
func (s *State) Unlock() error {
	if !s.lock.Locked() {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: release crawl lock", err)
	}
	return nil
}

// LoadOrCreate reads metadata.json if present and passes its spot-check,
// otherwise starts from an empty record. A metadata file that claims pages
// but whose backing files have mostly vanished (more than half of a
// sample of up to 100 evenly-spaced entries missing) is discarded rather
// than trusted, guarding against a hand-deleted output tree.
func (s *State) LoadOrCreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil // fresh start, s.data already zero-valued
	}
	if err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: read metadata.json", err)
	}

	var loaded metadataFile
	if err := json.Unmarshal(raw, &loaded); err != nil {
		// Corrupt metadata is treated the same as a failed spot-check: start
		// fresh rather than aborting the crawl.
		return nil
	}
	if loaded.Pages == nil {
		loaded.Pages = make(map[string]PageMetadata)
	}
	if loaded.Frameworks == nil {
		loaded.Frameworks = make(map[string]FrameworkStats)
	}

	if !spotCheckSurvives(loaded.Pages) {
		return nil
	}

	s.data = loaded
	return nil
}

// spotCheckSurvives samples up to spotCheckSampleSize evenly-spaced
// entries from pages and reports whether at least half of them still have
// a backing file on disk. An empty page set trivially survives.
func spotCheckSurvives(pages map[string]PageMetadata) bool {
	if len(pages) == 0 {
		return true
	}

	paths := make([]string, 0, len(pages))
	for _, p := range pages {
		paths = append(paths, p.FilePath)
	}

	sampleSize := len(paths)
	if sampleSize > spotCheckSampleSize {
		sampleSize = spotCheckSampleSize
	}

	stride := float64(len(paths)) / float64(sampleSize)
	surviving := 0
	for i := 0; i < sampleSize; i++ {
		idx := int(float64(i) * stride)
		if idx >= len(paths) {
			idx = len(paths) - 1
		}
		if _, err := os.Stat(paths[idx]); err == nil {
			surviving++
		}
	}

	return float64(surviving)/float64(sampleSize) >= spotCheckMinSurviving
}

// ShouldRecrawl reports whether url needs to be fetched again: forced,
// never seen before, content changed, or the backing file went missing.
func (s *State) ShouldRecrawl(url, contentHash, filePath string, force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if force {
		return true
	}

	prior, ok := s.data.Pages[url]
	if !ok {
		return true
	}
	if prior.ContentHash != contentHash {
		return true
	}
	if _, err := os.Stat(filePath); err != nil {
		return true
	}
	return false
}

// UpdatePage records a freshly persisted page, incrementing the owning
// framework's "new" or "updated" counter depending on whether url was
// already known.
func (s *State) UpdatePage(url string, meta PageMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.data.Pages[url]
	s.data.Pages[url] = meta

	stats := s.data.Frameworks[meta.Framework]
	stats.Pages++
	if existed {
		stats.Updated++
		s.data.Stats.Updated++
	} else {
		stats.New++
		s.data.Stats.New++
	}
	s.data.Frameworks[meta.Framework] = stats
	s.data.Stats.TotalPages++
}

// RecordFrameworkError increments framework's error counter for a
// fetch/parse/persist failure that did not abort the crawl.
func (s *State) RecordFrameworkError(framework string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.data.Frameworks[framework]
	stats.Errors++
	s.data.Frameworks[framework] = stats
	s.data.Stats.Errors++
}

// MarkFrameworkComplete flips a framework's status to complete once its
// portion of the crawl has fully drained.
func (s *State) MarkFrameworkComplete(framework string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.data.Frameworks[framework]
	stats.Status = FrameworkStatusComplete
	s.data.Frameworks[framework] = stats
}

// SaveSessionState writes session as the active checkpoint and persists
// the whole metadata file atomically (temp file + rename).
func (s *State) SaveSessionState(session CrawlSessionState) error {
	s.mu.Lock()
	session.LastSaveTime = time.Now()
	s.data.CrawlState = &session
	s.mu.Unlock()
	return s.persist()
}

// AutoSaveIfNeeded writes a checkpoint only if the wall clock since the
// last save exceeds the configured threshold (default 30s), to bound
// checkpoint I/O during a long crawl.
func (s *State) AutoSaveIfNeeded(session CrawlSessionState) error {
	s.mu.Lock()
	last := session.LastSaveTime
	interval := s.autoSaveInterval
	s.mu.Unlock()

	if !last.IsZero() && time.Since(last) < interval {
		return nil
	}
	return s.SaveSessionState(session)
}

// ClearSessionState removes the active-session marker after a clean
// completion; the next LoadOrCreate will see no crawlState to resume
// from.
func (s *State) ClearSessionState() error {
	s.mu.Lock()
	s.data.CrawlState = nil
	s.mu.Unlock()
	return s.persist()
}

// FinalizeCrawl clears the session checkpoint and stamps lastCrawl, the
// terminal write of a successful crawl invocation.
func (s *State) FinalizeCrawl() error {
	s.mu.Lock()
	s.data.CrawlState = nil
	now := time.Now()
	s.data.LastCrawl = &now
	s.mu.Unlock()
	return s.persist()
}

// ActiveSession returns the checkpointed session state, if any, and
// whether one was present (i.e. the prior invocation did not complete
// cleanly).
func (s *State) ActiveSession() (CrawlSessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.CrawlState == nil {
		return CrawlSessionState{}, false
	}
	return *s.data.CrawlState, true
}

// Statistics returns a snapshot of the crawl-wide counters.
func (s *State) Statistics() CrawlStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Stats
}

// FrameworkStatistics returns a snapshot of every framework's counters.
func (s *State) FrameworkStatistics() map[string]FrameworkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]FrameworkStats, len(s.data.Frameworks))
	for k, v := range s.data.Frameworks {
		out[k] = v
	}
	return out
}

// persist serializes the current metadata record and writes it atomically:
// write to a temp path alongside the destination, then rename, so a crash
// mid-write never leaves a half-written metadata.json behind.
func (s *State) persist() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: marshal metadata.json", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: create base directory", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: write metadata.json temp file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return cerr.PersistenceError(cerr.ErrCodeMetadataIO, "crawl state: rename metadata.json into place", err)
	}
	return nil
}

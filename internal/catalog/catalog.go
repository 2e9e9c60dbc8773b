// Package catalog holds the static external reference data this system
// ships with: a priority list of Swift/Apple-ecosystem packages and a
// curated list of archived documentation guides. Both can be overridden
// by a user-supplied YAML file, and the priority list can be refreshed
// post-crawl from GitHub (see refresh.go).
package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Tier ranks a priority package by how central it is to the Apple
// developer ecosystem.
type Tier string

const (
	TierAppleOfficial Tier = "apple-official"
	TierEcosystem      Tier = "ecosystem"
)

// PriorityPackage is one entry in the curated package list (§4.8): a
// Swift Package Manager package worth surfacing ahead of arbitrary
// GitHub search results.
type PriorityPackage struct {
	Owner       string `yaml:"owner" json:"owner"`
	Repo        string `yaml:"repo" json:"repo"`
	Tier        Tier   `yaml:"tier" json:"tier"`
	Description string `yaml:"description" json:"description"`
	Stars       int    `yaml:"stars" json:"stars"`
}

// ArchiveGuide is one curated legacy documentation guide: an archived
// Apple page plus the framework it documents.
type ArchiveGuide struct {
	URL       string `yaml:"url" json:"url"`
	Framework string `yaml:"framework" json:"framework"`
}

// defaultPriorityPackages is compiled into the binary so a fresh install
// has a usable catalog before any override file or refresh has run.
var defaultPriorityPackages = []PriorityPackage{
	{Owner: "apple", Repo: "swift", Tier: TierAppleOfficial, Description: "The Swift programming language."},
	{Owner: "apple", Repo: "swift-package-manager", Tier: TierAppleOfficial, Description: "Swift Package Manager."},
	{Owner: "apple", Repo: "swift-algorithms", Tier: TierAppleOfficial, Description: "Sequence and collection algorithms."},
	{Owner: "apple", Repo: "swift-collections", Tier: TierAppleOfficial, Description: "Additional data structures."},
	{Owner: "apple", Repo: "swift-async-algorithms", Tier: TierAppleOfficial, Description: "Async sequence algorithms."},
	{Owner: "apple", Repo: "swift-nio", Tier: TierAppleOfficial, Description: "Event-driven network application framework."},
	{Owner: "apple", Repo: "swift-numerics", Tier: TierAppleOfficial, Description: "Numerical computing shims and protocols."},
	{Owner: "pointfreeco", Repo: "swift-composable-architecture", Tier: TierEcosystem, Description: "State management architecture."},
	{Owner: "Alamofire", Repo: "Alamofire", Tier: TierEcosystem, Description: "HTTP networking library."},
	{Owner: "kishikawakatsumi", Repo: "KeychainAccess", Tier: TierEcosystem, Description: "Keychain wrapper."},
	{Owner: "realm", Repo: "realm-swift", Tier: TierEcosystem, Description: "Mobile database."},
	{Owner: "SnapKit", Repo: "SnapKit", Tier: TierEcosystem, Description: "Auto Layout DSL."},
	{Owner: "onevcat", Repo: "Kingfisher", Tier: TierEcosystem, Description: "Image downloading and caching."},
	{Owner: "ReactiveX", Repo: "RxSwift", Tier: TierEcosystem, Description: "Reactive extensions for Swift."},
}

// defaultArchiveGuides covers legacy guides Apple has retired from its
// live documentation site but that remain useful reference material.
var defaultArchiveGuides = []ArchiveGuide{
	{URL: "https://developer.apple.com/library/archive/documentation/Cocoa/Conceptual/CocoaFundamentals/", Framework: "appkit"},
	{URL: "https://developer.apple.com/library/archive/documentation/General/Conceptual/DevPedia-CocoaCore/", Framework: "foundation"},
	{URL: "https://developer.apple.com/library/archive/documentation/Cocoa/Conceptual/MemoryMgmt/", Framework: "foundation"},
	{URL: "https://developer.apple.com/library/archive/documentation/WindowsViews/Conceptual/ViewPG_iPhoneOS/", Framework: "uikit"},
	{URL: "https://developer.apple.com/library/archive/documentation/Performance/Conceptual/CocoaPerformance/", Framework: "foundation"},
}

// overrideFile is the on-disk shape of a user-supplied catalog override.
// Parsing failures fall back silently to the compiled-in defaults (§4.8):
// a malformed override must never take the catalog offline.
type overrideFile struct {
	PriorityPackages []PriorityPackage `yaml:"priority_packages"`
	ArchiveGuides     []ArchiveGuide    `yaml:"archive_guides"`
}

// Catalog holds the active priority-package and archive-guide lists,
// guarded by a mutex so a hot reload never races a concurrent reader.
type Catalog struct {
	mu               sync.RWMutex
	priorityPackages []PriorityPackage
	archiveGuides    []ArchiveGuide
	overridePath     string
	log              *slog.Logger
}

// Load builds a Catalog starting from the compiled-in defaults, then
// merging overridePath over them if it is set and parses successfully.
func Load(overridePath string, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	c := &Catalog{
		priorityPackages: append([]PriorityPackage(nil), defaultPriorityPackages...),
		archiveGuides:    append([]ArchiveGuide(nil), defaultArchiveGuides...),
		overridePath:     overridePath,
		log:              log,
	}
	c.reload()
	return c
}

// reload re-reads the override file, if configured, and replaces the
// active lists on success. Any failure (missing file, bad YAML) leaves
// the current lists untouched.
func (c *Catalog) reload() {
	if c.overridePath == "" {
		return
	}
	raw, err := os.ReadFile(c.overridePath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("catalog: override file unreadable, keeping current catalog", slog.String("path", c.overridePath), slog.String("error", err.Error()))
		}
		return
	}

	var override overrideFile
	if err := yaml.Unmarshal(raw, &override); err != nil {
		c.log.Warn("catalog: override file malformed, keeping current catalog", slog.String("path", c.overridePath), slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(override.PriorityPackages) > 0 {
		c.priorityPackages = override.PriorityPackages
	}
	if len(override.ArchiveGuides) > 0 {
		c.archiveGuides = override.ArchiveGuides
	}
	c.log.Info("catalog: override applied", slog.String("path", c.overridePath))
}

// PriorityPackages returns the active priority-package list.
func (c *Catalog) PriorityPackages() []PriorityPackage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]PriorityPackage(nil), c.priorityPackages...)
}

// ArchiveGuides returns the active archive-guide list.
func (c *Catalog) ArchiveGuides() []ArchiveGuide {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ArchiveGuide(nil), c.archiveGuides...)
}

// ReplacePriorityPackages swaps in a freshly generated list, typically
// the output of a Refresher run (§6.1, post-Swift.org-crawl).
func (c *Catalog) ReplacePriorityPackages(packages []PriorityPackage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.priorityPackages = packages
}

// Save writes the active priority-package and archive-guide lists to
// overridePath as YAML, so a Refresher run (§6.1) persists across restarts
// instead of reverting to the compiled-in defaults on next Load. A Catalog
// with no override path configured is a no-op.
func (c *Catalog) Save() error {
	if c.overridePath == "" {
		return nil
	}
	c.mu.RLock()
	override := overrideFile{
		PriorityPackages: c.priorityPackages,
		ArchiveGuides:    c.archiveGuides,
	}
	c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(c.overridePath), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(override)
	if err != nil {
		return err
	}
	return os.WriteFile(c.overridePath, data, 0o644)
}

// Watch watches the override file's directory for writes/creates matching
// overridePath and reloads the catalog on each event, until ctx is
// canceled. A Catalog with no override path configured returns
// immediately; there is nothing to watch.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.overridePath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(c.overridePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(c.overridePath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("catalog: watch error", slog.String("error", err.Error()))
		}
	}
}

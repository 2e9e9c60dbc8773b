package sampleindex

import (
	"archive/zip"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
)

// junkPatterns are doublestar globs (relative, forward-slash) matched
// against every path inside a sample-code ZIP. A match is removed before
// the archive is ingested or recompressed.
var junkPatterns = []string{
	"**/.git", "**/.git/**",
	"**/.gitignore",
	"**/.DS_Store", "**/._*",
	"**/xcuserdata", "**/xcuserdata/**",
	"**/DerivedData", "**/DerivedData/**",
	"**/Pods", "**/Pods/**",
	"**/.swiftpm", "**/.swiftpm/**",
	"**/__MACOSX", "**/__MACOSX/**",
	"**/*.xcuserstate",
}

// Cleaner strips development cruft (VCS metadata, build artifacts,
// dependency checkouts) from sample-code ZIPs before they're ingested,
// re-archiving the result with ditto so Apple resource forks on the
// remaining files survive the round-trip.
type Cleaner struct {
	execCommand func(name string, args ...string) *exec.Cmd
	lookPath    func(file string) (string, error)
}

// NewCleaner returns a Cleaner that shells out to the real ditto binary.
func NewCleaner() *Cleaner {
	return &Cleaner{execCommand: exec.Command, lookPath: exec.LookPath}
}

// CleanupPlan reports what a Clean call would remove, without touching
// the archive.
type CleanupPlan struct {
	ZipPath   string
	JunkPaths []string
	KeptCount int
}

// Plan inspects zipPath's entry list and classifies each against
// junkPatterns, for a dry run that doesn't extract anything.
func (c *Cleaner) Plan(zipPath string) (CleanupPlan, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return CleanupPlan{}, cerr.ContentParseErrorOf(cerr.ErrCodeBadEncoding, "cleanup: open zip "+zipPath, err)
	}
	defer r.Close()

	plan := CleanupPlan{ZipPath: zipPath}
	for _, f := range r.File {
		if isJunkPath(f.Name) {
			plan.JunkPaths = append(plan.JunkPaths, f.Name)
		} else {
			plan.KeptCount++
		}
	}
	return plan, nil
}

// Clean extracts zipPath to a scratch directory, removes junk paths, and
// recompresses the remainder with ditto into outPath. If outPath is empty
// it defaults to zipPath's ".cleaned.zip" sibling.
func (c *Cleaner) Clean(ctx context.Context, zipPath, outPath string) (string, error) {
	if outPath == "" {
		outPath = strings.TrimSuffix(zipPath, filepath.Ext(zipPath)) + ".cleaned.zip"
	}

	dittoPath, err := c.lookPath("ditto")
	if err != nil {
		return "", cerr.MissingPrerequisiteError(cerr.ErrCodeNoOutputDir, "cleanup: ditto not found on PATH; required to preserve resource forks")
	}

	tempDir, err := os.MkdirTemp("", "cupertino-cleanup-*")
	if err != nil {
		return "", cerr.PersistenceError(cerr.ErrCodeDiskFull, "cleanup: create scratch directory", err)
	}
	defer os.RemoveAll(tempDir)

	if err := extractZip(zipPath, tempDir); err != nil {
		return "", err
	}
	if err := removeJunk(tempDir); err != nil {
		return "", cerr.PersistenceError(cerr.ErrCodeDiskFull, "cleanup: remove junk paths", err)
	}

	_ = os.Remove(outPath)
	cmd := c.execCommand(dittoPath, "-c", "-k", "--sequesterRsrc", tempDir, outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", cerr.PersistenceError(cerr.ErrCodeDiskFull, "cleanup: ditto failed: "+string(out), err)
	}
	return outPath, nil
}

func removeJunk(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if !isJunkPath(filepath.ToSlash(rel)) {
			return nil
		}
		if d.IsDir() {
			if err := os.RemoveAll(path); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		return os.Remove(path)
	})
}

func isJunkPath(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range junkPatterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

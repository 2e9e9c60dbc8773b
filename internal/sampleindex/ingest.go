package sampleindex

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tijs/cupertino-skill-sub001/internal/cerr"
	"github.com/tijs/cupertino-skill-sub001/internal/convert"
)

const maxIndexableFileSize = 1 << 20 // 1MB

var indexableExtensions = map[string]bool{
	"swift": true, "h": true, "m": true, "mm": true, "c": true, "cpp": true,
	"hpp": true, "metal": true, "plist": true, "json": true, "strings": true,
	"entitlements": true, "xcconfig": true, "md": true, "txt": true, "rtf": true,
	"mlmodel": true, "storyboard": true, "xib": true,
}

var skipDirNames = map[string]bool{
	".git": true, "__MACOSX": true, "xcuserdata": true, "DerivedData": true,
	"Pods": true, ".swiftpm": true, ".build": true, "build": true, "Build": true,
	"node_modules": true,
}

var readmeNames = []string{"README.md", "Readme.md", "readme.md", "README.txt", "README"}

// IngestOptions carries the project metadata a crawl source already knows
// (title, description, web URL) alongside identity and force-reindex
// control; the README, file list, and symbols are discovered by walking
// the project's files.
type IngestOptions struct {
	ProjectID   string
	Title       string
	Description string
	Frameworks  []string
	WebURL      string
	ZipFilename string
	Force       bool
}

// IngestZip extracts zipPath to a scratch directory, ingests it, and
// removes the scratch directory afterward regardless of outcome.
func (idx *Index) IngestZip(ctx context.Context, zipPath string, opts IngestOptions) error {
	tempDir, err := os.MkdirTemp("", "cupertino-sample-*")
	if err != nil {
		return cerr.PersistenceError(cerr.ErrCodeDiskFull, "sample index: create temp extraction directory", err)
	}
	defer os.RemoveAll(tempDir)

	if err := extractZip(zipPath, tempDir); err != nil {
		return err
	}
	return idx.IngestDirectory(ctx, detectProjectRoot(tempDir), opts)
}

// IngestDirectory walks root for indexable files and persists them as one
// project. If opts.ProjectID already exists and Force is not set, the
// project is left untouched and nil is returned.
func (idx *Index) IngestDirectory(ctx context.Context, root string, opts IngestOptions) error {
	if !opts.Force {
		exists, err := idx.ProjectExists(ctx, opts.ProjectID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}

	files, err := walkIndexableFiles(root)
	if err != nil {
		return err
	}

	project := Project{
		ID:          opts.ProjectID,
		Title:       opts.Title,
		Description: opts.Description,
		Frameworks:  opts.Frameworks,
		Readme:      readReadme(root),
		WebURL:      opts.WebURL,
		ZipFilename: opts.ZipFilename,
	}
	return idx.IndexProject(ctx, project, files)
}

// detectProjectRoot returns the single nested directory under extractDir
// if that's all the archive contained (the common "Foo-Sample/..." shape),
// otherwise extractDir itself.
func detectProjectRoot(extractDir string) string {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return extractDir
	}
	var visible []fs.DirEntry
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || e.Name() == "__MACOSX" {
			continue
		}
		visible = append(visible, e)
	}
	if len(visible) == 1 && visible[0].IsDir() {
		return filepath.Join(extractDir, visible[0].Name())
	}
	return extractDir
}

func readReadme(root string) string {
	for _, name := range readmeNames {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

// walkIndexableFiles walks root, keeping files whose extension is in the
// allow-list, under the size cap, and valid UTF-8. Swift files are passed
// through the symbol/import extractor on the way in.
func walkIndexableFiles(root string) ([]FileInput, error) {
	var files []FileInput
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirNames[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), "._") || d.Name() == ".DS_Store" {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), "."))
		if !indexableExtensions[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxIndexableFileSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil || !utf8.Valid(content) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		fi := FileInput{
			Path:      rel,
			Filename:  d.Name(),
			Folder:    filepath.ToSlash(filepath.Dir(rel)),
			Extension: ext,
			Content:   string(content),
			Size:      info.Size(),
		}
		if ext == "swift" {
			extracted := convert.ExtractSwiftSymbols(fi.Content)
			fi.Symbols = extracted.Symbols
			fi.Imports = extracted.Imports
		}
		files = append(files, fi)
		return nil
	})
	if err != nil {
		return nil, cerr.PersistenceError(cerr.ErrCodeMetadataIO, "sample index: walk project directory "+root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// extractZip unpacks a ZIP archive to dest, refusing entries that would
// escape dest (zip-slip).
func extractZip(zipPath, dest string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return cerr.ContentParseErrorOf(cerr.ErrCodeBadEncoding, "sample index: open zip "+zipPath, err)
	}
	defer r.Close()

	destRoot := filepath.Clean(dest)
	for _, f := range r.File {
		destPath := filepath.Join(destRoot, f.Name)
		if destPath != destRoot && !strings.HasPrefix(destPath, destRoot+string(os.PathSeparator)) {
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return cerr.PersistenceError(cerr.ErrCodeDiskFull, "sample index: create extracted directory", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return cerr.PersistenceError(cerr.ErrCodeDiskFull, "sample index: create extracted parent directory", err)
		}
		if err := extractZipEntry(f, destPath); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return cerr.ContentParseErrorOf(cerr.ErrCodeBadEncoding, "sample index: open zip entry "+f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return cerr.PersistenceError(cerr.ErrCodeDiskFull, "sample index: create extracted file "+destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return cerr.PersistenceError(cerr.ErrCodeDiskFull, "sample index: write extracted file "+destPath, err)
	}
	return nil
}

package sampleindex

import (
	"time"

	"github.com/tijs/cupertino-skill-sub001/internal/convert"
)

// Project is one sample-code project: a downloaded ZIP or an already
// extracted directory.
type Project struct {
	ID          string
	Title       string
	Description string
	Frameworks  []string
	Readme      string
	WebURL      string
	ZipFilename string
	FileCount   int
	TotalSize   int64
	IndexedAt   time.Time
}

// FileInput is one indexable file discovered under a project root, with
// its extracted symbols and imports already attached.
type FileInput struct {
	Path      string
	Filename  string
	Folder    string
	Extension string
	Content   string
	Size      int64
	Symbols   []convert.ExtractedSymbol
	Imports   []convert.ExtractedImport
}

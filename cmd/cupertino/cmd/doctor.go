package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/docindex"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

// minDoctorDiskSpaceBytes is the minimum free space doctor requires at the
// base directory (100MB, enough for a handful of crawl sessions).
const minDoctorDiskSpaceBytes = 100 * 1024 * 1024

// checkStatus is a doctor check's outcome.
type checkStatus string

const (
	statusPass checkStatus = "pass"
	statusWarn checkStatus = "warn"
	statusFail checkStatus = "fail"
)

// checkResult is one doctor check's outcome, required distinguishing a
// blocking failure from an advisory warning.
type checkResult struct {
	Name     string      `json:"name"`
	Status   checkStatus `json:"status"`
	Message  string      `json:"message"`
	Required bool        `json:"required"`
}

func (r checkResult) isCritical() bool {
	return r.Required && r.Status == statusFail
}

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check disk space, indexes, and external tool availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")

	return cmd
}

func runDoctor(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	results := []checkResult{
		checkDiskSpace(cfg.Paths.BaseDir),
		checkWritable(cfg.Paths.BaseDir),
		checkIndex("search.db", filepath.Join(cfg.Paths.BaseDir, "search.db")),
		checkIndex("samples.db", filepath.Join(cfg.Paths.BaseDir, "samples.db")),
		checkDitto(),
	}

	if jsonOutput {
		return printDoctorJSON(results)
	}
	printDoctorText(results)

	for _, r := range results {
		if r.isCritical() {
			return fmt.Errorf("doctor: system check failed")
		}
	}
	return nil
}

func checkDiskSpace(path string) checkResult {
	result := checkResult{Name: "disk_space", Required: true}

	if err := os.MkdirAll(path, 0o755); err != nil {
		result.Status = statusFail
		result.Message = fmt.Sprintf("cannot create base directory: %v", err)
		return result
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = statusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free at %s", formatDoctorBytes(available), path)
	if available < minDoctorDiskSpaceBytes {
		result.Status = statusFail
	} else {
		result.Status = statusPass
	}
	return result
}

func checkWritable(path string) checkResult {
	result := checkResult{Name: "writable", Required: true}

	probe := filepath.Join(path, ".cupertino-doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		result.Status = statusFail
		result.Message = fmt.Sprintf("base directory not writable: %v", err)
		return result
	}
	_ = os.Remove(probe)

	result.Status = statusPass
	result.Message = "base directory is writable"
	return result
}

func checkIndex(name, path string) checkResult {
	result := checkResult{Name: name, Required: false}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		result.Status = statusWarn
		result.Message = "not yet built"
		return result
	}

	count, err := indexDocumentCount(path, name)
	if err != nil {
		result.Status = statusFail
		result.Required = true
		result.Message = fmt.Sprintf("exists but unreadable: %v", err)
		return result
	}

	result.Status = statusPass
	result.Message = fmt.Sprintf("%d entries", count)
	return result
}

func indexDocumentCount(path, name string) (int, error) {
	ctx := context.Background()
	if name == "samples.db" {
		idx, err := sampleindex.Open(path)
		if err != nil {
			return 0, err
		}
		defer idx.Close()
		projects, err := idx.ListProjects(ctx, "", 1<<30)
		if err != nil {
			return 0, err
		}
		return len(projects), nil
	}

	idx, err := docindex.Open(path)
	if err != nil {
		return 0, err
	}
	defer idx.Close()
	return idx.DocumentCount(ctx)
}

func checkDitto() checkResult {
	result := checkResult{Name: "ditto", Required: false}
	if _, err := exec.LookPath("ditto"); err != nil {
		result.Status = statusWarn
		result.Message = "ditto not found on PATH; `save`/`cleanup` cannot preserve resource forks"
		return result
	}
	result.Status = statusPass
	result.Message = "found on PATH"
	return result
}

func printDoctorText(results []checkResult) {
	for _, r := range results {
		icon := "✅"
		switch r.Status {
		case statusWarn:
			icon = "⚠️"
		case statusFail:
			icon = "❌"
		}
		fmt.Printf("%s %-14s %s\n", icon, r.Name, r.Message)
	}
}

func printDoctorJSON(results []checkResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func formatDoctorBytes(bytes uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

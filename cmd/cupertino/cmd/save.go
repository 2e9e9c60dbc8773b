package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/output"
	"github.com/tijs/cupertino-skill-sub001/internal/sampleindex"
)

func newSaveCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Download sample-code ZIPs discovered by fetch and ingest them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSave(cmd.Context(), remote)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "skip the local manifest and re-scan the sample catalog before downloading")

	return cmd
}

func runSave(ctx context.Context, remote bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := output.NewAuto(os.Stdout)

	if remote {
		if err := runFetchSamples(ctx, cfg, out); err != nil {
			return err
		}
	}

	manifestPath := filepath.Join(cfg.Paths.BaseDir, "sample-code", "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			out.Warningf("no manifest at %s; run `cupertino fetch --type samples` first", manifestPath)
			return nil
		}
		return err
	}

	var entries []sampleManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("save: parse manifest %s: %w", manifestPath, err)
	}

	sampleDir := filepath.Join(cfg.Paths.BaseDir, "sample-code")
	if err := os.MkdirAll(sampleDir, 0o755); err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.TotalTimeout()}

	sampleIdx, err := sampleindex.Open(filepath.Join(cfg.Paths.BaseDir, "samples.db"))
	if err != nil {
		return err
	}
	defer sampleIdx.Close()

	cleaner := sampleindex.NewCleaner()

	saved, skipped, errored := 0, 0, 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		projectID := projectIDFromZipURL(entry.ZipURL)
		zipPath := filepath.Join(sampleDir, projectID+".zip")

		if _, err := os.Stat(zipPath); err == nil {
			out.Statusf("·", "%s: already downloaded, skipping download", projectID)
			skipped++
		} else {
			if err := downloadFile(ctx, client, entry.ZipURL, zipPath); err != nil {
				out.Errorf("%s: download failed: %v", projectID, err)
				errored++
				continue
			}
		}

		cleanedPath, err := cleaner.Clean(ctx, zipPath, "")
		if err != nil {
			out.Errorf("%s: cleanup failed: %v", projectID, err)
			errored++
			continue
		}

		err = sampleIdx.IngestZip(ctx, cleanedPath, sampleindex.IngestOptions{
			ProjectID:   projectID,
			Title:       entry.Title,
			Description: entry.Description,
			WebURL:      entry.WebURL,
			ZipFilename: filepath.Base(zipPath),
		})
		if err != nil {
			out.Errorf("%s: ingest failed: %v", projectID, err)
			errored++
			continue
		}

		out.Successf("%s: saved and ingested", projectID)
		saved++
	}

	out.Statusf("", "saved %d, skipped %d, errors %d", saved, skipped, errored)
	return nil
}

func projectIDFromZipURL(zipURL string) string {
	base := filepath.Base(zipURL)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		sum := sha256.Sum256([]byte(zipURL))
		return hex.EncodeToString(sum[:])[:12]
	}
	return base
}

func downloadFile(ctx context.Context, client *http.Client, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, destPath)
}

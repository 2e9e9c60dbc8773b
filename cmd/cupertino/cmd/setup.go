package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/config"
	"github.com/tijs/cupertino-skill-sub001/internal/output"
)

func newSetupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a default config.yaml and create the base directory layout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing user config")

	return cmd
}

func runSetup(force bool) error {
	out := output.NewAuto(os.Stdout)

	userConfigPath := config.GetUserConfigPath()
	if !force {
		if existing, err := config.LoadUserConfig(); err != nil {
			return fmt.Errorf("setup: checking existing config: %w", err)
		} else if existing != nil {
			out.Warningf("config already exists at %s; pass --force to overwrite", userConfigPath)
			return writeBaseLayout(existing.Paths.BaseDir, out)
		}
	}

	cfg := config.NewConfig()

	if err := os.MkdirAll(config.GetUserConfigDir(), 0o755); err != nil {
		return fmt.Errorf("setup: create config directory: %w", err)
	}
	if err := cfg.WriteYAML(userConfigPath); err != nil {
		return fmt.Errorf("setup: write config: %w", err)
	}
	out.Successf("wrote config to %s", userConfigPath)

	return writeBaseLayout(cfg.Paths.BaseDir, out)
}

func writeBaseLayout(baseDir string, out *output.Writer) error {
	dirs := []string{
		baseDir,
		filepath.Join(baseDir, "docs"),
		filepath.Join(baseDir, "swift-evolution"),
		filepath.Join(baseDir, "swift-org"),
		filepath.Join(baseDir, "archive"),
		filepath.Join(baseDir, "hig"),
		filepath.Join(baseDir, "packages"),
		filepath.Join(baseDir, "sample-code"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("setup: create %s: %w", dir, err)
		}
	}
	out.Successf("base directory ready at %s", baseDir)
	return nil
}

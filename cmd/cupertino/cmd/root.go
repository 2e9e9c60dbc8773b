// Package cmd provides the cupertino CLI commands.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tijs/cupertino-skill-sub001/internal/config"
	"github.com/tijs/cupertino-skill-sub001/internal/logging"
	"github.com/tijs/cupertino-skill-sub001/internal/profiling"
	"github.com/tijs/cupertino-skill-sub001/pkg/version"
)

var (
	baseDir string

	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()

	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd builds the cupertino root command and its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cupertino",
		Short:         "Local, searchable knowledge base of Apple platform docs and sample code",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("cupertino version {{.Version}}\n")

	root.PersistentFlags().StringVar(&baseDir, "base-dir", "", "override the base directory (default: config paths.base_dir)")
	root.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "write CPU profile to file")
	root.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "write memory profile to file")
	root.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "write execution trace to file")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to the rotating log file")

	root.PersistentPreRunE = startProfilingAndLogging
	root.PersistentPostRunE = stopProfilingAndLogging

	root.AddCommand(
		newFetchCmd(),
		newSaveCmd(),
		newIndexCmd(),
		newServeCmd(),
		newSearchCmd(),
		newReadCmd(),
		newListFrameworksCmd(),
		newListSamplesCmd(),
		newSearchSamplesCmd(),
		newReadSampleCmd(),
		newReadSampleFileCmd(),
		newDoctorCmd(),
		newCleanupCmd(),
		newSetupCmd(),
	)

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	var err error

	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("start CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("start trace: %w", err)
		}
	}

	return nil
}

func stopProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("write memory profile: %w", err)
		}
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig loads the layered configuration and applies a --base-dir
// override when set.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if baseDir != "" {
		cfg.Paths.BaseDir = baseDir
	}
	return cfg, nil
}

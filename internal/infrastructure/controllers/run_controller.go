package controllers

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/imagebump/internal/domain/commands"
	"github.com/rios0rios0/imagebump/internal/domain/entities"
)

// RunController handles the "run" subcommand (batch mode).
type RunController struct {
	command      commands.Run
	loadSettings entities.SettingsLoader
}

// NewRunController creates a new RunController.
func NewRunController(command commands.Run, loadSettings entities.SettingsLoader) *RunController {
	return &RunController{command: command, loadSettings: loadSettings}
}

// GetBind returns the Cobra command metadata for the run controller.
func (it *RunController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "run",
		Short: "Bump the tracked base image across repositories",
		Long: `Discover repositories, locate the Dockerfiles that build FROM the
tracked base image, and open one Pull Request per repository moving
them to the target tag.

This is the main command intended to be used in a cronjob.
Repositories already handled for the target image are recorded in
the ledger and skipped on later runs.`,
	}
}

// Execute runs the batch update mode. Only configuration errors are returned.
func (it *RunController) Execute(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd, it.loadSettings)
	if err != nil {
		return err
	}

	image, _ := cmd.Flags().GetString("image")
	tag, _ := cmd.Flags().GetString("tag")
	force, _ := cmd.Flags().GetBool("force")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	settings.ApplyOverrides(entities.SettingsOverrides{
		ImageName:   image,
		ImageTag:    tag,
		Force:       force,
		Concurrency: concurrency,
		LedgerPath:  ledgerPath,
	})

	if err = settings.Validate(); err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	providerFilter, _ := cmd.Flags().GetString("provider")
	orgOverride, _ := cmd.Flags().GetString("org")

	logger.Info("Starting imagebump run...")

	summary, err := it.command.Execute(cmd.Context(), settings, commands.RunOptions{
		DryRun:       dryRun,
		Verbose:      verbose,
		ProviderName: providerFilter,
		OrgOverride:  orgOverride,
	})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if summary.SubmitFailed > 0 {
		logger.Warnf("%d repositories failed and will be retried on the next run", summary.SubmitFailed)
	}
	return nil
}

// AddFlags adds the run-specific flags to the given Cobra command.
func (it *RunController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "Only process this provider (github, gitlab)")
	cmd.Flags().String("org", "", "Only process this organization/group")
	cmd.Flags().String("image", "", "Tracked base image (overrides image.name)")
	cmd.Flags().String("tag", "", "Target tag (overrides image.tag)")
	cmd.Flags().Bool("force", false, "Rewrite FROM lines even when already at the target tag")
	cmd.Flags().Int("concurrency", 0, "Number of repositories processed in parallel")
	cmd.Flags().String("ledger", "", "Path to the ledger file (overrides ledger)")
}

// loadSettings reads the file named by --config, or the first one found in the
// default locations.
func loadSettings(cmd *cobra.Command, load entities.SettingsLoader) (*entities.Settings, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		var err error
		cfgPath, err = entities.FindConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no config file found (specify one with --config or create imagebump.yaml): %w", err)
		}
	}

	logger.Infof("Using config file: %s", cfgPath)

	settings, err := load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return settings, nil
}

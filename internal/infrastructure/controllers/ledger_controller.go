package controllers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/imagebump/internal/domain/commands"
	"github.com/rios0rios0/imagebump/internal/domain/entities"
)

// LedgerController handles the "ledger" subcommand.
type LedgerController struct {
	command      commands.Ledger
	loadSettings entities.SettingsLoader
}

// NewLedgerController creates a new LedgerController.
func NewLedgerController(command commands.Ledger, loadSettings entities.SettingsLoader) *LedgerController {
	return &LedgerController{command: command, loadSettings: loadSettings}
}

// GetBind returns the Cobra command metadata for the ledger controller.
func (it *LedgerController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "ledger",
		Short: "Show or edit the processed-repository ledger",
		Long: `Print every repository recorded as processed, one "repository  image:tag"
line each. Use --forget owner/name to drop a repository so the next run
processes it again.`,
	}
}

// Execute lists the ledger, or forgets one repository when --forget is set.
func (it *LedgerController) Execute(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd, it.loadSettings)
	if err != nil {
		return err
	}
	if ledgerPath, _ := cmd.Flags().GetString("ledger"); ledgerPath != "" {
		settings.Ledger = ledgerPath
	}

	if repository, _ := cmd.Flags().GetString("forget"); repository != "" {
		return it.command.Forget(settings, repository)
	}

	entries, err := it.command.List(settings)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		image := entities.ImageReference{Repository: entry.Image, Tag: entry.Tag}
		if _, err = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", entry.Repository, image); err != nil {
			return fmt.Errorf("failed to print ledger: %w", err)
		}
	}
	return nil
}

// AddFlags adds the ledger-specific flags to the given Cobra command.
func (it *LedgerController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("forget", "", "Remove this repository (owner/name, or provider:owner/name) from the ledger")
	cmd.Flags().String("ledger", "", "Path to the ledger file (overrides ledger)")
}

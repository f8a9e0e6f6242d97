package cli

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/unifiedui/assistant-bot/internal/infrastructure/matrix"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List the registered features and their groups",
	RunE:  runFeatures,
}

func runFeatures(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	// Nothing is sent: the clients only satisfy the wiring.
	matrixClient, err := matrix.NewClient(matrix.Config{HomeServer: cfg.Matrix.HomeServer})
	if err != nil {
		return err
	}
	vaultClient, err := createVaultClient(cfg.Vault)
	if err != nil {
		return err
	}
	defer vaultClient.Close()
	albertClient, err := createAlbertClient(context.Background(), cfg.Albert, vaultClient)
	if err != nil {
		return err
	}

	app, err := buildAssistant(cfg, matrixClient, albertClient, nil, log)
	if err != nil {
		return err
	}

	printFeatures(cmd, app.registry)
	return nil
}

func printFeatures(cmd *cobra.Command, registry *features.Registry) {
	for _, d := range registry.All() {
		status := color.RedString("inactive")
		if registry.IsActive(d.Group) {
			status = color.GreenString("active")
		}
		triggers := "-"
		if len(d.Triggers) > 0 {
			triggers = strings.Join(d.Triggers, ", ")
		}
		cmd.Printf("%-16s %-8s %-10s %s\n", d.Name, d.Group, status, triggers)
	}
}

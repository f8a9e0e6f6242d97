package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/unifiedui/assistant-bot/internal/services/access"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage the allow-list",
}

var usersImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add the users of a JSON state file to the allow-list",
	Long: "Reads a JSON object mapping a status (allowed, pending, forbidden, or the legacy\n" +
		"\"active\") to a list of user ids, and inserts the users the allow-list does not know yet.",
	Args: cobra.ExactArgs(1),
	RunE: runUsersImport,
}

func init() {
	usersCmd.AddCommand(usersImportCmd)
}

func runUsersImport(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	state, err := access.ParseUserState(file)
	if err != nil {
		return err
	}

	docDBClient, err := createDocDBClient(ctx, cfg.DocDB)
	if err != nil {
		return fmt.Errorf("failed to initialize document db client: %w", err)
	}
	defer docDBClient.Close(ctx)

	allowList := cfg.AllowList
	allowList.Enabled = true
	gate, err := createAccessGate(allowList, docDBClient.Users())
	if err != nil {
		return err
	}

	result, err := gate.ImportUsers(ctx, state)
	if err != nil {
		return err
	}

	cmd.Printf("%s %d added, %d already known\n", color.GreenString("✔"), result.Added, result.Skipped)
	for _, user := range result.NoDomain {
		cmd.Printf("%s no domain found for %s\n", color.YellowString("!"), user)
	}
	return nil
}

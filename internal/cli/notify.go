package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/unifiedui/assistant-bot/internal/core/chat"
)

var notifyRoom string

var notifyCmd = &cobra.Command{
	Use:   "notify MESSAGE...",
	Short: "Send a markdown notice to the operators' room",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotify,
}

func init() {
	notifyCmd.Flags().StringVar(&notifyRoom, "room", "", "Target room id (defaults to ERRORS_ROOM_ID)")
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	room := notifyRoom
	if room == "" {
		room = cfg.Bot.ErrorsRoomID
	}
	if room == "" {
		return fmt.Errorf("no room given and ERRORS_ROOM_ID is not set")
	}

	vaultClient, err := createVaultClient(cfg.Vault)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	defer vaultClient.Close()

	matrixClient, err := createMatrixClient(ctx, cfg.Matrix, vaultClient)
	if err != nil {
		return err
	}

	eventID, err := matrixClient.SendMessage(ctx, room, chat.OutboundMessage{
		Body:     strings.Join(args, " "),
		Markdown: true,
		Notice:   true,
	})
	if err != nil {
		return err
	}

	cmd.Printf("%s sent %s to %s\n", color.GreenString("✔"), eventID, room)
	return nil
}

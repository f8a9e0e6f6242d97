package cli

import (
	"github.com/spf13/cobra"

	"github.com/unifiedui/assistant-bot/internal/pkg/encryption"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a SECRETS_ENCRYPTION_KEY for session snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := encryption.GenerateKey()
		if err != nil {
			return err
		}
		cmd.Println(key)
		return nil
	},
}

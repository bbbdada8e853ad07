package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <value>",
	Short: "Encrypt a secret for the config file",
	Long: `Encrypt a value with the passphrase in CLICKLOOP_CONFIG_KEY. Paste the
output into llm.provider.api_key or a gateway token; values starting with
"enc:" are decrypted when the config is loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase := os.Getenv("CLICKLOOP_CONFIG_KEY")
		if passphrase == "" {
			return fmt.Errorf("%w: set CLICKLOOP_CONFIG_KEY to the passphrase", domain.ErrInvalidInput)
		}
		enc, err := config.EncryptValue(args[0], passphrase)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "enc:"+enc)
		return nil
	},
}

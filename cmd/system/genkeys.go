package system

import (
	"fmt"

	"github.com/spf13/cobra"

	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
)

func NewGenKeysCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "genkeys",
		Short: "Generate PASETO keys for the authentication config",
		Long: `Generate a fresh v4.local key or v4.public key pair and print it as the
authentication.paseto section of config.yaml. Every API instance must share
the same keys; rotating them signs everyone out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys pasetotoken.Keys
			switch pasetotoken.Mode(mode) {
			case pasetotoken.ModeLocal:
				keys = pasetotoken.NewLocalKeys()
			case pasetotoken.ModePublic:
				keys = pasetotoken.NewPublicKeys()
			default:
				return fmt.Errorf("unknown mode %q (use local|public)", mode)
			}

			hex := keys.Hex()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "authentication:")
			fmt.Fprintln(out, "  paseto:")
			fmt.Fprintf(out, "    mode: %s\n", hex.Mode)
			if hex.SymmetricHex != "" {
				fmt.Fprintf(out, "    local_key_hex: %s\n", hex.SymmetricHex)
			}
			if hex.SecretHex != "" {
				fmt.Fprintf(out, "    secret_key_hex: %s\n", hex.SecretHex)
				fmt.Fprintf(out, "    public_key_hex: %s\n", hex.PublicHex)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(pasetotoken.ModeLocal), "Key kind: local or public")

	return cmd
}

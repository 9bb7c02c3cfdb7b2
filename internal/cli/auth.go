package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the private key stored in the OS keyring",
	}
	cmd.AddCommand(a.newAuthSetKeyCmd(), a.newAuthDeleteKeyCmd())
	return cmd
}

func (a *app) newAuthSetKeyCmd() *cobra.Command {
	var publicKey, privateKey string

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the private key for a public key",
		Long:  "Store the private key for a public key. Without --private-key the key is read from stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := a.publicKey(cmd, publicKey)
			if err != nil {
				return err
			}
			if privateKey == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return usageErrorf("no private key on stdin")
				}
				privateKey = strings.TrimSpace(line)
			}
			if err := a.store.SetPrivateKey(pub, privateKey); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Stored private key for %s\n", pub)
			return nil
		},
	}
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Public key (defaults to the configured one)")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "Private key")
	return cmd
}

func (a *app) newAuthDeleteKeyCmd() *cobra.Command {
	var publicKey string

	cmd := &cobra.Command{
		Use:   "delete-key",
		Short: "Remove the stored private key for a public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := a.publicKey(cmd, publicKey)
			if err != nil {
				return err
			}
			if err := a.store.DeletePrivateKey(pub); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed private key for %s\n", pub)
			return nil
		},
	}
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Public key (defaults to the configured one)")
	return cmd
}

func (a *app) publicKey(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := a.loadConfig(cmd.Flags())
	if err != nil {
		return "", err
	}
	if cfg.PublicKey == "" {
		return "", usageErrorf("--public-key is required when no public key is configured")
	}
	return cfg.PublicKey, nil
}

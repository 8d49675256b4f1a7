package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	messagecrypto "github.com/Cainuriel/message-crypto"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage address registrations in the engine",
		Long: `Register, inspect, and remove the public keys the engine holds for
addresses. Only public material is ever stored.

Examples:
  msgcrypt keys register 0xf39F... --signature 0x...
  msgcrypt keys get 0xf39F...
  msgcrypt keys list
  msgcrypt keys delete 0xf39F...`,
	}

	cmd.AddCommand(
		newKeysRegisterCmd(a),
		newKeysGetCmd(a),
		newKeysListCmd(a),
		newKeysDeleteCmd(a),
	)
	return cmd
}

func newKeysRegisterCmd(a *app) *cobra.Command {
	var sigHex string

	cmd := &cobra.Command{
		Use:   "register <address>",
		Short: "Register an address with its challenge signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := decodeSignature(sigHex)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			info, err := client.RegisterKey(cmd.Context(), args[0], sig)
			if err != nil {
				return err
			}
			a.logger.Info("address registered", "address", info.Address)
			return a.renderKey(info)
		},
	}

	cmd.Flags().StringVar(&sigHex, "signature", "", "wallet signature over the address challenge (hex)")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func newKeysGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <address>",
		Short: "Show the registration for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			info, err := client.GetKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderKey(info)
		},
	}
}

func newKeysListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			keys, err := client.ListKeys(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(map[string]interface{}{
				"keys":  keys,
				"count": len(keys),
			}, func(w io.Writer) error {
				if len(keys) == 0 {
					_, err := fmt.Fprintln(w, "No keys registered")
					return err
				}
				for _, k := range keys {
					if _, err := fmt.Fprintln(w, k); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newKeysDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <address>",
		Short: "Remove the registration for an address",
		Long: `Remove the registration for an address. Envelopes already encrypted to it
stay decryptable with a fresh signature; the key itself is never stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.DeleteKey(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.render(map[string]interface{}{
				"deleted": args[0],
			}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted %s\n", args[0])
				return err
			})
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that OpenBao is reachable and unsealed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.Health(cmd.Context()); err != nil {
				return err
			}
			status := "ok"
			return a.render(map[string]interface{}{
				"status":  status,
				"address": a.cfg.OpenBao.Address,
			}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "OpenBao at %s is %s\n", a.cfg.OpenBao.Address, status)
				return err
			})
		},
	}
}

func (a *app) renderKey(info *messagecrypto.KeyInfo) error {
	return a.render(map[string]interface{}{
		"address":               info.Address,
		"public_key":            info.PublicKey,
		"encryption_public_key": info.EncryptionPublicKey,
		"derived_address":       info.DerivedAddress,
		"created_at":            info.CreatedAt.Format(time.RFC3339),
	}, func(w io.Writer) error {
		return writeFields(w, [][2]string{
			{"Address", info.Address},
			{"Public key", info.PublicKey},
			{"Encryption key", info.EncryptionPublicKey},
			{"Derived address", info.DerivedAddress},
			{"Created", info.CreatedAt.Format(time.RFC3339)},
		})
	})
}

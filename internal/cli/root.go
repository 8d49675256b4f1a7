// Package cli implements the msgcrypt command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	messagecrypto "github.com/Cainuriel/message-crypto"
	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/ecies"
	"github.com/Cainuriel/message-crypto/internal/config"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	cfgFile  string
	output   string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

// NewRootCmd builds the msgcrypt command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "msgcrypt",
		Short: "Wallet-bound message encryption",
		Long: `msgcrypt encrypts messages to Ethereum addresses.

Each address owns a secp256k1 keypair derived from the wallet's signature
over a fixed challenge. Anyone can encrypt to the derived public key; only a
fresh signature from the wallet re-derives the private key needed to decrypt.

Commands run locally unless they need the message-crypto engine in OpenBao
(keys, health, and --remote encrypt/decrypt).

Examples:
  msgcrypt challenge 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
  msgcrypt sign 0xf39F... --key $WALLET_KEY
  msgcrypt keys register 0xf39F... --signature 0x...
  echo hello | msgcrypt encrypt 0xf39F... > msg.json
  msgcrypt decrypt 0xf39F... --signature 0x... --envelope msg.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: msgcrypt.yaml in ., $HOME/.msgcrypt, /etc/msgcrypt)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "", "output format: text, json, yaml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newChallengeCmd(a),
		newSignCmd(a),
		newDeriveCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newKeysCmd(a),
		newHealthCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.output != "" {
		cfg.Output = a.output
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Log.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}

	a.cfg = cfg
	a.logger = slog.New(handler)
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) client() (*messagecrypto.Client, error) {
	client, err := messagecrypto.NewClient(a.cfg.OpenBao.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("openbao client: %w", err)
	}
	return client, nil
}

func (a *app) gate() *authgate.Gate {
	return authgate.NewGate(authgate.WithLogger(a.logger))
}

func (a *app) cipher() (*ecies.Cipher, error) {
	return ecies.New(ecies.WithDefaultSuite(a.cfg.Crypto.DefaultVersion))
}

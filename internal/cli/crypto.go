package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	messagecrypto "github.com/Cainuriel/message-crypto"
	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/ecies"
	"github.com/Cainuriel/message-crypto/internal/hexenc"
	"github.com/Cainuriel/message-crypto/secp256k1"
)

// walletKeyEnv supplies the wallet key to sign when --key is not given.
const walletKeyEnv = "MSGCRYPT_WALLET_KEY"

func newChallengeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "challenge <address>",
		Short: "Print the message a wallet signs to unlock an address",
		Long: `Print the challenge for an address. Sign it with personal_sign
(EIP-191) in the wallet that controls the address; the signature is what
registers the address and authorizes every decryption.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := authgate.CanonicalIdentity(args[0])
			if err != nil {
				return err
			}
			challenge, err := authgate.Challenge(address)
			if err != nil {
				return err
			}
			return a.render(map[string]interface{}{
				"address":   address,
				"challenge": string(challenge),
			}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, string(challenge))
				return err
			})
		},
	}
}

func newSignCmd(a *app) *cobra.Command {
	var keyHex string

	cmd := &cobra.Command{
		Use:   "sign <address>",
		Short: "Sign an address challenge with a raw wallet key",
		Long: `Sign the challenge for an address the way personal_sign does. Meant for
development wallets; production wallets should sign in the wallet itself.

The key is read from --key or ` + walletKeyEnv + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := authgate.CanonicalIdentity(args[0])
			if err != nil {
				return err
			}
			if keyHex == "" {
				keyHex = os.Getenv(walletKeyEnv)
			}
			if keyHex == "" {
				return fmt.Errorf("no wallet key: pass --key or set %s", walletKeyEnv)
			}
			key, err := hexenc.DecodeFixed(strings.TrimSpace(keyHex), secp256k1.PrivateKeySize)
			if err != nil {
				return fmt.Errorf("invalid wallet key: %w", err)
			}
			defer secp256k1.SecureZero(key)

			owner, err := authgate.WalletAddress(key)
			if err != nil {
				return err
			}
			if owner != address {
				return fmt.Errorf("wallet key controls %s, not %s", owner, address)
			}

			sig, err := authgate.SignChallenge(key, address)
			if err != nil {
				return err
			}
			signature := hexenc.EncodePrefixed(sig)
			return a.render(map[string]interface{}{
				"address":   address,
				"signature": signature,
			}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, signature)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&keyHex, "key", "", "wallet private key (hex)")
	return cmd
}

func newDeriveCmd(a *app) *cobra.Command {
	var sigHex string

	cmd := &cobra.Command{
		Use:   "derive <address>",
		Short: "Show the public keys a signature derives",
		Long: `Verify a challenge signature locally and print the derived public keys.
The private key is never printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := decodeSignature(sigHex)
			if err != nil {
				return err
			}
			kp, err := a.gate().Authorize(args[0], sig)
			if err != nil {
				return err
			}
			defer kp.Zero()

			address, _ := authgate.CanonicalIdentity(args[0])
			info := map[string]interface{}{
				"address":               address,
				"public_key":            hexenc.Encode(kp.PublicKey()),
				"encryption_public_key": hexenc.Encode(kp.EncryptionPublicKey()),
				"derived_address":       kp.Address(),
			}
			return a.render(info, func(w io.Writer) error {
				return writeFields(w, [][2]string{
					{"Address", address},
					{"Public key", hexenc.Encode(kp.PublicKey())},
					{"Encryption key", base64.StdEncoding.EncodeToString(kp.EncryptionPublicKey())},
					{"Derived address", kp.Address()},
				})
			})
		},
	}

	cmd.Flags().StringVar(&sigHex, "signature", "", "wallet signature over the address challenge (hex)")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func newEncryptCmd(a *app) *cobra.Command {
	var (
		message   string
		pubKeyArg string
		version   string
		remote    bool
		eip1024   bool
	)

	cmd := &cobra.Command{
		Use:   "encrypt <address>",
		Short: "Encrypt a message to an address",
		Long: `Encrypt a UTF-8 message to an address. The message comes from --message or
stdin.

The recipient key comes from --public-key, or from the address's record in
the engine. Encryption happens locally unless --remote is set, in which case
the engine encrypts.

Examples:
  echo "hello" | msgcrypt encrypt 0xf39F...
  msgcrypt encrypt 0xf39F... -m hello --public-key 02c7...
  msgcrypt encrypt 0xf39F... -m hello --version x25519-xsalsa20-poly1305 --eip1024`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := authgate.CanonicalIdentity(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("message") {
				if message, err = readMessage(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if len(message) > a.cfg.Crypto.MaxMessageSize {
				return fmt.Errorf("%w: %d bytes exceeds %d", messagecrypto.ErrMessageTooLarge, len(message), a.cfg.Crypto.MaxMessageSize)
			}
			if !utf8.ValidString(message) {
				return errors.New("message must be valid UTF-8")
			}
			if version == "" {
				version = a.cfg.Crypto.DefaultVersion
			}

			ctx := cmd.Context()
			var env *ecies.Envelope
			if remote {
				env, err = a.encryptRemote(ctx, address, message, version)
			} else {
				env, err = a.encryptLocal(ctx, address, message, version, pubKeyArg)
			}
			if err != nil {
				return err
			}
			a.logger.Debug("message encrypted", "address", address, "version", env.Version, "remote", remote)

			if eip1024 {
				raw, err := env.MarshalEIP1024()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, string(raw))
				return err
			}
			return a.render(map[string]interface{}{
				"address":  address,
				"envelope": envelopeMap(env),
			}, func(w io.Writer) error {
				return writeEnvelopeJSON(w, env)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message to encrypt (default: read stdin)")
	cmd.Flags().StringVar(&pubKeyArg, "public-key", "", "recipient public key, hex (or base64 for x25519)")
	cmd.Flags().StringVar(&version, "version", "", "envelope suite (default: crypto.default_version)")
	cmd.Flags().BoolVar(&remote, "remote", false, "encrypt in the engine instead of locally")
	cmd.Flags().BoolVar(&eip1024, "eip1024", false, "print the EIP-1024 encrypted-data object (x25519 only)")
	return cmd
}

func (a *app) encryptLocal(ctx context.Context, address, message, version, pubKeyArg string) (*ecies.Envelope, error) {
	var pubKey []byte
	if pubKeyArg != "" {
		var err error
		if pubKey, err = decodePublicKey(pubKeyArg, version); err != nil {
			return nil, err
		}
	} else {
		client, err := a.client()
		if err != nil {
			return nil, err
		}
		info, err := client.GetKey(ctx, address)
		if err != nil {
			return nil, err
		}
		keyHex := info.PublicKey
		if version == ecies.VersionX25519 {
			keyHex = info.EncryptionPublicKey
		}
		if pubKey, err = hexenc.Decode(keyHex); err != nil {
			return nil, fmt.Errorf("%w: %v", messagecrypto.ErrInvalidResponse, err)
		}
	}

	c, err := a.cipher()
	if err != nil {
		return nil, err
	}
	return c.EncryptWith(version, []byte(message), pubKey)
}

func (a *app) encryptRemote(ctx context.Context, address, message, version string) (*ecies.Envelope, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	return client.Encrypt(ctx, address, message, messagecrypto.EncryptOptions{Version: version})
}

func newDecryptCmd(a *app) *cobra.Command {
	var (
		sigHex  string
		envFile string
		remote  bool
	)

	cmd := &cobra.Command{
		Use:   "decrypt <address>",
		Short: "Decrypt an envelope addressed to an address",
		Long: `Decrypt an envelope with the key a fresh challenge signature unlocks. The
envelope is read from --envelope or stdin and may be either the envelope JSON
printed by encrypt or an EIP-1024 encrypted-data object.

Decryption happens locally unless --remote is set. Every failure past
authorization is reported as "decryption failed".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := authgate.CanonicalIdentity(args[0])
			if err != nil {
				return err
			}
			sig, err := decodeSignature(sigHex)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd.InOrStdin(), envFile)
			if err != nil {
				return err
			}
			env, err := parseEnvelopeInput(raw)
			if err != nil {
				return err
			}

			var plaintext string
			if remote {
				plaintext, err = a.decryptRemote(cmd.Context(), address, env, sig)
			} else {
				plaintext, err = a.decryptLocal(address, env, sig)
			}
			if err != nil {
				return err
			}

			return a.render(map[string]interface{}{
				"address":   address,
				"plaintext": plaintext,
			}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, plaintext)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&sigHex, "signature", "", "wallet signature over the address challenge (hex)")
	cmd.Flags().StringVar(&envFile, "envelope", "-", "envelope file, - for stdin")
	cmd.Flags().BoolVar(&remote, "remote", false, "decrypt in the engine instead of locally")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func (a *app) decryptLocal(address string, env *ecies.Envelope, sig []byte) (string, error) {
	kp, err := a.gate().Authorize(address, sig)
	if err != nil {
		return "", err
	}
	defer kp.Zero()

	privKey := kp.PrivateKey()
	defer secp256k1.SecureZero(privKey)

	c, err := a.cipher()
	if err != nil {
		return "", err
	}
	plaintext, err := c.DecryptString(env, privKey)
	if err != nil {
		a.logger.Debug("decryption failed", "address", address, "version", env.Version, "error", err)
		return "", ecies.Redact(err)
	}
	return plaintext, nil
}

func (a *app) decryptRemote(ctx context.Context, address string, env *ecies.Envelope, sig []byte) (string, error) {
	client, err := a.client()
	if err != nil {
		return "", err
	}
	return client.Decrypt(ctx, address, env, sig)
}

// readMessage reads a message from stdin, dropping one trailing newline.
func readMessage(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	msg := strings.TrimSuffix(string(raw), "\n")
	return strings.TrimSuffix(msg, "\r"), nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// parseEnvelopeInput accepts envelope JSON or an EIP-1024 object.
func parseEnvelopeInput(raw []byte) (*ecies.Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ecies.ErrMalformedCiphertext, err)
	}
	if _, ok := fields["ephemPublicKey"]; ok {
		return ecies.ParseEIP1024(raw)
	}
	return ecies.ParseEnvelope(raw)
}

// decodePublicKey reads hex, and for x25519 also the base64 form MetaMask's
// eth_getEncryptionPublicKey returns. secp256k1 keys may be compressed or
// uncompressed and come back compressed.
func decodePublicKey(s, version string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if version == ecies.VersionX25519 {
		if b, err := hexenc.Decode(s); err == nil {
			return b, nil
		}
		if b, err := base64.StdEncoding.DecodeString(s); err == nil {
			return b, nil
		}
		return nil, fmt.Errorf("%w: cannot decode %q", ecies.ErrInvalidPublicKey, s)
	}

	b, err := hexenc.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode %q", ecies.ErrInvalidPublicKey, s)
	}
	compressed, err := secp256k1.NormalizePublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ecies.ErrInvalidPublicKey, err)
	}
	return compressed, nil
}

// decodeSignature reads a hex signature flag. Surrounding whitespace from a
// pasted or piped value is ignored.
func decodeSignature(s string) ([]byte, error) {
	sig, err := hexenc.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	return sig, nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Cainuriel/message-crypto/ecies"
	"github.com/Cainuriel/message-crypto/internal/config"
	"github.com/Cainuriel/message-crypto/internal/hexenc"
)

// render writes v as JSON or YAML, or calls text for the default format.
// v should be built from maps and basic types so both encoders agree on
// field names.
func (a *app) render(v interface{}, text func(w io.Writer) error) error {
	switch a.cfg.Output {
	case config.OutputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(a.out)
	}
}

// envelopeMap flattens an envelope into its wire field names.
func envelopeMap(env *ecies.Envelope) map[string]string {
	return map[string]string{
		"version":            env.Version,
		"ephemeralPublicKey": hexenc.Encode(env.EphemeralPublicKey),
		"salt":               hexenc.Encode(env.Salt),
		"nonce":              hexenc.Encode(env.Nonce),
		"ciphertext":         hexenc.Encode(env.Ciphertext),
		"mac":                hexenc.Encode(env.MAC),
	}
}

func writeEnvelopeJSON(w io.Writer, env *ecies.Envelope) error {
	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

// writeFields prints aligned "Label: value" lines.
func writeFields(w io.Writer, fields [][2]string) error {
	width := 0
	for _, f := range fields {
		if len(f[0]) > width {
			width = len(f[0])
		}
	}
	for _, f := range fields {
		pad := strings.Repeat(" ", width-len(f[0]))
		if _, err := fmt.Fprintf(w, "%s:%s %s\n", f[0], pad, f[1]); err != nil {
			return err
		}
	}
	return nil
}

package messagecrypto

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/ecies"
	"github.com/Cainuriel/message-crypto/internal/hexenc"
)

// Client handles HTTP communication with the message-crypto engine.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	namespace  string
	mountPath  string
}

// NewClient creates a new client instance.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.SkipTLSVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout, Transport: transport},
		baseURL:    strings.TrimSuffix(cfg.BaoAddr, "/"),
		token:      cfg.BaoToken,
		namespace:  cfg.BaoNamespace,
		mountPath:  strings.Trim(cfg.MountPath, "/"),
	}, nil
}

// Challenge fetches the message a wallet must sign for address.
func (c *Client) Challenge(ctx context.Context, address string) (*ChallengeInfo, error) {
	address, err := authgate.CanonicalIdentity(address)
	if err != nil {
		return nil, WrapOpError("challenge", "", err)
	}

	var info ChallengeInfo
	if err := c.getData(ctx, c.path("challenge", address), &info); err != nil {
		return nil, WrapOpError("challenge", address, err)
	}
	return &info, nil
}

// RegisterKey proves control of address with a signature over its
// challenge and stores the derived public key in the engine.
func (c *Client) RegisterKey(ctx context.Context, address string, signature []byte) (*KeyInfo, error) {
	address, err := authgate.CanonicalIdentity(address)
	if err != nil {
		return nil, WrapOpError("register", "", err)
	}

	body := map[string]interface{}{"signature": hexenc.EncodePrefixed(signature)}
	resp, err := c.post(ctx, c.path("keys", address), body)
	if err != nil {
		return nil, WrapOpError("register", address, err)
	}

	var info KeyInfo
	if err := decodeData(resp, &info); err != nil {
		return nil, WrapOpError("register", address, err)
	}
	return &info, nil
}

// GetKey retrieves the public record for a registered address.
func (c *Client) GetKey(ctx context.Context, address string) (*KeyInfo, error) {
	address, err := authgate.CanonicalIdentity(address)
	if err != nil {
		return nil, WrapOpError("get", "", err)
	}

	var info KeyInfo
	if err := c.getData(ctx, c.path("keys", address), &info); err != nil {
		return nil, WrapOpError("get", address, err)
	}
	return &info, nil
}

// ListKeys lists registered addresses.
func (c *Client) ListKeys(ctx context.Context) ([]string, error) {
	resp, err := c.list(ctx, c.path("keys"))
	if err != nil {
		// An empty LIST is reported as 404 by OpenBao.
		if be, ok := err.(*BaoError); ok && be.StatusCode == http.StatusNotFound {
			return []string{}, nil
		}
		return nil, WrapOpError("list", "", err)
	}

	var result struct {
		Keys []string `json:"keys"`
	}
	if err := decodeData(resp, &result); err != nil {
		return nil, WrapOpError("list", "", err)
	}
	if result.Keys == nil {
		result.Keys = []string{}
	}
	return result.Keys, nil
}

// DeleteKey removes the record for address.
func (c *Client) DeleteKey(ctx context.Context, address string) error {
	address, err := authgate.CanonicalIdentity(address)
	if err != nil {
		return WrapOpError("delete", "", err)
	}
	return WrapOpError("delete", address, c.delete(ctx, c.path("keys", address)))
}

// Encrypt seals plaintext to the key registered for address.
func (c *Client) Encrypt(ctx context.Context, address, plaintext string, opts EncryptOptions) (*ecies.Envelope, error) {
	address, err := authgate.CanonicalIdentity(address)
	if err != nil {
		return nil, WrapOpError("encrypt", "", err)
	}

	resp, err := c.post(ctx, c.path("encrypt", address), EncryptRequest{
		Plaintext: plaintext,
		Version:   opts.Version,
	})
	if err != nil {
		return nil, WrapOpError("encrypt", address, err)
	}

	var result EncryptResponse
	if err := decodeData(resp, &result); err != nil {
		return nil, WrapOpError("encrypt", address, err)
	}
	if result.Envelope == nil {
		return nil, WrapOpError("encrypt", address, ErrInvalidResponse)
	}
	return result.Envelope, nil
}

// Decrypt asks the engine to open env for address. The signature over the
// address challenge authorizes the engine to re-derive the private key for
// this one call.
func (c *Client) Decrypt(ctx context.Context, address string, env *ecies.Envelope, signature []byte) (string, error) {
	address, err := authgate.CanonicalIdentity(address)
	if err != nil {
		return "", WrapOpError("decrypt", "", err)
	}
	if env == nil {
		return "", WrapOpError("decrypt", address, ecies.ErrMalformedCiphertext)
	}

	resp, err := c.post(ctx, c.path("decrypt", address), DecryptRequest{
		Envelope:  env,
		Signature: hexenc.EncodePrefixed(signature),
	})
	if err != nil {
		return "", WrapOpError("decrypt", address, err)
	}

	var result DecryptResponse
	if err := decodeData(resp, &result); err != nil {
		return "", WrapOpError("decrypt", address, err)
	}
	return result.Plaintext, nil
}

// Health checks OpenBao status.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sys/health", nil)
	if err != nil {
		return ErrBaoConnection
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrBaoConnection
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case 200:
		return nil
	case 503:
		return ErrBaoSealed
	default:
		return ErrBaoUnavailable
	}
}

func (c *Client) path(parts ...string) string {
	return "/v1/" + c.mountPath + "/" + strings.Join(parts, "/")
}

func decodeData(body []byte, v interface{}) error {
	var result struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(result.Data) == 0 || string(result.Data) == "null" {
		return ErrInvalidResponse
	}
	if err := json.Unmarshal(result.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// HTTP helpers
func (c *Client) getData(ctx context.Context, path string, v interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeData(resp, v)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPost, path, body)
}

func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	return err
}

func (c *Client) list(ctx context.Context, path string) ([]byte, error) {
	return c.doRequest(ctx, "LIST", path, nil)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, ErrBaoConnection
	}

	req.Header.Set("X-Vault-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.namespace != "" {
		req.Header.Set("X-Vault-Namespace", c.namespace)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrBaoConnection
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrBaoConnection
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Errors []string `json:"errors"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return nil, NewBaoError(resp.StatusCode, errResp.Errors, resp.Header.Get("X-Vault-Request-Id"))
	}

	return respBody, nil
}

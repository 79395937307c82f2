// Package vault resolves database credentials from HashiCorp Vault, as an
// alternative to putting them in the environment. Authentication is either
// a static token or AppRole.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/mitchellh/mapstructure"
)

const (
	approleSecretIDPath = "auth/approle/role/%s/secret-id"
	approleLoginPath    = "auth/approle/login"
)

// ErrClientInit indicates failure to initialize the Vault API client.
var ErrClientInit = errors.New("vault client initialization failed")

// Option configures the client.
type Option func(*config)

type config struct {
	address  string
	token    string
	roleID   string
	roleName string
}

// Client wraps the Vault API client.
type Client struct {
	api    *vault.Client
	config *config
}

// DynamicCredentials is a leased username/password pair issued by a Vault
// database secrets engine role.
type DynamicCredentials struct {
	Username string
	Password string
	TTL      time.Duration
}

// StaticCredentials is a plain KV secret holding connection settings.
type StaticCredentials struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// WithAddress overrides the Vault address (default: VAULT_ADDR).
func WithAddress(address string) Option {
	return func(c *config) {
		c.address = address
	}
}

// WithToken sets a static token (default: VAULT_TOKEN).
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithAppRole enables AppRole login with the given role id and name.
func WithAppRole(roleID, roleName string) Option {
	return func(c *config) {
		c.roleID = roleID
		c.roleName = roleName
	}
}

// NewClient creates and initializes a Vault client. AppRole login is
// performed when both roleID and roleName are set, otherwise the static
// token from the environment or WithToken is used.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{
		address: os.Getenv("VAULT_ADDR"),
		token:   os.Getenv("VAULT_TOKEN"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	apiCfg := vault.DefaultConfig()
	if cfg.address != "" {
		apiCfg.Address = cfg.address
	}

	api, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientInit, err)
	}

	client := &Client{api: api, config: cfg}
	if cfg.token != "" {
		client.api.SetToken(cfg.token)
	}
	if cfg.roleID != "" && cfg.roleName != "" {
		if err := client.loginAppRole(ctx); err != nil {
			return nil, fmt.Errorf("approle login failed: %w", err)
		}
	}
	return client, nil
}

func (c *Client) loginAppRole(ctx context.Context) error {
	path := fmt.Sprintf(approleSecretIDPath, c.config.roleName)
	resp, err := c.api.Logical().WriteWithContext(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("generate secret_id: %w", err)
	}
	sid, ok := resp.Data["secret_id"].(string)
	if !ok || sid == "" {
		return fmt.Errorf("no secret_id returned from %s", path)
	}

	loginData := map[string]any{
		"role_id":   c.config.roleID,
		"secret_id": sid,
	}
	loginResp, err := c.api.Logical().WriteWithContext(ctx, approleLoginPath, loginData)
	if err != nil {
		return fmt.Errorf("approle login request: %w", err)
	}
	if loginResp.Auth == nil || loginResp.Auth.ClientToken == "" {
		return fmt.Errorf("no token in login response")
	}
	c.api.SetToken(loginResp.Auth.ClientToken)
	return nil
}

// GetDynamicCredentials reads a leased username/password from the database
// secrets engine role at the given path.
func (c *Client) GetDynamicCredentials(
	ctx context.Context,
	role string,
) (DynamicCredentials, error) {
	secret, err := c.api.Logical().ReadWithContext(ctx, role)
	if err != nil {
		return DynamicCredentials{}, err
	}
	if secret == nil {
		return DynamicCredentials{}, fmt.Errorf("no data found at path: %s", role)
	}
	user, userOK := secret.Data["username"].(string)
	pass, passOK := secret.Data["password"].(string)
	if !userOK || !passOK {
		return DynamicCredentials{}, fmt.Errorf("invalid data format at path: %s", role)
	}
	return DynamicCredentials{
		Username: user,
		Password: pass,
		TTL:      time.Duration(secret.LeaseDuration) * time.Second,
	}, nil
}

// GetStaticCredentials reads a plain KV secret at the given path.
func (c *Client) GetStaticCredentials(
	ctx context.Context,
	path string,
) (StaticCredentials, error) {
	secret, err := c.api.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return StaticCredentials{}, err
	}
	if secret == nil {
		return StaticCredentials{}, fmt.Errorf("no data found at path: %s", path)
	}

	var creds StaticCredentials
	if err := mapstructure.Decode(secret.Data, &creds); err != nil {
		return StaticCredentials{}, fmt.Errorf("decode secret at %s: %w", path, err)
	}
	return creds, nil
}

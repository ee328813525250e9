package conf

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultRemoteBaseURL  = "https://api.web3modal.org"
	defaultRemoteTimeout  = 10 * time.Second
	defaultMessageVersion = "1"

	// StorageLocal persists sessions under a single key of a key-value
	// store on this machine.
	StorageLocal = "local"
	// StorageRemote keeps the single live session on the authentication
	// service.
	StorageRemote = "remote"
)

type LoggingConfig struct {
	Level  string            `json:"log_level"`
	File   string            `json:"log_file"`
	Fields map[string]string `json:"fields"`
}

// MessageConfiguration holds the application specific parts of every
// message that is built.
type MessageConfiguration struct {
	Domain    string   `json:"domain"`
	URI       string   `json:"uri"`
	Statement string   `json:"statement"`
	Version   string   `json:"version"`
	Resources []string `json:"resources"`

	// ExpirationDuration is added to Not Before (or the creation time) to
	// compute the expiration time. Zero disables expiration.
	ExpirationDuration time.Duration `json:"expiration_duration" split_words:"true"`

	ClearChainIDNamespace bool `json:"clear_chain_id_namespace" split_words:"true"`
	NonceLength           int  `json:"nonce_length" split_words:"true" default:"16"`

	// RequestID adds a random UUID "Request ID" line to every message.
	RequestID bool `json:"request_id" split_words:"true"`
}

func (c *MessageConfiguration) Validate() error {
	if c.NonceLength < 8 {
		return errors.New("conf: SIWX_MESSAGE_NONCE_LENGTH must be at least 8")
	}
	if c.ExpirationDuration < 0 {
		return errors.New("conf: SIWX_MESSAGE_EXPIRATION_DURATION must not be negative")
	}
	return nil
}

// StorageConfiguration selects and configures the session storage backend.
type StorageConfiguration struct {
	Backend string `json:"backend" default:"local"`

	// Dir is where the key-value store keeps its files: the sessions of the
	// local backend and the tokens of the remote one. Defaults to "siwx"
	// under the user config directory.
	Dir string `json:"dir"`
	Key string `json:"key" default:"siwx-sessions"`
}

func (c *StorageConfiguration) Validate() error {
	switch c.Backend {
	case StorageLocal, StorageRemote:
	default:
		return fmt.Errorf("conf: unsupported storage backend %q", c.Backend)
	}
	if c.Key == "" {
		return errors.New("conf: SIWX_STORAGE_KEY must not be empty")
	}
	if c.Dir == "" {
		return errors.New("conf: SIWX_STORAGE_DIR must be set when there is no user config directory")
	}
	return nil
}

// RemoteConfiguration holds the settings of the remote authentication
// service used by the remote storage backend.
type RemoteConfiguration struct {
	URL        string        `json:"url"`
	ProjectID  string        `json:"project_id" split_words:"true"`
	SDKType    string        `json:"sdk_type" split_words:"true" default:"siwx"`
	SDKVersion string        `json:"sdk_version" split_words:"true"`
	ClientID   string        `json:"client_id" split_words:"true"`
	Timeout    time.Duration `json:"timeout"`

	AuthTokenKey  string `json:"auth_token_key" split_words:"true" default:"siwx-auth-token"`
	NonceTokenKey string `json:"nonce_token_key" split_words:"true" default:"siwx-nonce-token"`
}

func (c *RemoteConfiguration) Validate() error {
	u, err := url.ParseRequestURI(c.URL)
	if err != nil {
		return fmt.Errorf("conf: SIWX_REMOTE_URL is not valid: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("conf: SIWX_REMOTE_URL must use http or https, got %q", u.Scheme)
	}
	if c.ProjectID == "" {
		return errors.New("conf: SIWX_REMOTE_PROJECT_ID is required by the remote storage backend")
	}
	return nil
}

type ChainsConfiguration struct {
	// RegistryFile is an optional TOML file with additional chains.
	RegistryFile string `json:"registry_file" split_words:"true"`
}

type VerificationConfiguration struct {
	FilterExpired bool `json:"filter_expired" split_words:"true"`
}

// GlobalConfiguration holds all the configuration of the siwx tool.
type GlobalConfiguration struct {
	Logging      LoggingConfig `envconfig:"LOG"`
	Metrics      MetricsConfig
	Message      MessageConfiguration
	Storage      StorageConfiguration
	Remote       RemoteConfiguration
	Chains       ChainsConfiguration
	Verification VerificationConfiguration
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// handle if .env file does not exist, this is OK
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

func LoadGlobal(filename string) (*GlobalConfiguration, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, err
	}

	config := new(GlobalConfiguration)

	if err := envconfig.Process("siwx", config); err != nil {
		return nil, err
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyDefaults sets defaults for a GlobalConfiguration
func (config *GlobalConfiguration) ApplyDefaults() error {
	if config.Message.Version == "" {
		config.Message.Version = defaultMessageVersion
	}

	if config.Message.NonceLength == 0 {
		config.Message.NonceLength = 16
	}

	if config.Storage.Backend == "" {
		config.Storage.Backend = StorageLocal
	}

	config.Storage.Backend = strings.ToLower(strings.TrimSpace(config.Storage.Backend))

	if config.Storage.Key == "" {
		config.Storage.Key = "siwx-sessions"
	}

	if config.Storage.Dir == "" {
		// left empty for Validate to report when neither XDG_CONFIG_HOME nor HOME is set
		if dir, err := os.UserConfigDir(); err == nil {
			config.Storage.Dir = filepath.Join(dir, "siwx")
		}
	}

	if config.Remote.URL == "" {
		config.Remote.URL = defaultRemoteBaseURL
	}

	config.Remote.URL = strings.TrimRight(config.Remote.URL, "/")

	if config.Remote.Timeout == 0 {
		config.Remote.Timeout = defaultRemoteTimeout
	}

	if config.Remote.AuthTokenKey == "" {
		config.Remote.AuthTokenKey = "siwx-auth-token"
	}

	if config.Remote.NonceTokenKey == "" {
		config.Remote.NonceTokenKey = "siwx-nonce-token"
	}

	return nil
}

func (c *GlobalConfiguration) Validate() error {
	validatables := []interface {
		Validate() error
	}{
		&c.Message,
		&c.Storage,
		&c.Metrics,
	}

	if c.Storage.Backend == StorageRemote {
		validatables = append(validatables, &c.Remote)
	}

	for _, validatable := range validatables {
		if err := validatable.Validate(); err != nil {
			return err
		}
	}

	return nil
}

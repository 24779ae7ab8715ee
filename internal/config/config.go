// Package config loads the annotator's JSON configuration file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"annotator/internal/domain"

	"github.com/adrg/xdg"
)

// Config holds runtime configuration. Fields are loaded from a JSON file
// and may be overridden by command-line flags.
type Config struct {
	Debug   bool   `json:"debug"`
	DataDir string `json:"data_dir"`
	ImageID int    `json:"image_id"`

	Remote RemoteConfig `json:"remote"`

	// Sync
	RetryIntervalSeconds  int `json:"retry_interval_seconds"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// Editing
	PointTolerance  float64           `json:"point_tolerance"`
	CloseThreshold  float64           `json:"close_threshold"`
	GridSize        int               `json:"grid_size"`
	CalibrationMode string            `json:"calibration_mode"`
	Keybindings     map[string]string `json:"keybindings"`

	// Headless viewer geometry used by the standalone MCP server.
	Viewer ViewerConfig `json:"viewer"`
}

// RemoteConfig selects and addresses the annotation backend. The CSRF token
// or database password is never stored here; it is read from the secret
// store under SecretKey.
type RemoteConfig struct {
	Driver        string `json:"driver"`
	BaseURL       string `json:"base_url"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Database      string `json:"database"`
	Username      string `json:"username"`
	SSLMode       string `json:"ssl_mode"`
	SecretBackend string `json:"secret_backend"` // "env" or "keychain"
	SecretKey     string `json:"secret_key"`
}

type ViewerConfig struct {
	ContainerWidth  float64 `json:"container_width"`
	ContainerHeight float64 `json:"container_height"`
	ImageWidth      float64 `json:"image_width"`
	ImageHeight     float64 `json:"image_height"`
}

// DefaultPath returns $XDG_CONFIG_HOME/annotator/config.json
// (~/.config/annotator/config.json on Linux).
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "annotator", "config.json")
}

func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, "annotator")
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Remote: RemoteConfig{
			Driver:        string(domain.RemoteDriverREST),
			BaseURL:       "http://localhost:8000",
			SecretBackend: "env",
			SecretKey:     "remote",
		},
		RetryIntervalSeconds:  5,
		RequestTimeoutSeconds: 15,
		PointTolerance:        10,
		CloseThreshold:        10,
		GridSize:              512,
		CalibrationMode:       "MICRO",
		Keybindings:           map[string]string{},
		Viewer: ViewerConfig{
			ContainerWidth:  1280,
			ContainerHeight: 800,
		},
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.Remote.Driver == "" {
		c.Remote.Driver = string(domain.RemoteDriverREST)
	}
	c.Remote.Driver = strings.ToLower(c.Remote.Driver)
	if c.Remote.SecretBackend == "" {
		c.Remote.SecretBackend = "env"
	}
	if c.Remote.SecretKey == "" {
		c.Remote.SecretKey = "remote"
	}
	if c.RetryIntervalSeconds <= 0 {
		c.RetryIntervalSeconds = 5
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 15
	}
	if c.PointTolerance <= 0 {
		c.PointTolerance = 10
	}
	if c.CloseThreshold <= 0 {
		c.CloseThreshold = 10
	}
	if c.GridSize <= 0 {
		c.GridSize = 512
	}
	c.CalibrationMode = strings.ToUpper(strings.TrimSpace(c.CalibrationMode))
	if c.CalibrationMode == "" {
		c.CalibrationMode = "MICRO"
	}
	if c.Keybindings == nil {
		c.Keybindings = map[string]string{}
	}
	if c.Viewer.ContainerWidth <= 0 {
		c.Viewer.ContainerWidth = 1280
	}
	if c.Viewer.ContainerHeight <= 0 {
		c.Viewer.ContainerHeight = 800
	}
	if c.Viewer.ImageWidth < 0 {
		c.Viewer.ImageWidth = 0
	}
	if c.Viewer.ImageHeight < 0 {
		c.Viewer.ImageHeight = 0
	}
	return nil
}

func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Connection converts the remote section to a domain connection.
func (c *Config) Connection() *domain.RemoteConnection {
	return &domain.RemoteConnection{
		Driver:   domain.RemoteDriver(c.Remote.Driver),
		BaseURL:  c.Remote.BaseURL,
		Host:     c.Remote.Host,
		Port:     c.Remote.Port,
		Database: c.Remote.Database,
		Username: c.Remote.Username,
		SSLMode:  c.Remote.SSLMode,
	}
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format,
// creating the parent directory if needed.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

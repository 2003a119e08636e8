package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the helper looks for its configuration.
const DefaultConfigPath = "/etc/wgstatusbar/helper.yaml"

// Config is the helper daemon configuration.
type Config struct {
	// Prefix is the package manager prefix wg-quick was installed under.
	Prefix string `yaml:"prefix,omitempty"`
	// ConfigPaths are tunnel configuration directories in priority order.
	ConfigPaths []string `yaml:"config_paths,omitempty"`
	// RunPath holds the {tunnel}.name markers written by wg-quick.
	RunPath string `yaml:"run_path,omitempty"`
	WGQuick string `yaml:"wg_quick,omitempty"`
	WG      string `yaml:"wg,omitempty"`
	// Socket is the IPC endpoint (Unix socket path or Named Pipe name).
	Socket string `yaml:"socket,omitempty"`

	// KeepAlive keeps the helper running after the last client disconnects.
	// Needed where the service manager cannot restart it on demand.
	KeepAlive bool `yaml:"keep_alive,omitempty"`

	MinUptime   time.Duration `yaml:"min_uptime,omitempty"`
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	ToolTimeout time.Duration `yaml:"tool_timeout,omitempty"`

	Logging LogConfig `yaml:"logging,omitempty"`
}

// SearchPath returns the PATH handed to wg-quick. wg-quick needs a bash newer
// than the one macOS ships, so the prefix bin dir goes first.
func (c Config) SearchPath() string {
	return c.Prefix + "/bin:/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin"
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func defaultPrefix() string {
	switch runtime.GOOS {
	case "darwin":
		if fi, err := os.Stat("/opt/homebrew/bin/wg-quick"); err == nil && !fi.IsDir() {
			return "/opt/homebrew"
		}
		return "/usr/local"
	default:
		return "/usr"
	}
}

func defaultSocket() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\wgstatusbar`
	}
	return "/var/run/wgstatusbar.sock"
}

// applyDefaults fills every zero field. Paths derived from Prefix are only
// derived when not set explicitly.
func (c *Config) applyDefaults() {
	if c.Prefix == "" {
		c.Prefix = defaultPrefix()
	}
	c.Prefix = filepath.Clean(c.Prefix)
	if len(c.ConfigPaths) == 0 {
		c.ConfigPaths = []string{
			filepath.Join(c.Prefix, "etc", "wireguard"),
			"/etc/wireguard",
		}
	}
	if c.RunPath == "" {
		c.RunPath = "/var/run/wireguard"
	}
	if c.WGQuick == "" {
		c.WGQuick = filepath.Join(c.Prefix, "bin", "wg-quick")
	}
	if c.WG == "" {
		c.WG = filepath.Join(c.Prefix, "bin", "wg")
	}
	if c.Socket == "" {
		c.Socket = defaultSocket()
	}
	if c.MinUptime <= 0 {
		c.MinUptime = 10 * time.Second
	}
	if c.Debounce <= 0 {
		c.Debounce = 100 * time.Millisecond
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 60 * time.Second
	}
}

// ConfigManager loads the helper configuration from disk.
type ConfigManager struct {
	mu       sync.RWMutex
	config   Config
	filePath string
	bus      *EventBus
}

// NewConfigManager creates a config manager that reads from the given file.
func NewConfigManager(filePath string, bus *EventBus) *ConfigManager {
	return &ConfigManager{
		filePath: filePath,
		bus:      bus,
		config:   DefaultConfig(),
	}
}

// Load reads and parses the configuration from disk. A missing file is not an
// error: the helper runs as root and must not create files in /etc by itself.
func (cm *ConfigManager) Load() error {
	data, err := os.ReadFile(cm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			Log.Infof("Core", "Config %s not found, using defaults", cm.filePath)
			cm.mu.Lock()
			cm.config = DefaultConfig()
			cm.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read config %s: %w", cm.filePath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", cm.filePath, err)
	}
	cfg.applyDefaults()

	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()

	if cm.bus != nil {
		cm.bus.Publish(Event{Type: EventConfigReloaded, Payload: ConfigReloadedPayload{Config: cm.Get()}})
	}
	return nil
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	cfg := cm.config
	cfg.ConfigPaths = append([]string(nil), cm.config.ConfigPaths...)
	return cfg
}

// Path returns the file the manager reads from.
func (cm *ConfigManager) Path() string {
	return cm.filePath
}

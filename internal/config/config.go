package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Bus contains configuration for the message bus connection.
type Bus struct {
	RedisAddr      string `toml:"redis_addr"`
	RedisPassword  string `toml:"redis_password"`
	RedisDB        int    `toml:"redis_db"`
	TopicPrefix    string `toml:"topic_prefix"`
	StatusInterval int    `toml:"status_interval"`
}

// Printer contains configuration for the label printer connection.
type Printer struct {
	Transport       string `toml:"transport"`
	Address         string `toml:"address"`
	SerialDevice    string `toml:"serial_device"`
	SerialBaud      int    `toml:"serial_baud"`
	SocketTimeout   int    `toml:"socket_timeout"`
	ConnectAttempts int    `toml:"connect_attempts"`
	ConnectBackoff  int    `toml:"connect_backoff"`
}

// Queue contains configuration for the print queue worker timing.
type Queue struct {
	PollInterval  int `toml:"poll_interval"`
	RetryInterval int `toml:"retry_interval"`
	SuccessDelay  int `toml:"success_delay"`
}

// Ledger contains configuration for the serial and service ledgers.
type Ledger struct {
	SerialFile        string `toml:"serial_file"`
	SavFile           string `toml:"sav_file"`
	SerialPrefix      string `toml:"serial_prefix"`
	PlaceholderMarker string `toml:"placeholder_marker"`
}

// Units holds the unit-type to capacity-code compatibility table.
type Units struct {
	Compatibility map[string][]string `toml:"compatibility"`
}

// Scan contains configuration for the operator scan session.
type Scan struct {
	SessionTimeout    int `toml:"session_timeout"`
	InvalidResetDelay int `toml:"invalid_reset_delay"`
}

// Notify contains configuration for shipment email notifications.
type Notify struct {
	Enabled      bool     `toml:"enabled"`
	SMTPHost     string   `toml:"smtp_host"`
	SMTPPort     int      `toml:"smtp_port"`
	SMTPUsername string   `toml:"smtp_username"`
	SMTPPassword string   `toml:"smtp_password"`
	From         string   `toml:"from"`
	Recipients   []string `toml:"recipients"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for battrack.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Bus: redis connection and status publishing cadence
//   - Printer: device transport, address, and probe retry policy
//   - Queue: print worker polling and retry intervals
//   - Ledger: ledger file locations and serial grammar
//   - Units: unit-type to capacity-code compatibility table
//   - Scan: operator session timeouts
//   - Notify: shipment email settings
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Bus     Bus     `toml:"bus"`
	Printer Printer `toml:"printer"`
	Queue   Queue   `toml:"queue"`
	Ledger  Ledger  `toml:"ledger"`
	Units   Units   `toml:"units"`
	Scan    Scan    `toml:"scan"`
	Notify  Notify  `toml:"notify"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/battrack/config.toml")
}

// Load locates, parses, and validates a configuration file. A `.env` file in
// the working directory is applied first so secrets can stay out of the TOML.
// The returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/battrack/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("battrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "battrackd.lock")
}

// CompatibleCapacities returns the capacity codes allowed for a unit type,
// or nil when the unit type is unknown.
func (c *Config) CompatibleCapacities(unitType string) []string {
	key := strings.ToUpper(strings.TrimSpace(unitType))
	codes, ok := c.Units.Compatibility[key]
	if !ok {
		return nil
	}
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the given path.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

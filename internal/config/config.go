package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	minCollectionIntervalSeconds = 1
	maxCollectionIntervalSeconds = 3600
	minRetentionDays             = 1
	maxRetentionDays             = 3650
	minCleanupIntervalHours      = 1
	maxCleanupIntervalHours      = 720
)

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/power-hal/config.toml"

// Bus names accepted in dbus.bus.
const (
	BusSystem  = "system"
	BusSession = "session"
)

type Config struct {
	Paths      PathsConfig      `toml:"paths" json:"paths"`
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Collection CollectionConfig `toml:"collection" json:"collection"`
	Cleanup    CleanupConfig    `toml:"cleanup" json:"cleanup"`
	DBus       DBusConfig       `toml:"dbus" json:"dbus"`
	Metrics    MetricsConfig    `toml:"metrics" json:"metrics"`
}

// PathsConfig locates the device files the HAL reads and writes.
type PathsConfig struct {
	RPMStats       string `toml:"rpm_stats" json:"rpm_stats"`
	RPMMasterStats string `toml:"rpm_master_stats" json:"rpm_master_stats"`
	BoostSocket    string `toml:"boost_socket" json:"boost_socket"`
	WakeGesture    string `toml:"wake_gesture" json:"wake_gesture"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path" json:"db_path"`
}

type CollectionConfig struct {
	IntervalSeconds int `toml:"interval_seconds" json:"interval_seconds"`
}

type CleanupConfig struct {
	RetentionDays int `toml:"retention_days" json:"retention_days"`
	IntervalHours int `toml:"interval_hours" json:"interval_hours"`
}

type DBusConfig struct {
	Bus string `toml:"bus" json:"bus"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr" json:"listen_addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			RPMStats:       "/d/rpm_stats",
			RPMMasterStats: "/d/rpm_master_stats",
			BoostSocket:    "/dev/socket/mpdecision/pb",
			WakeGesture:    "/sys/bus/i2c/devices/1-004a/tsp",
		},
		Storage: StorageConfig{
			DBPath: "/var/lib/power-hal/data.db",
		},
		Collection: CollectionConfig{
			IntervalSeconds: 60,
		},
		Cleanup: CleanupConfig{
			RetentionDays: 30,
			IntervalHours: 24,
		},
		DBus: DBusConfig{
			Bus: BusSystem,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return NormalizeAndValidate(cfg)
}

func NormalizeAndValidate(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	sanitized := *cfg

	paths := []struct {
		name  string
		value *string
	}{
		{"paths.rpm_stats", &sanitized.Paths.RPMStats},
		{"paths.rpm_master_stats", &sanitized.Paths.RPMMasterStats},
		{"paths.boost_socket", &sanitized.Paths.BoostSocket},
		{"paths.wake_gesture", &sanitized.Paths.WakeGesture},
		{"storage.db_path", &sanitized.Storage.DBPath},
	}
	for _, p := range paths {
		cleaned, err := sanitizePath(p.name, *p.value)
		if err != nil {
			return nil, err
		}
		*p.value = cleaned
	}

	if err := validateRange("collection.interval_seconds", sanitized.Collection.IntervalSeconds, minCollectionIntervalSeconds, maxCollectionIntervalSeconds); err != nil {
		return nil, err
	}
	if err := validateRange("cleanup.retention_days", sanitized.Cleanup.RetentionDays, minRetentionDays, maxRetentionDays); err != nil {
		return nil, err
	}
	if err := validateRange("cleanup.interval_hours", sanitized.Cleanup.IntervalHours, minCleanupIntervalHours, maxCleanupIntervalHours); err != nil {
		return nil, err
	}

	sanitized.DBus.Bus = strings.ToLower(strings.TrimSpace(sanitized.DBus.Bus))
	if sanitized.DBus.Bus != BusSystem && sanitized.DBus.Bus != BusSession {
		return nil, fmt.Errorf("dbus.bus must be %q or %q, got %q", BusSystem, BusSession, cfg.DBus.Bus)
	}

	sanitized.Metrics.ListenAddr = strings.TrimSpace(sanitized.Metrics.ListenAddr)
	if sanitized.Metrics.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(sanitized.Metrics.ListenAddr); err != nil {
			return nil, fmt.Errorf("metrics.listen_addr must be host:port, got %q", cfg.Metrics.ListenAddr)
		}
	}

	return &sanitized, nil
}

// fileHeader starts every config file written by Write.
const fileHeader = "# power-hal-daemon configuration\n\n"

// Write validates cfg and writes it to path as TOML. An existing file is left
// alone unless overwrite is set, in which case it is replaced atomically.
func Write(path string, cfg *Config, overwrite bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config path must not be empty")
	}

	sanitized, err := NormalizeAndValidate(cfg)
	if err != nil {
		return err
	}

	var data bytes.Buffer
	data.WriteString(fileHeader)
	if err := toml.NewEncoder(&data).Encode(sanitized); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}

	if overwrite {
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("replace %s: %w", path, err)
		}
		return nil
	}
	// Link fails if path exists, so a config written concurrently is kept.
	if err := os.Link(tmpPath, path); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

func sanitizePath(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%s must be an absolute path, got %q", name, value)
	}
	return cleaned, nil
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, min, max, value)
	}

	return nil
}

// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all declareflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Discovery DiscoveryConfig `yaml:"discovery"`
	Engine    EngineConfig    `yaml:"engine"`
	Storage   StorageConfig   `yaml:"storage"`
	Export    ExportConfig    `yaml:"export"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DiscoveryConfig controls constraint discovery defaults.
type DiscoveryConfig struct {
	Threshold float64 `yaml:"threshold"` // support gate, (0, 1]
	O2OMode   string  `yaml:"o2o_mode"`  // None | Direct | Reversed | Bidirectional
	Workers   int     `yaml:"workers"`   // 0 = auto
}

// EngineConfig controls evaluation behavior.
type EngineConfig struct {
	CheckConformance bool `yaml:"check_conformance"`
}

// StorageConfig for log persistence.
type StorageConfig struct {
	Database string `yaml:"database"`
	CacheDir string `yaml:"cache_dir"`
}

// ExportConfig controls result export behavior.
type ExportConfig struct {
	Compression string `yaml:"compression"` // snappy | zstd | gzip
}

// TelemetryConfig for optional OTLP tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	appDir := filepath.Join(homeDir, ".declareflow")

	return &Config{
		Version: 1,
		Discovery: DiscoveryConfig{
			Threshold: 0.2,
			O2OMode:   "None",
			Workers:   0, // auto
		},
		Engine: EngineConfig{
			CheckConformance: false,
		},
		Storage: StorageConfig{
			Database: filepath.Join(appDir, "declareflow.db"),
			CacheDir: filepath.Join(appDir, "cache"),
		},
		Export: ExportConfig{
			Compression: "zstd",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	paths := m.getConfigPaths()
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			// Ignore missing files, fail on broken ones
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()

	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/declareflow/config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".declareflow", "config.yaml"))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".declareflow.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	if src.Discovery.Threshold != 0 {
		m.config.Discovery.Threshold = src.Discovery.Threshold
	}
	if src.Discovery.O2OMode != "" {
		m.config.Discovery.O2OMode = src.Discovery.O2OMode
	}
	if src.Discovery.Workers != 0 {
		m.config.Discovery.Workers = src.Discovery.Workers
	}

	if src.Engine.CheckConformance {
		m.config.Engine.CheckConformance = true
	}

	if src.Storage.Database != "" {
		m.config.Storage.Database = src.Storage.Database
	}
	if src.Storage.CacheDir != "" {
		m.config.Storage.CacheDir = src.Storage.CacheDir
	}

	if src.Export.Compression != "" {
		m.config.Export.Compression = src.Export.Compression
	}

	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("DECLAREFLOW_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			m.config.Discovery.Threshold = threshold
		}
	}

	if v := os.Getenv("DECLAREFLOW_O2O_MODE"); v != "" {
		m.config.Discovery.O2OMode = v
	}

	if v := os.Getenv("DECLAREFLOW_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			m.config.Discovery.Workers = workers
		}
	}

	if v := os.Getenv("DECLAREFLOW_DATABASE"); v != "" {
		m.config.Storage.Database = v
	}

	if v := os.Getenv("DECLAREFLOW_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".declareflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Validate checks the loaded configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Discovery.Threshold <= 0 || c.Discovery.Threshold > 1 {
		return fmt.Errorf("discovery.threshold must be in (0, 1], got %g", c.Discovery.Threshold)
	}
	if c.Discovery.Workers < 0 {
		return fmt.Errorf("discovery.workers must be >= 0, got %d", c.Discovery.Workers)
	}
	return nil
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}

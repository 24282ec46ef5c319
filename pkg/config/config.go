// Package config stores named connection profiles.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"smartclient/pkg/conn"
)

// ConfigManager interface defines the contract for profile operations
type ConfigManager interface {
	SaveConfig(name string, config conn.ConnConfig) error
	LoadConfig(name string) (conn.ConnConfig, error)
	ListConfigs() ([]ConfigInfo, error)
	DeleteConfig(name string) error
	GetDefaultConfig() conn.ConnConfig
	ConfigExists(name string) bool
}

// ConfigInfo contains a saved profile and its metadata
type ConfigInfo struct {
	Name        string          `json:"name" yaml:"name"`
	Config      conn.ConnConfig `json:"config" yaml:"config"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	LastUsedAt  time.Time       `json:"last_used_at" yaml:"last_used_at"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks if the profile is valid
func (c ConfigInfo) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}

	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("invalid connection config: %w", err)
	}

	if c.CreatedAt.IsZero() {
		return fmt.Errorf("created_at timestamp cannot be zero")
	}

	return nil
}

// ConfigStorage represents the storage format for profiles
type ConfigStorage struct {
	Configs map[string]ConfigInfo `json:"configs"`
	Version string                `json:"version"`
}

const storageVersion = "1.0"

// ExportDocument is the YAML layout written by Export and read by Import.
type ExportDocument struct {
	Version  string       `yaml:"version"`
	Profiles []ConfigInfo `yaml:"profiles"`
}

// FileConfigManager implements ConfigManager using file storage
type FileConfigManager struct {
	configDir  string
	configFile string
	now        func() time.Time
}

// NewFileConfigManager creates a new file-based profile manager
func NewFileConfigManager(configDir string) *FileConfigManager {
	return &FileConfigManager{
		configDir:  configDir,
		configFile: "profiles.json",
		now:        time.Now,
	}
}

// DefaultConfigDir returns the per-user directory profiles are kept in.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "smartclient"), nil
}

// Initialize creates the configuration directory and initializes storage if needed
func (fcm *FileConfigManager) Initialize() error {
	if err := os.MkdirAll(fcm.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(fcm.GetConfigPath()); os.IsNotExist(err) {
		if err := fcm.saveStorage(emptyStorage()); err != nil {
			return fmt.Errorf("failed to initialize config file: %w", err)
		}
	}

	return nil
}

// SaveConfig saves a profile with the given name, keeping the creation
// time and description of an existing profile.
func (fcm *FileConfigManager) SaveConfig(name string, config conn.ConnConfig) error {
	if err := validateName(name); err != nil {
		return err
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return fcm.update(func(storage *ConfigStorage) error {
		now := fcm.now()
		info := ConfigInfo{
			Name:       name,
			Config:     config,
			CreatedAt:  now,
			LastUsedAt: now,
		}
		if existing, exists := storage.Configs[name]; exists {
			info.CreatedAt = existing.CreatedAt
			info.Description = existing.Description
		}
		storage.Configs[name] = info
		return nil
	})
}

// LoadConfig loads a profile by name and marks it used
func (fcm *FileConfigManager) LoadConfig(name string) (conn.ConnConfig, error) {
	if name == "" {
		return conn.ConnConfig{}, fmt.Errorf("configuration name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return conn.ConnConfig{}, fmt.Errorf("failed to load configurations: %w", err)
	}

	info, exists := storage.Configs[name]
	if !exists {
		return conn.ConnConfig{}, fmt.Errorf("configuration '%s' not found", name)
	}

	info.LastUsedAt = fcm.now()
	storage.Configs[name] = info
	// last-used is informational
	fcm.saveStorage(storage)

	return info.Config, nil
}

// ListConfigs returns all saved profiles sorted by name
func (fcm *FileConfigManager) ListConfigs() ([]ConfigInfo, error) {
	storage, err := fcm.loadStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to load configurations: %w", err)
	}

	configs := make([]ConfigInfo, 0, len(storage.Configs))
	for _, info := range storage.Configs {
		configs = append(configs, info)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })

	return configs, nil
}

// GetConfigInfo returns a profile with its metadata
func (fcm *FileConfigManager) GetConfigInfo(name string) (ConfigInfo, error) {
	storage, err := fcm.loadStorage()
	if err != nil {
		return ConfigInfo{}, fmt.Errorf("failed to load configurations: %w", err)
	}
	info, exists := storage.Configs[name]
	if !exists {
		return ConfigInfo{}, fmt.Errorf("configuration '%s' not found", name)
	}
	return info, nil
}

// DeleteConfig deletes a profile by name
func (fcm *FileConfigManager) DeleteConfig(name string) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	return fcm.update(func(storage *ConfigStorage) error {
		if _, exists := storage.Configs[name]; !exists {
			return fmt.Errorf("configuration '%s' not found", name)
		}
		delete(storage.Configs, name)
		return nil
	})
}

// GetDefaultConfig returns the default connection configuration
func (fcm *FileConfigManager) GetDefaultConfig() conn.ConnConfig {
	return conn.DefaultConfig()
}

// ConfigExists checks if a profile with the given name exists
func (fcm *FileConfigManager) ConfigExists(name string) bool {
	if name == "" {
		return false
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return false
	}

	_, exists := storage.Configs[name]
	return exists
}

// SetConfigDescription sets the description for a profile
func (fcm *FileConfigManager) SetConfigDescription(name, description string) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	return fcm.update(func(storage *ConfigStorage) error {
		info, exists := storage.Configs[name]
		if !exists {
			return fmt.Errorf("configuration '%s' not found", name)
		}
		info.Description = description
		storage.Configs[name] = info
		return nil
	})
}

// Export writes the named profiles, or all of them when names is empty,
// to w as YAML.
func (fcm *FileConfigManager) Export(w io.Writer, names ...string) error {
	all, err := fcm.ListConfigs()
	if err != nil {
		return err
	}

	doc := ExportDocument{Version: storageVersion}
	if len(names) == 0 {
		doc.Profiles = all
	} else {
		byName := make(map[string]ConfigInfo, len(all))
		for _, info := range all {
			byName[info.Name] = info
		}
		for _, name := range names {
			info, ok := byName[name]
			if !ok {
				return fmt.Errorf("configuration '%s' not found", name)
			}
			doc.Profiles = append(doc.Profiles, info)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	return enc.Close()
}

// Import reads a YAML export from r and stores every profile in it. Nothing
// is stored unless every profile is valid. It returns the number of
// profiles imported.
func (fcm *FileConfigManager) Import(r io.Reader, overwrite bool) (int, error) {
	var doc ExportDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to parse profiles: %w", err)
	}

	for i := range doc.Profiles {
		if doc.Profiles[i].CreatedAt.IsZero() {
			doc.Profiles[i].CreatedAt = fcm.now()
		}
		if err := doc.Profiles[i].Validate(); err != nil {
			return 0, fmt.Errorf("invalid profile %d: %w", i+1, err)
		}
	}

	if err := fcm.Initialize(); err != nil {
		return 0, err
	}
	err := fcm.update(func(storage *ConfigStorage) error {
		for _, info := range doc.Profiles {
			if _, exists := storage.Configs[info.Name]; exists && !overwrite {
				return fmt.Errorf("configuration '%s' already exists", info.Name)
			}
		}
		for _, info := range doc.Profiles {
			storage.Configs[info.Name] = info
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(doc.Profiles), nil
}

// GetConfigPath returns the full path to the profile file
func (fcm *FileConfigManager) GetConfigPath() string {
	return filepath.Join(fcm.configDir, fcm.configFile)
}

// Private helper methods

func emptyStorage() ConfigStorage {
	return ConfigStorage{
		Configs: make(map[string]ConfigInfo),
		Version: storageVersion,
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}
	if strings.ContainsAny(name, ":/\\ ") {
		return fmt.Errorf("configuration name %q cannot contain ':', '/', '\\' or spaces", name)
	}
	return nil
}

// update loads the storage, applies fn and saves the result.
func (fcm *FileConfigManager) update(fn func(*ConfigStorage) error) error {
	if err := fcm.Initialize(); err != nil {
		return err
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load existing configurations: %w", err)
	}

	if err := fn(&storage); err != nil {
		return err
	}

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configurations: %w", err)
	}
	return nil
}

// loadStorage loads the profile storage from file
func (fcm *FileConfigManager) loadStorage() (ConfigStorage, error) {
	data, err := os.ReadFile(fcm.GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return emptyStorage(), nil
		}
		return ConfigStorage{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var storage ConfigStorage
	if err := json.Unmarshal(data, &storage); err != nil {
		return ConfigStorage{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if storage.Configs == nil {
		storage.Configs = make(map[string]ConfigInfo)
	}

	return storage, nil
}

// saveStorage saves the profile storage to file
func (fcm *FileConfigManager) saveStorage(storage ConfigStorage) error {
	configPath := fcm.GetConfigPath()

	data, err := json.MarshalIndent(storage, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config data: %w", err)
	}

	// write then rename so readers never see a partial file
	tempPath := configPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary config file: %w", err)
	}

	return nil
}

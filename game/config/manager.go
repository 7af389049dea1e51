package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/tilelink/game/engine"
	"github.com/wricardo/mcp-training/tilelink/game/service"
	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotFound matches service.ErrConfigNotFound under errors.Is
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// supportedExts lists preset file extensions in lookup order
var supportedExts = []string{".json", ".yaml", ".yml"}

// Manager handles board preset loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	m.defaultConfig = m.resolveDefault()
	return m, nil
}

// configID strips a supported extension from a file or config name
func configID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range supportedExts {
		if ext == s {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return name
}

// LoadConfig loads a configuration by name. The name may carry an extension;
// without one, .json, .yaml and .yml are tried in that order.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	config, err := m.readConfig(name)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

func (m *Manager) readConfig(name string) (*engine.GameConfig, error) {
	candidates := []string{name}
	if configID(name) == name {
		candidates = candidates[:0]
		for _, ext := range supportedExts {
			candidates = append(candidates, name+ext)
		}
	}

	for _, filename := range candidates {
		configPath := filepath.Join(m.configDir, filename)
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config, err := engine.DecodeGameConfig(filepath.Ext(filename), data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := engine.ValidateGameConfig(config); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return config, nil
	}

	return nil, ErrConfigNotFound
}

// ListConfigs returns information about all loadable configurations, sorted by id
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := configID(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        config.Name,
			Description: config.Description,
			Rows:        config.Rows,
			Cols:        config.Cols,
			MaxTurns:    config.Rules.MaxTurns,
			MatchReward: config.Rules.MatchReward,
			FixedLayout: len(config.Layout) > 0,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached configuration and re-resolves the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	def := m.resolveDefault()

	m.mu.Lock()
	m.defaultConfig = def
	m.mu.Unlock()
	return nil
}

// resolveDefault prefers classic, then the first loadable preset, then the built-in board
func (m *Manager) resolveDefault() *engine.GameConfig {
	if config, err := m.LoadConfig("classic"); err == nil {
		return config
	}

	configs, err := m.ListConfigs()
	if err != nil || len(configs) == 0 {
		return m.createMinimalConfig()
	}

	config, err := m.LoadConfig(configs[0].Filename)
	if err != nil {
		return m.createMinimalConfig()
	}
	return config
}

// SaveConfig validates config and writes it to disk. The extension of name picks
// the encoding; names without one are saved as JSON.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if strings.ContainsAny(name, `/\`) || name == "" {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	filename := name
	if configID(name) == name {
		filename = name + ".json"
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, filename)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[configID(name)] = config
	m.mu.Unlock()

	return nil
}

// createMinimalConfig returns the built-in 8x8 board
func (m *Manager) createMinimalConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "default"
	config.Description = "Built-in 8x8 board"
	return config
}

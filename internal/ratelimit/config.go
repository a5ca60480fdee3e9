package ratelimit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigManager manages the policy table with hot-reload support
type ConfigManager struct {
	mu         sync.RWMutex
	config     Config
	configFile string
	watcher    *fsnotify.Watcher
	onChange   func(Config) // callback when config changes
}

var (
	globalManager *ConfigManager
	once          sync.Once
)

// GetManager returns the global policy config manager
func GetManager() *ConfigManager {
	return globalManager
}

// InitManager initializes the global policy config manager
func InitManager(configFile string) (*ConfigManager, error) {
	once.Do(func() {
		cm := &ConfigManager{
			configFile: configFile,
		}

		if err := cm.loadConfig(); err != nil {
			log.Printf("⚠️ Policy config file not found, using defaults: %v", err)
			cm.config = cloneConfig(GetDefaultConfig())
			// Save default config to file
			if err := cm.saveConfig(); err != nil {
				log.Printf("⚠️ Failed to save default policy config: %v", err)
			}
		}

		// Start file watcher
		if err := cm.startWatcher(); err != nil {
			log.Printf("⚠️ Failed to start policy config watcher: %v", err)
		}

		globalManager = cm
	})
	return globalManager, nil
}

// NewManagerWithConfig creates a standalone manager seeded with the given
// config. No file backing, no watcher; used for injection and tests.
func NewManagerWithConfig(cfg Config) *ConfigManager {
	return &ConfigManager{config: cloneConfig(cfg)}
}

// loadConfig loads configuration from file
func (cm *ConfigManager) loadConfig() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := os.ReadFile(cm.configFile)
	if err != nil {
		return err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return err
	}

	if err := ValidateConfig(config); err != nil {
		return err
	}

	cm.config = cloneConfig(config)
	log.Printf("✅ Policy config loaded: %d rules, default=%d req/%dms",
		len(config.Rules), config.Default.MaxRequests, config.Default.WindowMs)
	return nil
}

// saveConfig saves configuration to file
func (cm *ConfigManager) saveConfig() error {
	// Ensure directory exists
	dir := filepath.Dir(cm.configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	cm.mu.RLock()
	cfg := cloneConfig(cm.config)
	cm.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cm.configFile, data, 0644)
}

// startWatcher starts file change monitoring
func (cm *ConfigManager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	cm.watcher = watcher

	configBase := filepath.Base(cm.configFile)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// We watch the directory; ignore unrelated files.
				if filepath.Base(event.Name) != configBase {
					continue
				}

				// Many editors update files via atomic rename/create, not only Write.
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					log.Printf("📝 Policy config file updated, reloading...")
					if err := cm.loadConfig(); err != nil {
						log.Printf("⚠️ Failed to reload policy config: %v", err)
						continue
					}

					cm.mu.RLock()
					cfg := cloneConfig(cm.config)
					cb := cm.onChange
					cm.mu.RUnlock()

					if cb != nil {
						cb(cfg)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ Policy config watcher error: %v", err)
			}
		}
	}()

	// Watch the config file's directory to handle file creation
	dir := filepath.Dir(cm.configFile)
	if err := watcher.Add(dir); err != nil {
		// Try watching the file directly if directory watch fails
		return watcher.Add(cm.configFile)
	}
	return nil
}

// SetOnChangeCallback sets a callback function to be called when config changes
func (cm *ConfigManager) SetOnChangeCallback(callback func(Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onChange = callback
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cloneConfig(cm.config)
}

// UpdateConfig updates the configuration and saves to file
func (cm *ConfigManager) UpdateConfig(config Config) error {
	if err := ValidateConfig(config); err != nil {
		return err
	}

	if cm.configFile != "" {
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return err
		}

		// Ensure directory exists
		dir := filepath.Dir(cm.configFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		if err := os.WriteFile(cm.configFile, data, 0644); err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.config = cloneConfig(config)
	cb := cm.onChange
	cfg := cloneConfig(cm.config)
	cm.mu.Unlock()

	log.Printf("✅ Policy config updated: %d rules, default=%d req/%dms",
		len(config.Rules), config.Default.MaxRequests, config.Default.WindowMs)

	// Trigger callback
	if cb != nil {
		cb(cfg)
	}

	return nil
}

// Close closes the config manager and stops the file watcher
func (cm *ConfigManager) Close() error {
	if cm.watcher != nil {
		return cm.watcher.Close()
	}
	return nil
}

// ValidateConfig rejects malformed policy tables. A non-positive window or
// limit is a configuration error and must never reach the per-request path.
func ValidateConfig(config Config) error {
	const maxRequestsCeiling = 10000
	const maxWindowMs = 24 * 60 * 60 * 1000 // 24 hours

	if err := validatePolicy(config.Default, "default"); err != nil {
		return err
	}
	if config.Default.MaxRequests > maxRequestsCeiling {
		return fmt.Errorf("default.maxRequests cannot exceed %d", maxRequestsCeiling)
	}

	seen := make(map[string]bool)
	for i, rule := range config.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rules[%d].name must not be empty", i)
		}
		if seen[rule.Name] {
			return fmt.Errorf("rules[%d].name %q is duplicated", i, rule.Name)
		}
		seen[rule.Name] = true

		if rule.Path == "" && rule.Prefix == "" {
			return fmt.Errorf("rules[%d] (%s) must set path or prefix", i, rule.Name)
		}
		if err := validatePolicy(rule.Policy, rule.Name); err != nil {
			return err
		}
		if rule.Policy.MaxRequests > maxRequestsCeiling {
			return fmt.Errorf("rule %s: maxRequests cannot exceed %d", rule.Name, maxRequestsCeiling)
		}
		if rule.Policy.WindowMs > maxWindowMs {
			return fmt.Errorf("rule %s: windowMs cannot exceed %d", rule.Name, maxWindowMs)
		}
	}

	return nil
}

func validatePolicy(p Policy, name string) error {
	if p.WindowMs <= 0 {
		return fmt.Errorf("policy %s: windowMs must be positive", name)
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("policy %s: maxRequests must be positive", name)
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	if cfg.Rules != nil {
		rules := make([]Rule, len(cfg.Rules))
		copy(rules, cfg.Rules)
		for i := range rules {
			rules[i].Methods = cloneStrings(rules[i].Methods)
			rules[i].ExcludeMethods = cloneStrings(rules[i].ExcludeMethods)
		}
		cfg.Rules = rules
	}
	return cfg
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

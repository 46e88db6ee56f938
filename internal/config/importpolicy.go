package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Success policies for catalog reconciliation. Lenient reports success when
// anything was created or updated even if some items failed; strict requires
// a clean run.
const (
	SuccessPolicyLenient = "lenient"
	SuccessPolicyStrict  = "strict"
)

// ImportPolicy tunes the import pipeline heuristics.
type ImportPolicy struct {
	SuccessPolicy string            `mapstructure:"successPolicy"`
	DefaultPrice  float64           `mapstructure:"defaultPrice"`
	InventoryMin  int               `mapstructure:"inventoryMin"`
	InventoryMax  int               `mapstructure:"inventoryMax"`
	DefaultSizes  map[string]string `mapstructure:"defaultSizes"`
}

func DefaultImportPolicy() ImportPolicy {
	return ImportPolicy{
		SuccessPolicy: SuccessPolicyLenient,
		DefaultPrice:  25,
		InventoryMin:  5,
		InventoryMax:  50,
		DefaultSizes: map[string]string{
			"flower":      "3.5g",
			"edible":      "100mg",
			"concentrate": "1g",
			"vaporizer":   "0.5g",
			"pre-roll":    "1g",
			"tincture":    "30ml",
		},
	}
}

// DefaultSize returns the policy default size for a category.
func (p ImportPolicy) DefaultSize(category string) string {
	if size, ok := p.DefaultSizes[strings.ToLower(strings.TrimSpace(category))]; ok {
		return size
	}
	return "3.5g"
}

// ImportPolicyHolder exposes the current import policy with hot reload.
type ImportPolicyHolder struct {
	current atomic.Value // holds ImportPolicy
}

// NewImportPolicyHolder reads import.yml (if present) and watches it for changes.
func NewImportPolicyHolder() (*ImportPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("import")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/canopy/config")
	v.AddConfigPath("/etc/canopy")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CANOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultImportPolicy()
		v.SetDefault("import.successPolicy", defaults.SuccessPolicy)
		v.SetDefault("import.defaultPrice", defaults.DefaultPrice)
		v.SetDefault("import.inventoryMin", defaults.InventoryMin)
		v.SetDefault("import.inventoryMax", defaults.InventoryMax)
		v.SetDefault("import.defaultSizes", defaults.DefaultSizes)
	}

	cfg := DefaultImportPolicy()
	if err := v.UnmarshalKey("import", &cfg); err != nil {
		return nil, err
	}
	applyPolicyDefaults(&cfg)
	if err := validateImportPolicy(cfg); err != nil {
		return nil, err
	}

	holder := &ImportPolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultImportPolicy()
		if err := v.UnmarshalKey("import", &updated); err != nil {
			log.Printf("[import-policy] reload failed: %v", err)
			return
		}
		applyPolicyDefaults(&updated)
		if err := validateImportPolicy(updated); err != nil {
			log.Printf("[import-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[import-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticImportPolicyHolder wraps a fixed policy, used by tests.
func NewStaticImportPolicyHolder(cfg ImportPolicy) *ImportPolicyHolder {
	holder := &ImportPolicyHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ImportPolicyHolder) Get() ImportPolicy {
	return h.current.Load().(ImportPolicy)
}

func applyPolicyDefaults(cfg *ImportPolicy) {
	defaults := DefaultImportPolicy()
	cfg.SuccessPolicy = strings.ToLower(strings.TrimSpace(cfg.SuccessPolicy))
	if cfg.SuccessPolicy == "" {
		cfg.SuccessPolicy = defaults.SuccessPolicy
	}
	if cfg.DefaultPrice == 0 {
		cfg.DefaultPrice = defaults.DefaultPrice
	}
	// InventoryMin stays as configured even when InventoryMax is absent; an
	// inverted range is rejected by validateImportPolicy, not papered over.
	if cfg.InventoryMax == 0 {
		cfg.InventoryMax = defaults.InventoryMax
	}
	if len(cfg.DefaultSizes) == 0 {
		cfg.DefaultSizes = defaults.DefaultSizes
	}
}

func validateImportPolicy(cfg ImportPolicy) error {
	switch cfg.SuccessPolicy {
	case SuccessPolicyLenient, SuccessPolicyStrict:
	default:
		return fmt.Errorf("import.successPolicy must be %q or %q", SuccessPolicyLenient, SuccessPolicyStrict)
	}
	if cfg.DefaultPrice < 0 {
		return errors.New("import.defaultPrice cannot be negative")
	}
	if cfg.InventoryMin < 0 || cfg.InventoryMax < cfg.InventoryMin {
		return errors.New("import.inventoryMin/inventoryMax must describe a non-negative range")
	}
	return nil
}

package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CatalogConfig controls how the product catalog presents prices and stock.
type CatalogConfig struct {
	CurrencyPrefix     string `mapstructure:"currencyPrefix"`
	LowStockBelow      int    `mapstructure:"lowStockBelow"`
	ModerateStockBelow int    `mapstructure:"moderateStockBelow"`
	ProgressDivisor    int    `mapstructure:"progressDivisor"`
	GridColumns        int    `mapstructure:"gridColumns"`
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		CurrencyPrefix:     "R$",
		LowStockBelow:      5,
		ModerateStockBelow: 10,
		ProgressDivisor:    50,
		GridColumns:        4,
	}
}

type CatalogConfigHolder struct {
	current atomic.Value // holds CatalogConfig
}

// NewStaticCatalogConfigHolder returns a holder that never reloads.
func NewStaticCatalogConfigHolder(cfg CatalogConfig) *CatalogConfigHolder {
	holder := &CatalogConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewCatalogConfigHolder(log *zap.Logger) (*CatalogConfigHolder, error) {
	log = log.Named("config.catalog")

	v := viper.New()
	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/lis")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	cfg := decodeCatalogConfig(v)
	if err := validateCatalogConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticCatalogConfigHolder(cfg)
	if !fileLoaded {
		log.Info("catalog config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := decodeCatalogConfig(v)
		if err := validateCatalogConfig(updated); err != nil {
			log.Warn("invalid catalog config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("catalog config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// decodeCatalogConfig overlays the keys that are set on the defaults. A key may sit under a
// catalog: map or at the top level of the file, and LIS_<KEY> environment variables override both.
func decodeCatalogConfig(v *viper.Viper) CatalogConfig {
	cfg := DefaultCatalogConfig()
	if key, ok := catalogKey(v, "currencyPrefix"); ok {
		cfg.CurrencyPrefix = v.GetString(key)
	}
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"lowStockBelow", &cfg.LowStockBelow},
		{"moderateStockBelow", &cfg.ModerateStockBelow},
		{"progressDivisor", &cfg.ProgressDivisor},
		{"gridColumns", &cfg.GridColumns},
	} {
		if key, ok := catalogKey(v, field.name); ok {
			*field.dst = v.GetInt(key)
		}
	}
	return cfg
}

func catalogKey(v *viper.Viper, name string) (string, bool) {
	if v.IsSet(name) {
		return name, true
	}
	if nested := "catalog." + name; v.IsSet(nested) {
		return nested, true
	}
	return "", false
}

func (h *CatalogConfigHolder) Get() CatalogConfig {
	if h == nil {
		return DefaultCatalogConfig()
	}
	return h.current.Load().(CatalogConfig)
}

func validateCatalogConfig(cfg CatalogConfig) error {
	if cfg.LowStockBelow <= 0 {
		return errors.New("catalog.lowStockBelow must be positive")
	}
	if cfg.ModerateStockBelow < cfg.LowStockBelow {
		return errors.New("catalog.moderateStockBelow must not be lower than catalog.lowStockBelow")
	}
	if cfg.ProgressDivisor <= 0 {
		return errors.New("catalog.progressDivisor must be positive")
	}
	if cfg.GridColumns <= 0 {
		return errors.New("catalog.gridColumns must be positive")
	}
	return nil
}

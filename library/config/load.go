// Package config loads settings into the shared go-config instance.
package config

import (
	"path/filepath"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/go-viper/mapstructure/v2"

	"github.com/Laisky/laisky-forum/library/log"
)

// LoadFromFile loads yaml settings from cfgPath, panics on failure.
func LoadFromFile(cfgPath string) {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// GetDuration reads a duration setting like `6h`, falling back to def
// when the key is absent or malformed.
func GetDuration(key string, def time.Duration) time.Duration {
	raw := gconfig.Shared.GetString(key)
	if raw == "" {
		return def
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Logger.Warn("invalid duration setting, use default",
			zap.String("key", key),
			zap.String("value", raw),
			zap.Duration("default", def))
		return def
	}

	return d
}

// GetIntOr reads an int setting, falling back to def when the key is absent.
func GetIntOr(key string, def int) int {
	if gconfig.Shared.Get(key) == nil {
		return def
	}

	return gconfig.Shared.GetInt(key)
}

// GetStringOr reads a string setting, falling back to def when it is empty.
func GetStringOr(key, def string) string {
	if v := gconfig.Shared.GetString(key); v != "" {
		return v
	}

	return def
}

// Decode converts the setting under key into out using its mapstructure tags.
// An absent key leaves out untouched.
func Decode(key string, out any) error {
	raw := gconfig.Shared.Get(key)
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "new decoder")
	}
	if err = dec.Decode(raw); err != nil {
		return errors.Wrapf(err, "decode setting %q", key)
	}

	return nil
}

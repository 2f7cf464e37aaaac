package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides (WINCYCLER_MAXHISTORY, ...).
const EnvPrefix = "WINCYCLER"

// FlagKeys maps command-line flag names onto configuration keys.
var FlagKeys = map[string]string{
	"backend":         "backend",
	"dispatch":        "dispatch",
	"socket":          "socketPath",
	"max-history":     "maxHistory",
	"scratchpad-mark": "scratchpadMark",
	"redact-titles":   "redactTitles",
	"log-level":       "logLevel",
	"log-format":      "logFormat",
	"status-listen":   "status.listen",
	"keycode":         "keys.keycode",
	"device":          "keys.device",
	"reset-mode":      "keys.resetMode",
}

// Overlay layers environment variables and explicitly set flags over cfg.
// Flags win over the environment, which wins over the file.
func Overlay(cfg *Config, flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("socketPath", EnvPrefix+"_SOCKET"); err != nil {
		return fmt.Errorf("bind env: %w", err)
	}
	if flags != nil {
		for name, key := range FlagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setString("backend", &cfg.Backend)
	setString("dispatch", &cfg.Dispatch)
	setString("socketPath", &cfg.SocketPath)
	setInt("maxHistory", &cfg.MaxHistory)
	setString("scratchpadMark", &cfg.ScratchpadMark)
	if v.IsSet("redactTitles") {
		cfg.RedactTitles = v.GetBool("redactTitles")
	}
	setString("logLevel", &cfg.LogLevel)
	setString("logFormat", &cfg.LogFormat)
	setString("status.listen", &cfg.Status.Listen)
	setInt("keys.keycode", &cfg.Keys.Keycode)
	setString("keys.device", &cfg.Keys.Device)
	setString("keys.resetMode", &cfg.Keys.ResetMode)

	cfg.applyDefaults()
	return cfg.Validate()
}

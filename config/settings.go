package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "CLACK"

// Settings are the application options, from flags or CLACK_* environment variables.
type Settings struct {
	Config    string  `mapstructure:"config"`
	Volume    float64 `mapstructure:"volume"`
	Workers   int     `mapstructure:"workers"`
	LogPath   string  `mapstructure:"logpath"`
	TUI       bool    `mapstructure:"tui"`
	Autostart bool    `mapstructure:"autostart"`
	Shortcut  bool    `mapstructure:"shortcut"`
	Debug     bool    `mapstructure:"debug"`
}

// NewViper returns a viper instance reading CLACK_* overrides, so CLACK_LOG_PATH
// sets logpath.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("logpath", EnvPrefix+"_LOG_PATH")
	return v
}

func LoadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("reading settings: %w", err)
	}
	if s.Config == "" {
		s.Config = DefaultPath
	}
	if s.Volume < 0 || s.Volume > 100 {
		return s, fmt.Errorf("volume %v outside 0..100", s.Volume)
	}
	return s, nil
}

// Package config loads the application configuration from a YAML file
// and/or CAREFORM_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Addr is the listen address for the form server.
	Addr string `mapstructure:"addr"`

	// Credentials is the path to the service-account JSON descriptor.
	Credentials string `mapstructure:"credentials"`

	// SpreadsheetId identifies the history spreadsheet.
	SpreadsheetId string `mapstructure:"spreadsheet_id"`

	// FolderId identifies the Drive folder that receives rendered reports.
	FolderId string `mapstructure:"folder_id"`

	// Password is the shared secret that gates the form.
	Password string `mapstructure:"password"`

	// FontPath is an optional TTF file with Japanese glyph coverage.
	FontPath string `mapstructure:"font_path"`

	// Organization is printed in the report signature block.
	Organization string `mapstructure:"organization"`
}

// Load reads careform.yaml from the working directory (or the explicit file
// given) merged with CAREFORM_* environment variables. Environment variables
// win, so secrets can stay out of the file entirely.
func Load(file string) (Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("careform")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("careform")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// viper only merges env vars into Unmarshal for keys it already knows
	// about
	for _, key := range []string{"addr", "credentials", "spreadsheet_id", "folder_id", "password", "font_path", "organization"} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("addr", ":8080")
	v.SetDefault("organization", "グループホームひまわり")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("unable to read configuration (%w)", err)
		}
	}

	config := Config{}
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("invalid configuration (%w)", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Credentials) == "" {
		return fmt.Errorf("'credentials' is a required configuration value")
	}

	if strings.TrimSpace(c.SpreadsheetId) == "" {
		return fmt.Errorf("'spreadsheet_id' is a required configuration value")
	}

	if strings.TrimSpace(c.FolderId) == "" {
		return fmt.Errorf("'folder_id' is a required configuration value")
	}

	if strings.TrimSpace(c.Password) == "" {
		return fmt.Errorf("'password' is a required configuration value")
	}

	return nil
}

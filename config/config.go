package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	configFilePath = "/etc/tapandstamp/config.yaml"
	configPathEnv  = "TAPANDSTAMP_CONFIG"
)

var (
	tapAndStampConf *TapAndStampConfModel
	PathPrefix      string
)

func LoadConfig() (*TapAndStampConfModel, error) {
	filePath := configFilePath
	if p := os.Getenv(configPathEnv); p != "" {
		filePath = p
	}

	if err := loadViperConfig(filePath); err != nil {
		return nil, err
	}

	viper.WatchConfig()

	return tapAndStampConf, nil
}

func loadViperConfig(filePath string) error {
	viper.SetConfigFile(filePath)
	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading viper config: %w", err)
	}

	setEnvConf()
	setDefault()

	conf := new(TapAndStampConfModel)
	err = viper.Unmarshal(conf)
	if err != nil {
		return fmt.Errorf("error loading viper config to struct: %w", err)
	}

	if err := conf.validate(); err != nil {
		return err
	}

	tapAndStampConf = conf

	val, err := json.MarshalIndent(conf.redacted(), "", "  ")
	if err == nil {
		fmt.Println(string(val))
	}

	if err := loadStaffKeys(); err != nil {
		return err
	}

	// /api/v1
	PathPrefix, err = url.JoinPath("/", conf.Server.APIPrefix, conf.Server.APIVersion)
	if err != nil {
		return err
	}

	return nil
}

func setEnvConf() {
	viper.BindEnv("db.username", "TAPANDSTAMP_DB_USERNAME")
	viper.BindEnv("db.password", "TAPANDSTAMP_DB_PASSWORD")
	viper.BindEnv("passkit.cert_password", "TAPANDSTAMP_PASSKIT_CERT_PASSWORD")
	viper.BindEnv("passkit.auth_secret", "TAPANDSTAMP_PASSKIT_AUTH_SECRET")
	viper.BindEnv("server.public_url", "TAPANDSTAMP_PUBLIC_URL")
	viper.BindEnv("stamp.cooldown_minutes", "TAPANDSTAMP_COOLDOWN_MINUTES")
}

func setDefault() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.api_prefix", "api")
	viper.SetDefault("server.api_version", "v1")
	viper.SetDefault("db.consistency", "LOCAL_QUORUM")
	viper.SetDefault("db.replication_factor", 1)
	viper.SetDefault("db.connect_timeout", "10s")
	viper.SetDefault("db.timeout", "5s")
	viper.SetDefault("stamp.cooldown_minutes", 5)
	viper.SetDefault("apns.timeout", "10s")
	viper.SetDefault("logo.cache_ttl", "1h")
	viper.SetDefault("logo.fetch_timeout", "10s")
	viper.SetDefault("logo.max_size", 2048)
}

// validate reports every missing required key at once.
func (c *TapAndStampConfModel) validate() error {
	required := map[string]string{
		"db.host":              c.DB.Host,
		"db.keyspace":          c.DB.Keyspace,
		"server.public_url":    c.Server.PublicURL,
		"passkit.pass_type_id": c.PassKit.PassTypeID,
		"passkit.team_id":      c.PassKit.TeamID,
		"passkit.cert_path":    c.PassKit.CertPath,
		"passkit.auth_secret":  c.PassKit.AuthSecret,
	}

	var missing []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if c.Stamp.CooldownMinutes < 0 {
		missing = append(missing, "stamp.cooldown_minutes")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (c TapAndStampConfModel) redacted() TapAndStampConfModel {
	const mask = "****"
	if c.DB.Password != "" {
		c.DB.Password = mask
	}
	if c.PassKit.CertPassword != "" {
		c.PassKit.CertPassword = mask
	}
	if c.PassKit.AuthSecret != "" {
		c.PassKit.AuthSecret = mask
	}
	c.StaffKeys = nil
	return c
}

// GetConfig returns env config
func GetConfig() *TapAndStampConfModel {
	return tapAndStampConf
}

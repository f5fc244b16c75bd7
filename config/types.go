package config

type TapAndStampConfModel struct {
	LogLevel  string   `mapstructure:"log_level"`
	Mode      string   `mapstructure:"mode"`
	StaffKeys []string `mapstructure:"staff_keys"`
	Server    Server   `mapstructure:"server"`
	DB        DB       `mapstructure:"db"`
	PassKit   PassKit  `mapstructure:"passkit"`
	APNs      APNs     `mapstructure:"apns"`
	Firebase  Firebase `mapstructure:"firebase"`
	Stamp     Stamp    `mapstructure:"stamp"`
	Logo      Logo     `mapstructure:"logo"`
}

type Server struct {
	Debug          string   `mapstructure:"debug"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	APIPrefix      string   `mapstructure:"api_prefix"`
	APIVersion     string   `mapstructure:"api_version"`
	PublicURL      string   `mapstructure:"public_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DB struct {
	Host              string `mapstructure:"host"`
	Keyspace          string `mapstructure:"keyspace"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	Consistency       string `mapstructure:"consistency"`
	ReplicationFactor int    `mapstructure:"replication_factor"`
	ConnectTimeout    string `mapstructure:"connect_timeout"`
	Timeout           string `mapstructure:"timeout"`
}

type PassKit struct {
	PassTypeID   string `mapstructure:"pass_type_id"`
	TeamID       string `mapstructure:"team_id"`
	CertPath     string `mapstructure:"cert_path"`
	CertPassword string `mapstructure:"cert_password"`
	WWDRCertPath string `mapstructure:"wwdr_cert_path"`
	AuthSecret   string `mapstructure:"auth_secret"`
}

type APNs struct {
	KeyPath    string `mapstructure:"key_path"`
	KeyID      string `mapstructure:"key_id"`
	TeamID     string `mapstructure:"team_id"`
	Production bool   `mapstructure:"production"`
	Timeout    string `mapstructure:"timeout"`
}

// Enabled reports whether wallet update pushes can be sent.
func (a APNs) Enabled() bool {
	return a.KeyPath != "" && a.KeyID != "" && a.TeamID != ""
}

type Firebase struct {
	Path string `mapstructure:"path"`
}

type Stamp struct {
	CooldownMinutes int `mapstructure:"cooldown_minutes"`
}

type Logo struct {
	CacheTTL       string   `mapstructure:"cache_ttl"`
	FetchTimeout   string   `mapstructure:"fetch_timeout"`
	MaxSize        int      `mapstructure:"max_size"`
	SupportedTypes []string `mapstructure:"supported_types"`
}

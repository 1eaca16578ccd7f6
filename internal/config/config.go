package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Media struct {
	// Source is "static" for synthetic tracks or "devices" for real capture.
	Source        string `mapstructure:"source"`
	SecureContext bool   `mapstructure:"secure_context"`
}

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	ICEServers   []ICEServer   `mapstructure:"ice_servers"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	Media        Media         `mapstructure:"media"`
}

// WebRTC converts the ICE server list for pion.
func (c *Config) WebRTC() webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		servers = append(servers, webrtc.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential})
	}
	return webrtc.Configuration{ICEServers: servers}
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return load(fmt.Sprintf("config/config.%s.yaml", env))
}

func load(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("call")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
	v.SetDefault("call_timeout", "30s")
	v.SetDefault("tick_interval", "1s")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("media.source", "static")
	v.SetDefault("media.secure_context", true)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	switch cfg.Media.Source {
	case "static", "devices":
	default:
		return nil, fmt.Errorf("unknown media source %q", cfg.Media.Source)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Dur("call_timeout", cfg.CallTimeout).
		Str("media", cfg.Media.Source).
		Msg("config")
	return &cfg, nil
}

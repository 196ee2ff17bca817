package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wheelibin/hughbridge/internal/constants"
)

type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type BridgeConfig struct {
	Username string `mapstructure:"username"`
}

// NetworkConfig chooses where the bridge identity comes from. IP and MAC, when
// set, replace what the interface reports.
type NetworkConfig struct {
	Interface string `mapstructure:"interface"`
	IP        string `mapstructure:"ip"`
	MAC       string `mapstructure:"mac"`
}

type DiscoveryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Group   string `mapstructure:"group"`
	MDNS    bool   `mapstructure:"mdns"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	MaxAge int    `mapstructure:"maxAge"`
}

type StateConfig struct {
	Database string `mapstructure:"database"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"clientId"`
	Topic    string `mapstructure:"topic"`
	QoS      int    `mapstructure:"qos"`
	Retain   bool   `mapstructure:"retain"`
}

type AdminConfig struct {
	Address string `mapstructure:"address"`
}

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Devices   []string        `mapstructure:"devices"`
	Network   NetworkConfig   `mapstructure:"network"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Log       LogConfig       `mapstructure:"log"`
	State     StateConfig     `mapstructure:"state"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "")
	v.SetDefault("http.port", constants.DefaultHTTPPort)
	v.SetDefault("bridge.username", constants.DefaultUsername)
	v.SetDefault("devices", []string{})
	v.SetDefault("network.interface", "")
	v.SetDefault("network.ip", "")
	v.SetDefault("network.mac", "")
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.group", constants.DiscoveryGroup)
	v.SetDefault("discovery.mdns", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxAge", 3)
	v.SetDefault("state.database", "")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientId", "hughbridge")
	v.SetDefault("mqtt.topic", "hughbridge")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retain", true)
	v.SetDefault("admin.address", "")
}

// ReadConfig builds the config from, lowest priority first: defaults, the config
// file, HUGHBRIDGE_ environment variables and command line flags. args excludes
// the program name.
func ReadConfig(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("hughbridge", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "path to the config file")
	flags.IntP("port", "p", constants.DefaultHTTPPort, "port the emulated api listens on")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.StringSlice("device", nil, "light to emulate, may be repeated")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("Error parsing flags: %w", err)
	}
	for key, flag := range map[string]string{"http.port": "port", "log.level": "log-level", "devices": "device"} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("Error binding flag %s: %w", flag, err)
		}
	}

	v.SetEnvPrefix("HUGHBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("/etc/hughbridge/")
		v.AddConfigPath("$HOME/.config/hughbridge/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("Error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http.port %d", c.HTTP.Port)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	if c.Network.IP != "" && net.ParseIP(c.Network.IP).To4() == nil {
		return fmt.Errorf("invalid network.ip %q", c.Network.IP)
	}
	if c.Network.MAC != "" {
		if _, err := net.ParseMAC(c.Network.MAC); err != nil {
			return fmt.Errorf("invalid network.mac %q: %w", c.Network.MAC, err)
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt.qos %d", c.MQTT.QoS)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Transmitter TransmitterConfig `yaml:"transmitter"`
	Ramp        RampConfig        `yaml:"ramp"`
	Notify      NotifyConfig      `yaml:"notify"`
	Log         LogConfig         `yaml:"log"`
}

type TransmitterConfig struct {
	Backend       string              `yaml:"backend"`
	Pin           string              `yaml:"pin"`
	Codeset       string              `yaml:"codeset"`
	Serial        SerialConfig        `yaml:"serial"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Tuya          TuyaConfig          `yaml:"tuya"`
}

type SerialConfig struct {
	Baud int `yaml:"baud"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         byte   `yaml:"qos"`
	Timeout     string `yaml:"timeout"`
}

type HomeAssistantConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Device string `yaml:"device"`
}

type TuyaConfig struct {
	ClientID   string `yaml:"client_id"`
	Secret     string `yaml:"secret"`
	Region     string `yaml:"region"`
	RemoteID   string `yaml:"remote_id"`
	CategoryID int    `yaml:"category_id"`
}

type RampConfig struct {
	Pulses   int      `yaml:"pulses"`
	Interval string   `yaml:"interval"`
	Commands []string `yaml:"commands"`
}

type NotifyConfig struct {
	Source   string         `yaml:"source"`
	Email    EmailConfig    `yaml:"email"`
	Pushover PushoverConfig `yaml:"pushover"`
}

type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

var backends = map[string]bool{
	"serial":        true,
	"chardev":       true,
	"mqtt":          true,
	"homeassistant": true,
	"tuya":          true,
	"log":           true,
}

// Load reads the YAML (or JSON) file at path. Relative codeset and log
// file paths are resolved against the directory holding the config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Locate returns path when it exists, otherwise the same file name next to
// the running executable.
func Locate(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}

	candidate := filepath.Join(filepath.Dir(exe), path)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}

func (c *Config) setDefaults() {
	if c.Transmitter.Backend == "" {
		c.Transmitter.Backend = "serial"
	}
	if c.Transmitter.Serial.Baud == 0 {
		c.Transmitter.Serial.Baud = 9600
	}
	if c.Transmitter.MQTT.TopicPrefix == "" {
		c.Transmitter.MQTT.TopicPrefix = "cmnd"
	}
	if c.Transmitter.MQTT.Timeout == "" {
		c.Transmitter.MQTT.Timeout = "10s"
	}
	if c.Transmitter.Tuya.Region == "" {
		c.Transmitter.Tuya.Region = "us"
	}
	if c.Transmitter.Tuya.CategoryID == 0 {
		c.Transmitter.Tuya.CategoryID = 999
	}
	if c.Ramp.Pulses == 0 {
		c.Ramp.Pulses = 50
	}
	if c.Ramp.Interval == "" {
		c.Ramp.Interval = "100ms"
	}
	if len(c.Ramp.Commands) == 0 {
		c.Ramp.Commands = []string{"light_min", "light_max"}
	}
	if c.Notify.Source == "" {
		c.Notify.Source = "ledir"
	}
	if c.Notify.Email.Port == 0 {
		c.Notify.Email.Port = 587
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.File == "" {
		c.Log.File = "ledir.log"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
}

func (c *Config) resolvePaths(dir string) {
	if c.Transmitter.Codeset != "" && !filepath.IsAbs(c.Transmitter.Codeset) {
		c.Transmitter.Codeset = filepath.Join(dir, c.Transmitter.Codeset)
	}
	if c.Log.File != "-" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(dir, c.Log.File)
	}
}

// Validate reports the first setting that would stop the transmitter or the
// ramp from working.
func (c *Config) Validate() error {
	t := c.Transmitter
	if !backends[t.Backend] {
		return fmt.Errorf("transmitter.backend: unknown backend %q", t.Backend)
	}

	switch t.Backend {
	case "serial", "chardev", "mqtt", "tuya":
		if t.Pin == "" {
			return fmt.Errorf("transmitter.pin: required for %s backend", t.Backend)
		}
		if t.Codeset == "" {
			return fmt.Errorf("transmitter.codeset: required for %s backend", t.Backend)
		}
	case "homeassistant":
		if t.Pin == "" {
			return errors.New("transmitter.pin: remote entity id required for homeassistant backend")
		}
		if t.HomeAssistant.URL == "" {
			return errors.New("transmitter.homeassistant.url: required")
		}
	}

	if t.Backend == "mqtt" {
		if t.MQTT.Broker == "" {
			return errors.New("transmitter.mqtt.broker: required")
		}
		if t.MQTT.QoS > 2 {
			return fmt.Errorf("transmitter.mqtt.qos: %d out of range", t.MQTT.QoS)
		}
		if _, err := time.ParseDuration(t.MQTT.Timeout); err != nil {
			return fmt.Errorf("transmitter.mqtt.timeout: %w", err)
		}
	}

	if t.Backend == "tuya" && (t.Tuya.ClientID == "" || t.Tuya.Secret == "" || t.Tuya.RemoteID == "") {
		return errors.New("transmitter.tuya: client_id, secret and remote_id are required")
	}

	if c.Ramp.Pulses < 1 {
		return fmt.Errorf("ramp.pulses: must be positive, got %d", c.Ramp.Pulses)
	}
	if _, err := c.RampInterval(); err != nil {
		return err
	}

	if c.Notify.Email.Enabled && (c.Notify.Email.Host == "" || c.Notify.Email.From == "" || len(c.Notify.Email.To) == 0) {
		return errors.New("notify.email: host, from and to are required when enabled")
	}

	return nil
}

func (c *Config) RampInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Ramp.Interval)
	if err != nil {
		return 0, fmt.Errorf("ramp.interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("ramp.interval: must not be negative, got %s", d)
	}
	return d, nil
}

// Package config loads the station file and the runtime tunables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/stationprobe/internal/env"
	"github.com/loykin/stationprobe/internal/station"
)

// ErrInvalidBSSID is returned when a station's bssid is not six
// colon-separated hex octets.
var ErrInvalidBSSID = errors.New("invalid bssid")

// DotEnvFiles are loaded in order before the environment is read.
var DotEnvFiles = []string{".env.local", ".env"}

// FileConfig is the station file.
type FileConfig struct {
	Interface string         `mapstructure:"interface"`
	Stations  []station.Spec `mapstructure:"stations"`
	Log       LogConfig      `mapstructure:"log"`
	Daemons   DaemonsConfig  `mapstructure:"daemons"`
	Probe     ProbeConfig    `mapstructure:"probe"`
	History   HistoryConfig  `mapstructure:"history"`
	Server    ServerConfig   `mapstructure:"server"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DaemonsConfig struct {
	Supplicant string        `mapstructure:"wpa_supplicant"`
	DHClient   string        `mapstructure:"dhclient"`
	Ping       string        `mapstructure:"ping"`
	TempDir    string        `mapstructure:"temp_dir"`
	KillGrace  time.Duration `mapstructure:"kill_grace"`
}

type ProbeConfig struct {
	Attempts int `mapstructure:"attempts"`
}

type HistoryConfig struct {
	Sinks []string `mapstructure:"sinks"`
}

type ServerConfig struct {
	TLSCert       string `mapstructure:"tls_cert"`
	TLSKey        string `mapstructure:"tls_key"`
	TLSMinVersion string `mapstructure:"tls_min_version"`
}

// Runtime holds the tunables read from the environment.
type Runtime struct {
	Port                 int
	ConfigFile           string
	Interval             time.Duration
	WifiConnectTimeout   time.Duration
	DHCPRetrievalTimeout time.Duration
	PingTimeout          time.Duration
}

// Config is everything the probe needs at startup.
type Config struct {
	Runtime
	FileConfig
}

// LoadRuntime reads the tunables from the environment after loading
// DotEnvFiles. Integer durations are milliseconds.
func LoadRuntime() (Runtime, error) {
	if err := env.LoadFiles(DotEnvFiles...); err != nil {
		return Runtime{}, fmt.Errorf("load dotenv: %w", err)
	}
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", 9004)
	v.SetDefault("CONFIG_FILE", "/data/config.json")
	v.SetDefault("INTERVAL", "15000")
	v.SetDefault("WIFI_CONNECT_TIMEOUT", "10000")
	v.SetDefault("DHCP_RETRIEVAL_TIMEOUT", "3000")
	v.SetDefault("PING_TIMEOUT", "1000")

	rt := Runtime{ConfigFile: v.GetString("CONFIG_FILE")}
	port, err := strconv.Atoi(strings.TrimSpace(v.GetString("PORT")))
	if err != nil || port <= 0 || port > 65535 {
		return Runtime{}, fmt.Errorf("PORT: invalid port %q", v.GetString("PORT"))
	}
	rt.Port = port

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"INTERVAL", &rt.Interval},
		{"WIFI_CONNECT_TIMEOUT", &rt.WifiConnectTimeout},
		{"DHCP_RETRIEVAL_TIMEOUT", &rt.DHCPRetrievalTimeout},
		{"PING_TIMEOUT", &rt.PingTimeout},
	} {
		if *d.dst, err = ParseMillis(v.GetString(d.key)); err != nil {
			return Runtime{}, fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return rt, nil
}

// ParseMillis parses an integer number of milliseconds or a Go duration
// string. The result must be positive.
func ParseMillis(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be > 0", s)
	}
	return d, nil
}

// LoadFile reads and validates the station file. The format follows the file
// extension (json, toml, yaml) and defaults to JSON. ${VAR} references in
// station fields and history sinks are expanded from the environment.
func LoadFile(path string) (FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	fc.expand(env.New())
	if err := fc.Validate(); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

// Load reads the runtime tunables, then the station file they point to.
// configFile overrides CONFIG_FILE when non-empty.
func Load(configFile string) (Config, error) {
	rt, err := LoadRuntime()
	if err != nil {
		return Config{}, err
	}
	if configFile != "" {
		rt.ConfigFile = configFile
	}
	fc, err := LoadFile(rt.ConfigFile)
	if err != nil {
		return Config{}, err
	}
	return Config{Runtime: rt, FileConfig: fc}, nil
}

func (fc *FileConfig) expand(e *env.Env) {
	for i := range fc.Stations {
		s := &fc.Stations[i]
		s.SSID = e.Expand(s.SSID)
		s.PSK = e.Expand(s.PSK)
		s.PingHost = e.Expand(s.PingHost)
	}
	for i, d := range fc.History.Sinks {
		fc.History.Sinks[i] = e.Expand(d)
	}
}

// Validate checks the interface and every station. Any failure is fatal at
// startup.
func (fc FileConfig) Validate() error {
	if strings.TrimSpace(fc.Interface) == "" {
		return errors.New("config: interface is required")
	}
	if len(fc.Stations) == 0 {
		return errors.New("config: at least one station is required")
	}
	for i, s := range fc.Stations {
		if !station.IsBSSID(s.BSSID) {
			return fmt.Errorf("config: stations[%d] %q: %w %q", i, s.Name, ErrInvalidBSSID, s.BSSID)
		}
	}
	if err := station.ValidateAll(fc.Stations); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if fc.Probe.Attempts < 0 {
		return errors.New("config: probe.attempts must be >= 0")
	}
	if (fc.Server.TLSCert == "") != (fc.Server.TLSKey == "") {
		return errors.New("config: server.tls_cert and server.tls_key must be set together")
	}
	return nil
}

// StationNames lists the configured station names in order.
func (fc FileConfig) StationNames() []string {
	out := make([]string, 0, len(fc.Stations))
	for _, s := range fc.Stations {
		out = append(out, s.Name)
	}
	return out
}

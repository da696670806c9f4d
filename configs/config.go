// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package configs contains the application configuration.
//
// The configuration is loaded in three layers: the defaults, an optional
// TOML file and the METAEXTRACT_* environment variables.
package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/komkom/toml"

	"codeberg.org/readeck/metaextract/pkg/extract"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "METAEXTRACT_"

type config struct {
	Main      configMain      `json:"main"      envPrefix:"MAIN_"`
	Server    configServer    `json:"server"    envPrefix:"SERVER_"`
	Extractor configExtractor `json:"extractor" envPrefix:"EXTRACTOR_"`
	Metrics   configMetrics   `json:"metrics"   envPrefix:"METRICS_"`
	Cache     configCache     `json:"cache"     envPrefix:"CACHE_"`
}

type configMain struct {
	LogLevel slog.Level `json:"log_level" env:"LOG_LEVEL"`
	DevMode  bool       `json:"dev_mode"  env:"DEV_MODE"`
}

type configServer struct {
	Host           string   `json:"host"            env:"HOST"`
	Port           int      `json:"port"            env:"PORT"`
	Prefix         string   `json:"prefix"          env:"PREFIX"`
	TrustedProxies []string `json:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
}

type configExtractor struct {
	Formats       []string `json:"formats"        env:"FORMATS" envSeparator:","`
	MaxBodySize   int64    `json:"max_body_size"  env:"MAX_BODY_SIZE"`
	Timeout       Duration `json:"timeout"        env:"TIMEOUT"`
	UserAgent     string   `json:"user_agent"     env:"USER_AGENT"`
	FetchManifest bool     `json:"fetch_manifest" env:"FETCH_MANIFEST"`
	FetchOEmbed   bool     `json:"fetch_oembed"   env:"FETCH_OEMBED"`
	DeniedIPs     []string `json:"denied_ips"     env:"DENIED_IPS" envSeparator:","`
}

type configMetrics struct {
	Enabled bool `json:"enabled" env:"ENABLED"`
}

type configCache struct {
	Backend  string   `json:"backend"   env:"BACKEND"`
	RedisURL string   `json:"redis_url" env:"REDIS_URL"`
	TTL      Duration `json:"ttl"       env:"TTL"`
}

// Duration is a [time.Duration] that reads from a string
// such as "20s" or "1h30m".
type Duration time.Duration

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the value as a [time.Duration].
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds the configuration data.
var Config = defaults()

func defaults() config {
	return config{
		Main: configMain{
			LogLevel: slog.LevelInfo,
		},
		Server: configServer{
			Host:           "127.0.0.1",
			Port:           8000,
			TrustedProxies: []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fd00::/8", "::1/128"},
		},
		Extractor: configExtractor{
			Formats:     []string{},
			DeniedIPs:   []string{},
			MaxBodySize: 8 << 20,
			Timeout:     Duration(20 * time.Second),
			UserAgent:   "Mozilla/5.0 (compatible; metaextract/" + Version() + ")",
		},
		Cache: configCache{
			Backend: CacheNone,
			TTL:     Duration(time.Hour),
		},
	}
}

// InitConfiguration resets the configuration to its defaults.
func InitConfiguration() {
	Config = defaults()
}

// LoadConfiguration loads the configuration file, when one is given,
// then the environment variables.
func LoadConfiguration(filename string) error {
	if filename != "" {
		fd, err := os.Open(filename)
		if err != nil {
			return err
		}
		defer fd.Close() //nolint:errcheck

		if err := loadTOML(fd); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
	}

	if err := loadEnv(os.Environ()); err != nil {
		return err
	}
	return Config.validate()
}

func loadTOML(r io.Reader) error {
	dec := json.NewDecoder(toml.New(r))
	return dec.Decode(&Config)
}

func loadEnv(environ []string) error {
	vars := map[string]string{}
	for _, x := range environ {
		if k, v, ok := strings.Cut(x, "="); ok {
			vars[k] = v
		}
	}

	return env.ParseWithOptions(&Config, env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
	})
}

func (c config) validate() error {
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required with the redis backend")
		}
	default:
		return fmt.Errorf("invalid cache backend %q", c.Cache.Backend)
	}

	for _, x := range c.Extractor.Formats {
		if _, err := extract.ParseFormat(x); err != nil {
			return err
		}
	}

	for _, x := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(x); err != nil {
			return fmt.Errorf("invalid trusted proxy %q", x)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// ListenAddr returns the server's listening address.
func (c configServer) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TrustedProxies returns the networks of the reverse proxies
// whose forwarding headers the server accepts.
func TrustedProxies() []*net.IPNet {
	res := []*net.IPNet{}
	for _, x := range Config.Server.TrustedProxies {
		if _, n, err := net.ParseCIDR(x); err == nil {
			res = append(res, n)
		}
	}
	return res
}

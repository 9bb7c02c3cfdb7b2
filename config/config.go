// Package config loads client settings from a YAML file and STACKMOB_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iSamMahoozi/stackmob-sdk-go/internal/logging"
	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/iSamMahoozi/stackmob-sdk-go/stackmob"
	"gopkg.in/yaml.v3"
)

const subsys = "config"

const (
	EnvPublicKey  = "STACKMOB_PUBLIC_KEY"
	EnvPrivateKey = "STACKMOB_PRIVATE_KEY"
	EnvApp        = "STACKMOB_APP"
	EnvDomain     = "STACKMOB_DOMAIN"
	EnvSubdomain  = "STACKMOB_SUBDOMAIN"
	EnvAPIVersion = "STACKMOB_API_VERSION"
	EnvBaseURL    = "STACKMOB_BASE_URL"
	EnvSecure     = "STACKMOB_SECURE"
	EnvTimeout    = "STACKMOB_TIMEOUT"
	EnvLogLevel   = "STACKMOB_LOG_LEVEL"
)

// Config holds everything needed to build a session and a client.
type Config struct {
	PublicKey      string        `yaml:"public_key"`
	PrivateKey     string        `yaml:"private_key"`
	AppName        string        `yaml:"app_name"`
	Subdomain      string        `yaml:"subdomain"`
	Domain         string        `yaml:"domain"`
	APIVersion     int           `yaml:"api_version"`
	UserObjectName string        `yaml:"user_object_name"`
	BaseURL        string        `yaml:"base_url"`
	Secure         bool          `yaml:"secure"`
	Timeout        time.Duration `yaml:"timeout"`

	Log logging.Config `yaml:"log"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Domain:         stackmob.DefaultDomain,
		APIVersion:     stackmob.DefaultAPIVersion,
		UserObjectName: stackmob.DefaultUserObjectName,
		Timeout:        stackmob.DefaultTimeout,
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, wrap("Load", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode parses YAML into cfg, rejecting unknown keys.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return wrap("Decode", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvPublicKey, &c.PublicKey)
	str(EnvApp, &c.AppName)
	str(EnvDomain, &c.Domain)
	str(EnvSubdomain, &c.Subdomain)
	str(EnvBaseURL, &c.BaseURL)
	str(EnvLogLevel, &c.Log.Level)
	if v, ok := lookup(EnvPrivateKey); ok && v != "" {
		c.PrivateKey = v
	}

	if v, ok := lookup(EnvAPIVersion); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return invalid(EnvAPIVersion, v)
		}
		c.APIVersion = n
	}
	if v, ok := lookup(EnvSecure); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return invalid(EnvSecure, v)
		}
		c.Secure = b
	}
	if v, ok := lookup(EnvTimeout); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return invalid(EnvTimeout, v)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports the first missing or malformed setting.
func (c Config) Validate() error {
	switch {
	case c.PublicKey == "":
		return missing("public_key")
	case c.PrivateKey == "":
		return missing("private_key")
	case c.BaseURL == "" && c.AppName == "":
		return missing("app_name")
	case c.BaseURL == "" && c.Subdomain == "":
		return missing("subdomain")
	case c.APIVersion < 0:
		return invalid("api_version", strconv.Itoa(c.APIVersion))
	case c.Timeout < 0:
		return invalid("timeout", c.Timeout.String())
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return invalid("base_url", c.BaseURL)
	}
	return nil
}

// SessionConfig converts c for stackmob.NewOAuthSession.
func (c Config) SessionConfig() stackmob.SessionConfig {
	return stackmob.SessionConfig{
		PublicKey:      c.PublicKey,
		PrivateKey:     c.PrivateKey,
		AppName:        c.AppName,
		Subdomain:      c.Subdomain,
		Domain:         c.Domain,
		APIVersion:     c.APIVersion,
		UserObjectName: c.UserObjectName,
		BaseURL:        c.BaseURL,
	}
}

func missing(field string) error {
	return sdkerr.NewSDKError().
		WithSubsys(subsys).
		WithOp("Validate").
		WithKind(sdkerr.ErrConfiguration).
		WithMessage(field + " is required")
}

func invalid(field, value string) error {
	return sdkerr.NewSDKError().
		WithSubsys(subsys).
		WithOp("Validate").
		WithKind(sdkerr.ErrConfiguration).
		WithMessage(fmt.Sprintf("invalid %s %q", field, value))
}

func wrap(op string, err error) error {
	return sdkerr.NewSDKError().
		WithSubsys(subsys).
		WithOp(op).
		WithKind(sdkerr.ErrConfiguration).
		WithCause(err)
}

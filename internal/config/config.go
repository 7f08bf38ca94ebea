package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"nasdrive/internal/listing"
)

const (
	DefaultListen          = "0.0.0.0:5001"
	DefaultPageSize        = listing.DefaultPageSize
	DefaultSessionTTL      = 12 * time.Hour
	DefaultMaxUploadMemory = 32 << 20
)

// Config is built once at startup and handed to every component. It is
// JSON- and YAML-friendly; see Load.
type Config struct {
	// Root is the directory served by nasdrive. Every path a client sends is
	// resolved beneath it.
	Root string `json:"root" yaml:"root"`

	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`

	// Username and PasswordBcrypt are the single shared login.
	// Password is a plaintext convenience; it is hashed on Normalize and then
	// cleared. Generate a hash with `nasdrive passwd -p <password>`.
	Username       string `json:"username" yaml:"username"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	PasswordBcrypt string `json:"passwordBcrypt,omitempty" yaml:"passwordBcrypt,omitempty"`

	// SessionKeys sign the session cookie. The first key signs, all keys
	// verify. Rotate by prepending a new key and removing the old one once
	// SessionTTL has passed. Empty: a random key per process.
	SessionKeys  []SessionKey `json:"sessionKeys,omitempty" yaml:"sessionKeys,omitempty"`
	SessionTTL   Duration     `json:"sessionTTL,omitempty" yaml:"sessionTTL,omitempty"`
	SecureCookie bool         `json:"secureCookie,omitempty" yaml:"secureCookie,omitempty"`

	PageSize int      `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	Hidden   []string `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// MaxUploadMemory is how much of a multipart body is kept in memory;
	// the rest spills to temp files.
	MaxUploadMemory int64 `json:"maxUploadMemory,omitempty" yaml:"maxUploadMemory,omitempty"`

	DisableWebDAV     bool `json:"disableWebDAV,omitempty" yaml:"disableWebDAV,omitempty"`
	DisableThumbnails bool `json:"disableThumbnails,omitempty" yaml:"disableThumbnails,omitempty"`
	DisableReadme     bool `json:"disableReadme,omitempty" yaml:"disableReadme,omitempty"`
}

type SessionKey struct {
	ID     string `json:"id" yaml:"id"`
	Secret string `json:"secret" yaml:"secret"`
}

// Duration accepts "12h"-style strings or integer seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var secs int64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration: %s", b)
	}
	d.Duration = time.Duration(secs) * time.Second
	return nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var secs int64
	if err := n.Decode(&secs); err == nil {
		d.Duration = time.Duration(secs) * time.Second
		return nil
	}
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads a config file, YAML for .yaml/.yml and JSON otherwise.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize fills defaults, makes Root absolute and checks it, and turns a
// plaintext Password into PasswordBcrypt.
func (c *Config) Normalize() error {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Hidden == nil {
		c.Hidden = append([]string(nil), listing.DefaultHidden...)
	}
	if c.SessionTTL.Duration <= 0 {
		c.SessionTTL.Duration = DefaultSessionTTL
	}
	if c.MaxUploadMemory <= 0 {
		c.MaxUploadMemory = DefaultMaxUploadMemory
	}

	if strings.TrimSpace(c.Root) == "" {
		return errors.New("config: root is required")
	}
	absRoot, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("config: abs root: %w", err)
	}
	c.Root = absRoot
	st, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("config: root: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("config: root %s is not a directory", c.Root)
	}

	if c.Username == "" {
		return errors.New("config: username is required")
	}
	if c.PasswordBcrypt == "" {
		if c.Password == "" {
			return errors.New("config: password or passwordBcrypt is required")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("config: hash password: %w", err)
		}
		c.PasswordBcrypt = string(h)
	} else if _, err := bcrypt.Cost([]byte(c.PasswordBcrypt)); err != nil {
		return fmt.Errorf("config: passwordBcrypt: %w", err)
	}
	c.Password = ""

	seen := make(map[string]bool, len(c.SessionKeys))
	for i, k := range c.SessionKeys {
		if k.Secret == "" {
			return fmt.Errorf("config: sessionKeys[%d]: empty secret", i)
		}
		if seen[k.ID] {
			return fmt.Errorf("config: sessionKeys[%d]: duplicate id %q", i, k.ID)
		}
		seen[k.ID] = true
	}
	return nil
}

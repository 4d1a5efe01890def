// ABOUTME: Layered configuration for siteview: defaults, YAML file, .env file, then environment.
// ABOUTME: Environment names PATH_VIEW, PORT, and SSL_PATH match existing deployments.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvViewDir     = "PATH_VIEW"
	EnvPort        = "PORT"
	EnvSSLDir      = "SSL_PATH"
	EnvMetricsAddr = "SITEVIEW_METRICS_ADDR"
)

// Certificate file names looked up inside SSLDir.
const (
	CertFileName = "fullchain.pem"
	KeyFileName  = "privkey.pem"
)

// Config holds everything needed to run the site server.
type Config struct {
	ViewDir     string   `yaml:"view_dir"`
	Addr        string   `yaml:"addr"`
	SSLDir      string   `yaml:"ssl_dir"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Timeouts    Timeouts `yaml:"timeouts"`
}

// Timeouts are the HTTP server timeouts. YAML values use Go duration syntax
// such as "10s" or "2m".
type Timeouts struct {
	ReadHeader time.Duration `yaml:"read_header"`
	Read       time.Duration `yaml:"read"`
	Write      time.Duration `yaml:"write"`
	Idle       time.Duration `yaml:"idle"`
	Shutdown   time.Duration `yaml:"shutdown"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		ViewDir: "./view",
		Addr:    ":11400",
		SSLDir:  "./ssl",
		Timeouts: Timeouts{
			ReadHeader: 10 * time.Second,
			Read:       30 * time.Second,
			Write:      30 * time.Second,
			Idle:       2 * time.Minute,
			Shutdown:   10 * time.Second,
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped when
// path is empty), and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvViewDir); ok && v != "" {
		c.ViewDir = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%s must be a port number, got %q", EnvPort, v)
		}
		c.Addr = ":" + strconv.Itoa(port)
	}
	if v, ok := lookup(EnvSSLDir); ok && v != "" {
		c.SSLDir = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.MetricsAddr = v
	}
	return nil
}

// LoadDotEnv loads variables from each .env file that exists, without
// overriding variables already in the environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.ViewDir == "" {
		return errors.New("view_dir must not be empty")
	}
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.Addr {
		return fmt.Errorf("metrics_addr must differ from addr (%s)", c.Addr)
	}
	for name, d := range map[string]time.Duration{
		"read_header": c.Timeouts.ReadHeader,
		"read":        c.Timeouts.Read,
		"write":       c.Timeouts.Write,
		"idle":        c.Timeouts.Idle,
		"shutdown":    c.Timeouts.Shutdown,
	} {
		if d < 0 {
			return fmt.Errorf("timeouts.%s must not be negative, got %s", name, d)
		}
	}
	return nil
}

// CertFiles returns the TLS certificate and key paths when both exist in
// SSLDir. ok is false when TLS should stay off.
func (c Config) CertFiles() (cert, key string, ok bool) {
	if c.SSLDir == "" {
		return "", "", false
	}
	cert = filepath.Join(c.SSLDir, CertFileName)
	key = filepath.Join(c.SSLDir, KeyFileName)
	if !fileExists(cert) || !fileExists(key) {
		return "", "", false
	}
	return cert, key, true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

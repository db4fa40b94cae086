// Package config loads routelint.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/romshark/yamagiconf"
	"gopkg.in/yaml.v3"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/modules/msgbroker"
	"github.com/romshark/routelint/parser"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "routelint.yaml"

// Environment variables overriding the config.
const (
	EnvConfig   = "ROUTELINT_CONFIG"
	EnvLogLevel = "ROUTELINT_LOG_LEVEL"
	EnvNATSURL  = "NATS_URL"
)

var (
	ErrInvalidIdentifier = errors.New("not a Go identifier")
	ErrUnknownMethod     = errors.New("unknown method prefix")
	ErrInvalidFailOn     = errors.New(`failOn must be "error" or "warning"`)
	ErrInvalidStoreKind  = errors.New(`store kind must be "none", "disk" or "nats"`)
	ErrInvalidSubject    = errors.New("invalid NATS subject")
	ErrEmptyURL          = errors.New("NATS url must not be empty")
	ErrStoreRequiresNATS = errors.New(`store kind "nats" requires report.nats`)
)

type Config struct {
	RegistrationFuncs     []string `yaml:"registrationFuncs"`
	MethodPrefixes        []string `yaml:"methodPrefixes"`
	PageTypePrefix        string   `yaml:"pageTypePrefix"`
	ExtraNonBindableTypes []string `yaml:"extraNonBindableTypes"`
	FailOn                FailOn   `yaml:"failOn"`
	Report                Report   `yaml:"report"`
	Store                 Store    `yaml:"store"`
}

type Report struct {
	// NATS is null when reports are not published.
	NATS *NATS `yaml:"nats"`
}

type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type Store struct {
	Kind StoreKind `yaml:"kind"`

	// Dir is the disk store directory. Empty selects the user cache dir.
	Dir string `yaml:"dir"`

	// Bucket is the NATS KV bucket. Empty selects the default bucket.
	Bucket string `yaml:"bucket"`
}

type FailOn string

const (
	FailOnError   FailOn = "error"
	FailOnWarning FailOn = "warning"
)

func (f FailOn) Validate() error {
	switch f {
	case FailOnError, FailOnWarning:
		return nil
	}
	return fmt.Errorf("%w, got %q", ErrInvalidFailOn, string(f))
}

// Severity returns the lowest severity that fails a check.
func (f FailOn) Severity() analysis.Severity {
	if f == FailOnWarning {
		return analysis.SevWarning
	}
	return analysis.SevError
}

type StoreKind string

const (
	StoreNone StoreKind = "none"
	StoreDisk StoreKind = "disk"
	StoreNATS StoreKind = "nats"
)

func (k StoreKind) Validate() error {
	switch k {
	case StoreNone, StoreDisk, StoreNATS:
		return nil
	}
	return fmt.Errorf("%w, got %q", ErrInvalidStoreKind, string(k))
}

func (n *NATS) Validate() error {
	if n == nil {
		return nil
	}
	if n.URL == "" {
		return ErrEmptyURL
	}
	return validateSubject(n.Subject)
}

func validateSubject(s string) error {
	if s == "" || strings.ContainsAny(s, "*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, s)
	}
	if slices.Contains(strings.Split(s, "."), "") {
		return fmt.Errorf("%w: %q has an empty token", ErrInvalidSubject, s)
	}
	return nil
}

func (c *Config) Validate() error {
	for _, name := range c.RegistrationFuncs {
		if !token.IsIdentifier(name) {
			return fmt.Errorf("registrationFuncs: %w: %q", ErrInvalidIdentifier, name)
		}
	}
	for _, m := range c.MethodPrefixes {
		if !slices.Contains(parser.DefaultMethodPrefixes, m) {
			return fmt.Errorf("methodPrefixes: %w: %q", ErrUnknownMethod, m)
		}
	}
	if !token.IsIdentifier(c.PageTypePrefix) {
		return fmt.Errorf("pageTypePrefix: %w: %q", ErrInvalidIdentifier, c.PageTypePrefix)
	}
	if c.Store.Kind == StoreNATS && c.Report.NATS == nil {
		return ErrStoreRequiresNATS
	}
	return nil
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		RegistrationFuncs:     slices.Clone(parser.DefaultRegistrationFuncs),
		MethodPrefixes:        slices.Clone(parser.DefaultMethodPrefixes),
		PageTypePrefix:        parser.DefaultPageTypePrefix,
		ExtraNonBindableTypes: []string{},
		FailOn:                FailOnError,
		Store:                 Store{Kind: StoreNone},
	}
}

// Path returns flagValue if set, otherwise $ROUTELINT_CONFIG,
// otherwise DefaultFileName.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return DefaultFileName
}

// Load reads and validates the file at path and applies environment
// overrides. A missing file yields Default unless required is set.
func Load(path string, required bool) (Config, error) {
	var c Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !required {
		c = Default()
	} else if err := yamagiconf.LoadFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Parse reads and validates a config from YAML source.
func Parse(src []byte) (Config, error) {
	var c Config
	if err := yamagiconf.Load(src, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyEnv lets $NATS_URL override or enable publishing.
func (c *Config) applyEnv() error {
	u := os.Getenv(EnvNATSURL)
	if u == "" {
		return nil
	}
	if c.Report.NATS == nil {
		c.Report.NATS = &NATS{Subject: msgbroker.DefaultSubjectPrefix}
	}
	c.Report.NATS.URL = u
	return c.Report.NATS.Validate()
}

// Marshal encodes c as YAML that Parse accepts.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParserOptions returns the parser options configured by c.
func (c Config) ParserOptions() []parser.Option {
	return []parser.Option{
		parser.WithRegistrationFuncs(c.RegistrationFuncs...),
		parser.WithMethodPrefixes(c.MethodPrefixes...),
		parser.WithPageTypePrefix(c.PageTypePrefix),
		parser.WithNonBindableTypes(c.ExtraNonBindableTypes...),
	}
}

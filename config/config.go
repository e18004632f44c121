package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pbudner/halfhour/archive"
	"github.com/pbudner/halfhour/blocks"
	"github.com/pbudner/halfhour/notify"
	"github.com/pbudner/halfhour/sources"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	dateLayout       = "2006-01-02"
	defaultDatabase  = ".catalogue"
	defaultListener  = "localhost:4711"
	defaultExtension = ".dat"
	defaultFrequency = 20
	defaultSite      = "site"
)

type Logger struct {
	Level       zapcore.Level `yaml:"level"`
	ProgressLog string        `yaml:"progress-log"`
}

type MalformedFields struct {
	Policy      blocks.MalformedPolicy `yaml:"policy"`
	Placeholder string                 `yaml:"placeholder"`
}

type Database struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in-memory"`
}

type Archive struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Extension   string `yaml:"extension"`
}

type Coverage struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Report string `yaml:"report"`
	CSV    string `yaml:"csv"`
}

type Config struct {
	Logger           Logger             `yaml:"logger"`
	InputDirectory   string             `yaml:"input-directory"`
	OutputDirectory  string             `yaml:"output-directory"`
	FileExtension    string             `yaml:"file-extension"`
	Exclude          []string           `yaml:"exclude"`
	SiteIdentifier   string             `yaml:"site-identifier"`
	Frequency        int                `yaml:"frequency"`
	BlockMinutes     int                `yaml:"block-minutes"`
	HeaderLines      int                `yaml:"header-lines"`
	TimestampLayouts []string           `yaml:"timestamp-layouts"`
	Timezone         string             `yaml:"timezone"`
	NaNToken         string             `yaml:"nan-token"`
	MalformedFields  MalformedFields    `yaml:"malformed-fields"`
	Database         Database           `yaml:"database"`
	Listener         string             `yaml:"listener"`
	MetricsFile      string             `yaml:"metrics-file"`
	Archive          Archive            `yaml:"archive"`
	Coverage         Coverage           `yaml:"coverage"`
	Kafka            notify.KafkaConfig `yaml:"kafka"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	return &Config{
		Logger:          Logger{Level: zapcore.InfoLevel},
		FileExtension:   defaultExtension,
		SiteIdentifier:  defaultSite,
		Frequency:       defaultFrequency,
		BlockMinutes:    blocks.DefaultGridMinutes,
		HeaderLines:     sources.DefaultHeaderLines,
		NaNToken:        blocks.DefaultNaNToken,
		MalformedFields: MalformedFields{Policy: blocks.PolicyFail},
		Listener:        defaultListener,
		Archive:         Archive{Extension: archive.DefaultExtension},
	}
}

// NewConfig returns a new decoded Config struct
func NewConfig(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return NewConfigFromStr(b)
}

// NewConfigFromStr decodes a YAML document on top of the defaults. Unknown
// keys are an error.
func NewConfigFromStr(b []byte) (*Config, error) {
	config := Default()
	d := yaml.NewDecoder(bytes.NewReader(b))
	d.KnownFields(true)
	if err := d.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return config, nil
}

// ValidateConfigPath just makes sure, that the path provided is a file,
// that can be read
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a normal file", path)
	}
	return nil
}

// Validate checks what every command needs.
func (c *Config) Validate() error {
	if c.OutputDirectory == "" {
		return errors.New("output-directory must be set")
	}
	if c.SiteIdentifier == "" {
		return errors.New("site-identifier must not be empty")
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive, got %d", c.Frequency)
	}
	if _, err := blocks.NewGrid(c.BlockMinutes); err != nil {
		return err
	}
	if c.HeaderLines < 0 {
		return fmt.Errorf("header-lines must not be negative, got %d", c.HeaderLines)
	}
	if !c.MalformedFields.Policy.Valid() {
		return fmt.Errorf("malformed-fields.policy must be %q or %q, got %q", blocks.PolicyFail, blocks.PolicyPlaceholder, c.MalformedFields.Policy)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	return nil
}

// ValidateInput checks the keys needed to read raw files.
func (c *Config) ValidateInput() error {
	if c.InputDirectory == "" {
		return errors.New("input-directory must be set")
	}

	return nil
}

func (c *Config) ValidateArchive() error {
	if c.Archive.Source == "" || c.Archive.Destination == "" {
		return errors.New("archive.source and archive.destination must be set")
	}

	return nil
}

// DatabasePath is where the catalogue lives. It is empty for an in-memory
// catalogue and defaults to a directory inside the output directory.
func (c *Config) DatabasePath() string {
	if c.Database.InMemory {
		return ""
	}
	if c.Database.Path != "" {
		return c.Database.Path
	}

	return filepath.Join(c.OutputDirectory, defaultDatabase)
}

// CoverageRange parses coverage.from and coverage.to. A bound left empty is
// returned as the zero time.
func (c *Config) CoverageRange() (from, to time.Time, err error) {
	if c.Coverage.From != "" {
		if from, err = time.Parse(dateLayout, c.Coverage.From); err != nil {
			return from, to, fmt.Errorf("coverage.from: %w", err)
		}
	}
	if c.Coverage.To != "" {
		if to, err = time.Parse(dateLayout, c.Coverage.To); err != nil {
			return from, to, fmt.Errorf("coverage.to: %w", err)
		}
	}

	return from, to, nil
}

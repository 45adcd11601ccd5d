// Package config loads the YAML-described geometry of a flash device and
// its derived FTL/OSL tuning knobs (spec §6, "Configuration surface").
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flashstore/internal/ftl"
)

// NativeMCISizeMultiplier is the host-simulator-only scaling factor for the
// backing file size, in MiB (spec §6, NATIVE_MCI_SIZE_MULTIPLIER).
const NativeMCISizeMultiplier = 8

// MMCSectorSize and MMCEraseBlockSize describe the control-plane geometry
// the host MMC simulator presents (spec §6).
const (
	MMCSectorSize     = 512
	MMCEraseBlockSize = 512 * 1024
)

// Device is the YAML-serialisable description of a device's geometry,
// mapping directly onto ftl.Config.
type Device struct {
	TotalPages    uint32 `yaml:"total_pages"`
	PageSize      int    `yaml:"page_size"`
	SubpageSize   int    `yaml:"subpage_size"`
	PagesPerBlock uint32 `yaml:"pages_per_block"`
}

// OSL carries the OSL-side tuning knobs that are compiled constants in
// internal/osl but are still worth surfacing for operators to see and
// validate against a running build.
type OSL struct {
	NameMax            int `yaml:"name_max"`
	MaxOpenCollections int `yaml:"max_open_collections"`
	StepCacheSize      int `yaml:"step_cache_size"`
}

// Config is the full on-disk configuration document.
type Config struct {
	Device       Device `yaml:"device"`
	OSL          OSL    `yaml:"osl"`
	IndexReserve int64  `yaml:"index_reserve_bytes"`

	// CheckpointSpec is a robfig/cron schedule expression, e.g. "@every 30s".
	CheckpointSpec string `yaml:"checkpoint_spec"`

	// BackingFile, if set, selects a file-backed device simulator at this
	// path; otherwise callers default to an in-memory one.
	BackingFile string `yaml:"backing_file,omitempty"`
}

// Load reads and parses a Config from path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration is internally consistent, independent
// of ftl.Init's own checks, so misconfiguration is reported with a path
// reference rather than a bare FTL error.
func (c *Config) Validate() error {
	if c.Device.PageSize <= 0 || c.Device.SubpageSize <= 0 {
		return fmt.Errorf("config: page_size and subpage_size must be positive")
	}
	if c.Device.PageSize%c.Device.SubpageSize != 0 {
		return fmt.Errorf("config: subpage_size %d must divide page_size %d",
			c.Device.SubpageSize, c.Device.PageSize)
	}
	if c.Device.PagesPerBlock == 0 {
		return fmt.Errorf("config: pages_per_block must be positive")
	}
	if c.OSL.NameMax == 0 {
		c.OSL.NameMax = 31
	}
	if c.OSL.MaxOpenCollections == 0 {
		c.OSL.MaxOpenCollections = 8
	}
	if c.OSL.StepCacheSize == 0 {
		c.OSL.StepCacheSize = 6
	}
	if c.IndexReserve == 0 {
		c.IndexReserve = ftl.IndexReserve
	}
	return nil
}

// FTLConfig converts the YAML-loaded geometry into ftl.Config.
func (c *Config) FTLConfig() ftl.Config {
	return ftl.Config{
		TotalPages:        c.Device.TotalPages,
		PageSize:          c.Device.PageSize,
		SubpageSize:       c.Device.SubpageSize,
		PagesPerBlock:     c.Device.PagesPerBlock,
		IndexReserveBytes: c.IndexReserve,
	}
}

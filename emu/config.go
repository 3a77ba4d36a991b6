package emu

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/user-none/emvdp/emu/log"
)

// Config is the TOML configuration shared by the tools.
type Config struct {
	VDP VDPConfig `toml:"vdp"`
	Log LogConfig `toml:"log"`
}

// VDPConfig selects the chip model and region by name.
type VDPConfig struct {
	Model  string `toml:"model"`
	Region string `toml:"region"`
}

// LogConfig sets the log level and the modules with debug output.
type LogConfig struct {
	Level   string   `toml:"level"`
	Modules []string `toml:"modules"`
}

// DefaultConfig is an NTSC MD chip logging warnings only.
func DefaultConfig() Config {
	return Config{
		VDP: VDPConfig{Model: ModelMD.String(), Region: "ntsc"},
		Log: LogConfig{Level: "warn"},
	}
}

// LoadConfig decodes the TOML file at path over the defaults. An empty
// path gives the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		log.ModEmu.Warnf("config %s: unknown keys %v", path, undec)
	}
	return cfg, nil
}

// DecodeConfig decodes TOML text over the defaults.
func DecodeConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Model returns the configured chip model.
func (c Config) Model() (Model, error) {
	return ParseModel(c.VDP.Model)
}

// Region returns the configured display timing region.
func (c Config) Region() (Region, error) {
	switch strings.ToLower(c.VDP.Region) {
	case "", "ntsc":
		return RegionNTSC, nil
	case "pal":
		return RegionPAL, nil
	}
	return RegionNTSC, fmt.Errorf("unknown region %q", c.VDP.Region)
}

// ApplyLogging sets the log level and enables debug output for the
// configured modules.
func (c Config) ApplyLogging() error {
	if c.Log.Level != "" {
		lvl, err := log.ParseLevel(c.Log.Level)
		if err != nil {
			return err
		}
		log.SetLevel(lvl)
	}
	mask, unknown := log.ParseModules(c.Log.Modules)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown log modules %s", strings.Join(unknown, ","))
	}
	log.EnableDebugModules(mask)
	return nil
}

package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/user-none/emvdp/emu/log"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if m, err := cfg.Model(); err != nil || m != ModelMD {
		t.Errorf("expected md, got %v (%v)", m, err)
	}
	if r, err := cfg.Region(); err != nil || r != RegionNTSC {
		t.Errorf("expected NTSC, got %v (%v)", r, err)
	}
}

func TestConfig_Decode(t *testing.T) {
	cfg, err := DecodeConfig(`
[vdp]
model = "gg"
region = "PAL"

[log]
level = "debug"
modules = ["dma", "fifo"]
`)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	want := Config{
		VDP: VDPConfig{Model: "gg", Region: "PAL"},
		Log: LogConfig{Level: "debug", Modules: []string{"dma", "fifo"}},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if m, _ := cfg.Model(); m != ModelGG {
		t.Errorf("expected gg, got %v", m)
	}
	if r, _ := cfg.Region(); r != RegionPAL {
		t.Errorf("expected PAL, got %v", r)
	}
}

func TestConfig_PartialKeepsDefaults(t *testing.T) {
	cfg, err := DecodeConfig("[vdp]\nmodel = \"sms2\"\n")
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if cfg.VDP.Region != "ntsc" || cfg.Log.Level != "warn" {
		t.Errorf("expected defaults kept, got %+v", cfg)
	}
}

func TestConfig_Errors(t *testing.T) {
	if _, err := DecodeConfig("[vdp\n"); err == nil {
		t.Error("expected a TOML syntax error")
	}

	cfg := DefaultConfig()
	cfg.VDP.Model = "nes"
	if _, err := cfg.Model(); err == nil {
		t.Error("expected an unknown model error")
	}
	cfg.VDP.Region = "secam"
	if _, err := cfg.Region(); err == nil {
		t.Error("expected an unknown region error")
	}

	cfg = DefaultConfig()
	cfg.Log.Level = "loud"
	if err := cfg.ApplyLogging(); err == nil {
		t.Error("expected an unknown level error")
	}
	cfg = DefaultConfig()
	cfg.Log.Modules = []string{"vdp", "cpu"}
	if err := cfg.ApplyLogging(); err == nil {
		t.Error("expected an unknown module error")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestConfig_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vdp.toml")
	text := "[vdp]\nmodel = \"tms\"\nregion = \"pal\"\n\n[log]\nmodules = [\"irq\"]\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if m, _ := cfg.Model(); m != ModelTMS9918 {
		t.Errorf("expected tms9918, got %v", m)
	}

	if err := cfg.ApplyLogging(); err != nil {
		t.Fatalf("ApplyLogging failed: %v", err)
	}
	defer log.DisableDebugModules(log.ModIRQ.Mask())
	if !log.ModIRQ.Enabled(log.DebugLevel) {
		t.Error("expected irq debug output enabled")
	}
}

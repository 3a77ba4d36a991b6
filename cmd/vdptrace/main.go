// Command vdptrace drives the VDP core outside of a frontend: it replays
// port traces, inspects save states and runs ROMs headless.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/user-none/emvdp/emu"
	"github.com/user-none/emvdp/emu/log"
)

type (
	CLI struct {
		Run   Run   `cmd:"" help:"Replay a port trace against a fresh VDP."`
		State State `cmd:"" help:"Decode a serialized VDP state."`
		Play  Play  `cmd:"" help:"Run a ROM headless and dump the VDP."`

		Config string     `name:"config" help:"TOML configuration file." type:"existingfile"`
		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		Indent bool       `name:"indent" help:"Indent JSON output."`
	}

	Run struct {
		TracePath string `arg:"" name:"/path/to/trace.toml" type:"existingfile"`
	}

	State struct {
		StatePath string `arg:"" name:"/path/to/state" type:"existingfile"`
		Model     string `name:"model" help:"Chip model the state was saved from. Defaults to the configured model."`
	}

	Play struct {
		RomPath  string `arg:"" name:"/path/to/rom" type:"existingfile"`
		Frames   int    `name:"frames" help:"Frames to run." default:"60"`
		StateOut string `name:"state-out" help:"Write the VDP state after the run, readable by the state command." type:"path"`
	}
)

var vars = kong.Vars{
	"log_help": "Enable debug logging for specified modules.",
}

func main() {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("vdptrace"),
		kong.Description("Replay and inspect VDP traces."),
		kong.UsageOnError(),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(os.Args[1:])
	checkf(err, "failed to parse command line")

	cfg, err := emu.LoadConfig(cli.Config)
	checkf(err, "failed to load configuration")
	checkf(cfg.ApplyLogging(), "invalid logging configuration")

	out := newOutput(cli.Indent)
	switch {
	case strings.HasPrefix(ctx.Command(), "run"):
		err = cli.Run.run(cfg, out)
	case strings.HasPrefix(ctx.Command(), "state"):
		err = cli.State.run(cfg, out)
	case strings.HasPrefix(ctx.Command(), "play"):
		err = cli.Play.run(cfg, out)
	}
	checkf(err, "%s failed", ctx.Command())
	checkf(out.flush(os.Stdout), "failed to write output")
}

func (s State) run(cfg emu.Config, out *output) error {
	if s.Model != "" {
		cfg.VDP.Model = s.Model
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	buf, err := os.ReadFile(s.StatePath)
	if err != nil {
		return err
	}
	vdp := emu.NewVDP(model, false)
	if err := vdp.Deserialize(buf); err != nil {
		return err
	}
	out.vdp(vdp, vdp.LineStartCycle(), nil)
	return nil
}

func (p Play) run(cfg emu.Config, out *output) error {
	rom, err := os.ReadFile(p.RomPath)
	if err != nil {
		return err
	}
	region, err := cfg.Region()
	if err != nil {
		return err
	}

	c := emu.NewConsole(rom, region)
	lines := &lineCounter{}
	c.SetRenderer(lines)
	for i := 0; i < p.Frames; i++ {
		c.RunFrame()
	}
	log.ModHost.Infof("ran %d frames, %d lines drawn", c.Frame(), lines.rendered)

	v := c.VDP()
	if p.StateOut != "" {
		state := make([]byte, emu.VDPSerializeSize)
		if err := v.Serialize(state); err != nil {
			return err
		}
		if err := os.WriteFile(p.StateOut, state, 0644); err != nil {
			return err
		}
	}
	out.vdp(v, v.LineStartCycle(), lines)
	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	mask, unknown := log.ParseModules(strings.Split(tok.Value.(string), ","))
	if len(unknown) > 0 {
		return fmt.Errorf("unknown log modules %s", strings.Join(unknown, ","))
	}
	log.EnableDebugModules(mask)
	return nil
}

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "vdptrace: %s: %s\n", fmt.Sprintf(format, args...), err)
	os.Exit(1)
}

package main

import (
	"io"

	"github.com/go-faster/jx"

	"github.com/user-none/emvdp/emu"
)

// output collects the JSON document printed at the end of a command.
type output struct {
	e      jx.Encoder
	fields []func(e *jx.Encoder)
}

func newOutput(indent bool) *output {
	o := &output{}
	if indent {
		o.e.SetIdent(2)
	}
	return o
}

func (o *output) field(name string, f func(e *jx.Encoder)) {
	o.fields = append(o.fields, func(e *jx.Encoder) { e.Field(name, f) })
}

func (o *output) flush(w io.Writer) error {
	o.e.Obj(func(e *jx.Encoder) {
		for _, f := range o.fields {
			f(e)
		}
	})
	o.e.RawStr("\n")
	_, err := w.Write(o.e.Bytes())
	return err
}

// vdp records the chip state as seen at cycle.
func (o *output) vdp(v *emu.VDP, cycle uint64, lines *lineCounter) {
	o.field("model", func(e *jx.Encoder) { e.Str(v.Model().String()) })
	o.field("pal", func(e *jx.Encoder) { e.Bool(v.IsPAL()) })
	o.field("registers", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := 0; i < 0x18; i++ {
				e.Int(int(v.Register(i)))
			}
		})
	})
	o.field("status", func(e *jx.Encoder) { e.Int(int(v.PeekStatus(cycle))) })
	o.field("line", func(e *jx.Encoder) { e.Int(v.Line()) })
	o.field("port", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("pending", func(e *jx.Encoder) { e.Bool(v.Pending()) })
			e.Field("address", func(e *jx.Encoder) { e.Int(int(v.Address())) })
			e.Field("code", func(e *jx.Encoder) { e.Int(int(v.Code())) })
		})
	})
	o.field("dma", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("active", func(e *jx.Encoder) { e.Bool(v.DMAActive()) })
			e.Field("length", func(e *jx.Encoder) { e.Int(int(v.DMALength())) })
		})
	})
	o.field("fifo", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("count", func(e *jx.Encoder) { e.Int(v.FIFOCount()) })
			e.Field("next_cycle", func(e *jx.Encoder) { e.UInt64(v.FIFONextCycle()) })
		})
	})
	o.field("irq", func(e *jx.Encoder) {
		hint, vint := v.InterruptsPending()
		e.Obj(func(e *jx.Encoder) {
			e.Field("level", func(e *jx.Encoder) { e.Int(int(v.IRQLevel())) })
			e.Field("hint", func(e *jx.Encoder) { e.Bool(hint) })
			e.Field("vint", func(e *jx.Encoder) { e.Bool(vint) })
		})
	})
	o.field("derived", func(e *jx.Encoder) { derived(e, v.DerivedState()) })
	o.field("dirty_tiles", func(e *jx.Encoder) { e.Int(v.DirtyTileCount()) })
	if lines != nil {
		o.field("renderer", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("rendered", func(e *jx.Encoder) { e.Int(lines.rendered) })
				e.Field("remapped", func(e *jx.Encoder) { e.Int(lines.remapped) })
			})
		})
	}
}

func derived(e *jx.Encoder, d emu.DerivedState) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("mode", func(e *jx.Encoder) { e.Str(d.Mode.String()) })
		e.Field("active_height", func(e *jx.Encoder) { e.Int(d.ActiveHeight) })
		e.Field("vc_max", func(e *jx.Encoder) { e.Int(d.VCMax) })
		e.Field("h40", func(e *jx.Encoder) { e.Bool(d.H40) })
		e.Field("ntab", func(e *jx.Encoder) { e.Int(int(d.NameTableA)) })
		e.Field("ntbb", func(e *jx.Encoder) { e.Int(int(d.NameTableB)) })
		e.Field("ntwb", func(e *jx.Encoder) { e.Int(int(d.WindowTable)) })
		e.Field("satb", func(e *jx.Encoder) { e.Int(int(d.SpriteTable)) })
		e.Field("hscb", func(e *jx.Encoder) { e.Int(int(d.HScrollTable)) })
		e.Field("hscroll_mask", func(e *jx.Encoder) { e.Int(int(d.HScrollMask)) })
		e.Field("playfield", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				e.Int(int(d.PlayfieldShift))
				e.Int(int(d.PlayfieldColMask))
				e.Int(int(d.PlayfieldRowMask))
			})
		})
		e.Field("window", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range d.WindowClip {
					e.Obj(func(e *jx.Encoder) {
						e.Field("left", func(e *jx.Encoder) { e.Int(c.Left) })
						e.Field("right", func(e *jx.Encoder) { e.Int(c.Right) })
						e.Field("enable", func(e *jx.Encoder) { e.Bool(c.Enable) })
					})
				}
			})
		})
		e.Field("max_sprite_pixels", func(e *jx.Encoder) { e.Int(d.MaxSpritePixels) })
		e.Field("border", func(e *jx.Encoder) { e.Int(int(d.Border)) })
	})
}

func (o *output) reads(reads []TraceRead) {
	o.field("reads", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, r := range reads {
				e.Obj(func(e *jx.Encoder) {
					e.Field("op", func(e *jx.Encoder) { e.Int(r.Index) })
					e.Field("kind", func(e *jx.Encoder) { e.Str(r.Kind) })
					e.Field("cycle", func(e *jx.Encoder) { e.UInt64(r.Cycle) })
					e.Field("value", func(e *jx.Encoder) { e.Int(int(r.Value)) })
				})
			}
		})
	})
}

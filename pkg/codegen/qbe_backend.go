package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
)

type qbeBackend struct {
	out  *strings.Builder
	prog *ir.Program
}

func NewQBEBackend() Backend { return &qbeBackend{} }

// GenerateIR renders prog as QBE IL.
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	if err := prog.Verify(); err != nil {
		return "", fmt.Errorf("qbe: %w", err)
	}
	var qbeIRBuilder strings.Builder
	b.out = &qbeIRBuilder
	b.prog = prog

	b.gen()
	return qbeIRBuilder.String(), nil
}

// Generate renders prog and assembles it for cfg.QbeTarget. A failure
// carries the IL so that backend bugs can be reported.
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	il, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	var asm bytes.Buffer
	if err := runQBE(cfg.QbeTarget, il, &asm); err != nil {
		return nil, fmt.Errorf("qbe rejected the generated IL: %w\n--- IL ---\n%s", err, il)
	}
	return &asm, nil
}

func (b *qbeBackend) gen() {
	for _, agg := range b.prog.AggTypes {
		b.genAggType(agg)
	}

	for _, g := range b.prog.Globals {
		b.genGlobal(g)
	}

	if len(b.prog.Strings) > 0 {
		b.out.WriteString("\n")
		for _, s := range b.prog.Strings {
			fmt.Fprintf(b.out, "data $%s = { %s }\n", s.Name, formatBytes(s.Bytes))
		}
	}

	for _, fn := range b.prog.Funcs {
		b.genFunc(fn)
	}
}

// formatBytes renders a NUL-terminated byte string. Printable runs are
// quoted; everything else is emitted as a numeric byte.
func formatBytes(data []byte) string {
	var items []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			items = append(items, "b \""+run.String()+"\"")
			run.Reset()
		}
	}
	for _, c := range data {
		if c >= ' ' && c <= '~' && c != '"' && c != '\\' {
			run.WriteByte(c)
			continue
		}
		flush()
		items = append(items, "b "+strconv.Itoa(int(c)))
	}
	flush()
	items = append(items, "b 0")
	return strings.Join(items, ", ")
}

func (b *qbeBackend) genAggType(agg *ir.AggType) {
	if agg.Opaque {
		fmt.Fprintf(b.out, "type :%s = align %d { %d }\n", agg.Name, agg.Align, agg.Size)
		return
	}
	fields := make([]string, 0, len(agg.Fields))
	for _, f := range agg.Fields {
		if f.Agg != "" {
			fields = append(fields, ":"+f.Agg)
			continue
		}
		fields = append(fields, b.formatType(f.Typ))
	}
	if len(fields) == 0 {
		fmt.Fprintf(b.out, "type :%s = align %d { %d }\n", agg.Name, agg.Align, agg.Size)
		return
	}
	fmt.Fprintf(b.out, "type :%s = align %d { %s }\n", agg.Name, agg.Align, strings.Join(fields, ", "))
}

func (b *qbeBackend) genGlobal(g *ir.Data) {
	if g.Export {
		b.out.WriteString("export ")
	}
	fmt.Fprintf(b.out, "data $%s = ", g.Name)
	if g.Align > 0 {
		fmt.Fprintf(b.out, "align %d ", g.Align)
	}
	items := make([]string, len(g.Items))
	for i, item := range g.Items {
		if item.Value == nil {
			items[i] = fmt.Sprintf("z %d", item.Count)
		} else {
			items[i] = b.formatType(item.Typ) + " " + b.formatValue(item.Value)
		}
	}
	fmt.Fprintf(b.out, "{ %s }\n", strings.Join(items, ", "))
}

func (b *qbeBackend) genFunc(fn *ir.Func) {
	b.out.WriteString("\n")
	if fn.Export {
		b.out.WriteString("export ")
	}
	b.out.WriteString("function")
	if fn.ReturnAgg != "" {
		b.out.WriteString(" :" + fn.ReturnAgg)
	} else if t := b.formatType(fn.ReturnType); t != "" {
		b.out.WriteString(" " + t)
	}

	params := make([]string, 0, len(fn.Params)+1)
	for _, p := range fn.Params {
		params = append(params, b.formatAbiType(p.Typ, p.Agg)+" "+b.formatValue(p.Val))
	}
	if fn.Variadic {
		params = append(params, "...")
	}
	fmt.Fprintf(b.out, " $%s(%s) {\n", fn.Name, strings.Join(params, ", "))

	for _, block := range fn.Blocks {
		fmt.Fprintf(b.out, "@%s\n", block.Label.Name)
		for _, instr := range block.Instructions {
			b.genInstr(instr)
		}
	}
	b.out.WriteString("}\n")
}

func (b *qbeBackend) genInstr(instr *ir.Instruction) {
	b.out.WriteString("\t")
	if instr.Op == ir.OpCall {
		b.genCall(instr)
		return
	}
	if instr.Result != nil {
		fmt.Fprintf(b.out, "%s =%s ", b.formatValue(instr.Result), b.formatType(instr.Typ))
	}
	b.out.WriteString(b.formatOp(instr))

	var args []string
	if instr.Op == ir.OpPhi {
		// Phi arguments come in (label, value) pairs.
		for i := 0; i+1 < len(instr.Args); i += 2 {
			args = append(args, b.formatValue(instr.Args[i])+" "+b.formatValue(instr.Args[i+1]))
		}
	} else {
		for _, arg := range instr.Args {
			args = append(args, b.formatValue(arg))
		}
	}
	if len(args) > 0 {
		b.out.WriteString(" " + strings.Join(args, ", "))
	}
	b.out.WriteString("\n")
}

// genCall writes a call. For variadic callees QBE wants a "..." marker
// between the fixed and the variable arguments.
func (b *qbeBackend) genCall(instr *ir.Instruction) {
	if instr.Result != nil {
		fmt.Fprintf(b.out, "%s =%s ", b.formatValue(instr.Result), b.formatAbiType(instr.Typ, instr.Agg))
	}
	args := instr.Args[1:]
	parts := make([]string, 0, len(args)+1)
	for i, arg := range args {
		if instr.Variadic && i == instr.FixedArgs {
			parts = append(parts, "...")
		}
		agg := ""
		if i < len(instr.ArgAggs) {
			agg = instr.ArgAggs[i]
		}
		parts = append(parts, b.formatAbiType(instr.ArgTypes[i], agg)+" "+b.formatValue(arg))
	}
	if instr.Variadic && instr.FixedArgs >= len(args) {
		parts = append(parts, "...")
	}
	fmt.Fprintf(b.out, "call %s(%s)\n", b.formatValue(instr.Args[0]), strings.Join(parts, ", "))
}

func (b *qbeBackend) formatValue(v ir.Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case *ir.FloatConst:
		return b.formatType(val.Typ) + "_" + strconv.FormatFloat(val.Value, 'g', -1, 64)
	case *ir.Global:
		return "$" + val.Name
	case *ir.Label:
		return "@" + val.Name
	case *ir.Temporary:
		if val.Name != "" {
			return fmt.Sprintf("%%%s.%d", val.Name, val.ID)
		}
		return fmt.Sprintf("%%t%d", val.ID)
	default:
		return v.String()
	}
}

// formatType returns the base or extended class of t. Signed and unsigned
// sub-word classes only differ in loads and parameters.
func (b *qbeBackend) formatType(t ir.Type) string {
	switch t {
	case ir.TypeB, ir.TypeSB, ir.TypeUB:
		return "b"
	case ir.TypeH, ir.TypeSH, ir.TypeUH:
		return "h"
	}
	return t.String()
}

func (b *qbeBackend) formatAbiType(t ir.Type, agg string) string {
	if agg != "" {
		return ":" + agg
	}
	return b.formatType(t)
}

// plainOps are the instructions whose QBE name does not depend on the
// operand class.
var plainOps = map[ir.Op]string{
	ir.OpBlit: "blit", ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul",
	ir.OpDiv: "div", ir.OpUDiv: "udiv", ir.OpRem: "rem", ir.OpURem: "urem",
	ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor", ir.OpShl: "shl",
	ir.OpShr: "shr", ir.OpSar: "sar", ir.OpNeg: "neg",
	ir.OpExtSB: "extsb", ir.OpExtUB: "extub", ir.OpExtSH: "extsh",
	ir.OpExtUH: "extuh", ir.OpExtSW: "extsw", ir.OpExtUW: "extuw",
	ir.OpCopy: "copy", ir.OpSWToF: "swtof", ir.OpUWToF: "uwtof",
	ir.OpSLToF: "sltof", ir.OpULToF: "ultof", ir.OpExtS: "exts",
	ir.OpTruncD: "truncd", ir.OpJmp: "jmp", ir.OpJnz: "jnz", ir.OpRet: "ret",
	ir.OpPhi: "phi",
}

// Comparisons are suffixed with the operand class. Signed integer
// comparisons take an "s" infix that floating-point ones do not.
var (
	compareOps = map[ir.Op]string{
		ir.OpCEq: "ceq", ir.OpCNe: "cne",
		ir.OpCUlt: "cult", ir.OpCUle: "cule", ir.OpCUgt: "cugt", ir.OpCUge: "cuge",
	}
	orderOps = map[ir.Op]string{
		ir.OpCSlt: "lt", ir.OpCSle: "le", ir.OpCSgt: "gt", ir.OpCSge: "ge",
	}
	loadOps = map[ir.Type]string{
		ir.TypeSB: "loadsb", ir.TypeUB: "loadub", ir.TypeB: "loadub",
		ir.TypeSH: "loadsh", ir.TypeUH: "loaduh", ir.TypeH: "loaduh",
	}
)

func (b *qbeBackend) formatOp(instr *ir.Instruction) string {
	if name, ok := plainOps[instr.Op]; ok {
		return name
	}
	class := instr.OperandType
	if class == ir.TypeNone {
		class = instr.Typ
	}
	if name, ok := compareOps[instr.Op]; ok {
		return name + class.String()
	}
	if name, ok := orderOps[instr.Op]; ok {
		if class == ir.TypeS || class == ir.TypeD {
			return "c" + name + class.String()
		}
		return "cs" + name + class.String()
	}

	switch instr.Op {
	case ir.OpAlloc:
		switch {
		case instr.Align <= 4:
			return "alloc4"
		case instr.Align <= 8:
			return "alloc8"
		}
		return "alloc16"
	case ir.OpLoad:
		if name, ok := loadOps[class]; ok {
			return name
		}
		return "load" + class.String()
	case ir.OpStore:
		return "store" + b.formatType(class)
	case ir.OpFToSI:
		return class.String() + "tosi"
	case ir.OpFToUI:
		return class.String() + "toui"
	}
	return "unknown_op"
}

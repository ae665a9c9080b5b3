package codegen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
	"github.com/xplshn/xcc/pkg/lexer"
	"github.com/xplshn/xcc/pkg/parser"
	"github.com/xplshn/xcc/pkg/util"
)

func lower(t *testing.T, src string) (*ir.Program, error) {
	t.Helper()
	cfg := config.NewConfig()
	toks, lexErrs := lexer.Tokenize([]rune(src), 0, cfg)
	if len(lexErrs) > 0 {
		t.Fatalf("unexpected lexical error: %v", lexErrs[0])
	}
	p := parser.NewParser(toks, cfg)
	root, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return NewContext(cfg, p.Universe()).Generate(root)
}

func mustLower(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := lower(t, src)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return prog
}

// captureWarnings redirects diagnostics for the duration of the test.
func captureWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := util.Stderr
	util.Stderr = &buf
	t.Cleanup(func() { util.Stderr = old })
	return &buf
}

func blockLabels(fn *ir.Func) []string {
	var labels []string
	for _, b := range fn.Blocks {
		labels = append(labels, b.Label.Name)
	}
	return labels
}

func findBlock(fn *ir.Func, label string) *ir.BasicBlock {
	for _, b := range fn.Blocks {
		if b.Label.Name == label {
			return b
		}
	}
	return nil
}

func lastInstr(b *ir.BasicBlock) *ir.Instruction { return b.Instructions[len(b.Instructions)-1] }

func TestReturnZeroQBE(t *testing.T) {
	prog := mustLower(t, "int main(void){return 0;}")
	got, err := NewQBEBackend().GenerateIR(prog, config.NewConfig())
	if err != nil {
		t.Fatalf("GenerateIR failed: %v", err)
	}
	want := "\nexport function w $main() {\n@start\n\tret 0\n}\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("QBE mismatch (-want +got):\n%s", diff)
	}
}

func TestParametersAreSpilledToTheEntryBlock(t *testing.T) {
	prog := mustLower(t, "int add(int a, int b) { return a + b; }")
	got, err := NewQBEBackend().GenerateIR(prog, config.NewConfig())
	if err != nil {
		t.Fatalf("GenerateIR failed: %v", err)
	}
	want := `
export function w $add(w %a.0, w %b.2) {
@start
	%t1 =l alloc4 4
	%t3 =l alloc4 4
	storew %a.0, %t1
	storew %b.2, %t3
	%t4 =w loadw %t1
	%t5 =w loadw %t3
	%t6 =w add %t4, %t5
	ret %t6
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("QBE mismatch (-want +got):\n%s", diff)
	}
}

func TestImplicitReturnOfMain(t *testing.T) {
	prog := mustLower(t, "int main(void){ int x; x = 1; }")
	fn := prog.FindFunc("main")
	if fn == nil {
		t.Fatal("main was not lowered")
	}
	ret := lastInstr(fn.Blocks[len(fn.Blocks)-1])
	if ret.Op != ir.OpRet || len(ret.Args) != 1 {
		t.Fatalf("last instruction = %+v, want ret with a value", ret)
	}
	if c, ok := ret.Args[0].(*ir.Const); !ok || c.Value != 0 {
		t.Errorf("implicit return value = %v, want 0", ret.Args[0])
	}
}

func TestShortCircuitSkipsCall(t *testing.T) {
	prog := mustLower(t, "int f(void); int main(void){ return 0 && f(); }")
	fn := prog.FindFunc("main")

	want := []string{"start", "logic.rhs.0", "logic.end.1"}
	if diff := cmp.Diff(want, blockLabels(fn)); diff != "" {
		t.Fatalf("block labels mismatch (-want +got):\n%s", diff)
	}

	jnz := lastInstr(fn.Blocks[0])
	if jnz.Op != ir.OpJnz {
		t.Fatalf("entry terminator = %v, want jnz", jnz.Op)
	}
	if c, ok := jnz.Args[0].(*ir.Const); !ok || c.Value != 0 {
		t.Errorf("jnz condition = %v, want constant 0", jnz.Args[0])
	}
	if jnz.Args[2].(*ir.Label).Name != "logic.end.1" {
		t.Errorf("false target = %v, want logic.end.1", jnz.Args[2])
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			if instr.Op == ir.OpCall && b.Label.Name != "logic.rhs.0" {
				t.Errorf("call emitted in block %s, want only in logic.rhs.0", b.Label.Name)
			}
		}
	}
	phi := findBlock(fn, "logic.end.1").Instructions[0]
	if phi.Op != ir.OpPhi || len(phi.Args) != 4 {
		t.Errorf("logic.end.1 starts with %+v, want a two-way phi", phi)
	}
}

// instrs returns every instruction of fn with the given op, in order.
func instrs(fn *ir.Func, op ir.Op) []*ir.Instruction {
	var out []*ir.Instruction
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			if instr.Op == op {
				out = append(out, instr)
			}
		}
	}
	return out
}

func TestPointerArithmeticScales(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		op    ir.Op
		scale int64
	}{
		{"int pointer plus variable", "int *f(int *p, long n){ return p + n; }", ir.OpMul, 4},
		{"variable plus struct pointer", "struct pair { long a; long b; }; struct pair *f(struct pair *p, int n){ return n + p; }", ir.OpMul, 16},
		{"int pointer minus constant", "int *f(int *p){ return p - 3; }", ir.OpSub, 12},
		{"long pointer difference", "long f(long *a, long *b){ return a - b; }", ir.OpDiv, 8},
		{"int pointer difference", "long f(int *a, int *b){ return a - b; }", ir.OpDiv, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := mustLower(t, tt.src).FindFunc("f")
			found := instrs(fn, tt.op)
			if len(found) != 1 {
				t.Fatalf("got %d %v instructions, want 1", len(found), tt.op)
			}
			c, ok := found[0].Args[1].(*ir.Const)
			if !ok || c.Value != tt.scale {
				t.Errorf("%v operand = %v, want constant %d", tt.op, found[0].Args[1], tt.scale)
			}
		})
	}
}

func TestCharPointerDifferenceIsNotDivided(t *testing.T) {
	fn := mustLower(t, "long f(char *a, char *b){ return a - b; }").FindFunc("f")
	if got := instrs(fn, ir.OpDiv); len(got) != 0 {
		t.Errorf("char pointer difference emitted %d divisions, want 0", len(got))
	}
	if got := instrs(fn, ir.OpSub); len(got) != 1 {
		t.Errorf("char pointer difference emitted %d subtractions, want 1", len(got))
	}
}

func TestInvalidPointerOperands(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "pointer plus pointer",
			src:  "int *f(int *a, int *b){ return a + b; }",
			want: "invalid operands to binary expression ('int *' and 'int *')",
		},
		{
			name: "pointer minus struct",
			src:  "struct s { int a; }; long f(int *p, struct s v){ return p - v; }",
			want: "invalid operands to binary expression ('int *' and 'struct s')",
		},
		{
			name: "struct plus pointer",
			src:  "struct s { int a; }; long f(int *p, struct s v){ return v + p; }",
			want: "invalid operands to binary expression ('struct s' and 'int *')",
		},
		{
			name: "incompatible pointer difference",
			src:  "long f(int *a, char *b){ return a - b; }",
			want: "'int *' and 'char *' are not pointers to compatible types",
		},
		{
			name: "difference of incomplete pointers",
			src:  "struct s; long f(struct s *a, struct s *b){ return a - b; }",
			want: "arithmetic on a pointer to an incomplete type 'struct s'",
		},
		{
			name: "incomplete pointer plus integer",
			src:  "struct s; struct s *f(struct s *a){ return a + 1; }",
			want: "arithmetic on a pointer to an incomplete type 'struct s'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lower(t, tt.src)
			var ce *util.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("Generate error = %v, want %q", err, tt.want)
			}
			if ce.Msg != tt.want {
				t.Errorf("message = %q, want %q", ce.Msg, tt.want)
			}
		})
	}
}

func TestCompoundAssignmentEvaluatesAddressOnce(t *testing.T) {
	prog := mustLower(t, "int *p(void); int main(void){ *p() += 1; return 0; }")
	fn := prog.FindFunc("main")
	if got := len(instrs(fn, ir.OpCall)); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	loads, stores := instrs(fn, ir.OpLoad), instrs(fn, ir.OpStore)
	if len(loads) != 1 || len(stores) != 1 {
		t.Fatalf("got %d loads and %d stores, want 1 and 1", len(loads), len(stores))
	}
	if loads[0].Args[0] != stores[0].Args[1] {
		t.Errorf("load from %v but store to %v, want the same address", loads[0].Args[0], stores[0].Args[1])
	}
}

func TestControlFlowShapes(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		blocks []string
		// block whose conditional branch is checked, and its two targets
		branch, ifTrue, ifFalse string
	}{
		{
			name:    "ternary",
			src:     "int f(int x){ return x ? 2 : 3; }",
			blocks:  []string{"start", "cond.then.0", "cond.else.1", "cond.end.2"},
			branch:  "start",
			ifTrue:  "cond.then.0",
			ifFalse: "cond.else.1",
		},
		{
			name:    "for loop",
			src:     "int f(int n){ int i; int s; s = 0; for (i = 0; i < n; i++) s += i; return s; }",
			blocks:  []string{"start", "for.cond.0", "for.body.1", "for.post.2", "for.end.3"},
			branch:  "for.cond.0",
			ifTrue:  "for.body.1",
			ifFalse: "for.end.3",
		},
		{
			name:    "do while loop",
			src:     "int f(int n){ do { n--; } while (n > 0); return n; }",
			blocks:  []string{"start", "do.body.0", "do.cond.1", "do.end.2"},
			branch:  "do.cond.1",
			ifTrue:  "do.body.0",
			ifFalse: "do.end.2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustLower(t, tt.src)
			fn := prog.FindFunc("f")
			if diff := cmp.Diff(tt.blocks, blockLabels(fn)); diff != "" {
				t.Fatalf("block labels mismatch (-want +got):\n%s", diff)
			}
			jnz := lastInstr(findBlock(fn, tt.branch))
			if jnz.Op != ir.OpJnz {
				t.Fatalf("%s ends in %v, want jnz", tt.branch, jnz.Op)
			}
			got := []string{jnz.Args[1].(*ir.Label).Name, jnz.Args[2].(*ir.Label).Name}
			if diff := cmp.Diff([]string{tt.ifTrue, tt.ifFalse}, got); diff != "" {
				t.Errorf("branch targets mismatch (-want +got):\n%s", diff)
			}
			if err := prog.Verify(); err != nil {
				t.Errorf("Verify: %v", err)
			}
		})
	}
}

func TestTernaryJoinsArmsWithPhi(t *testing.T) {
	fn := mustLower(t, "int f(int x){ return x ? 2 : 3; }").FindFunc("f")
	for _, arm := range []string{"cond.then.0", "cond.else.1"} {
		last := lastInstr(findBlock(fn, arm))
		if last.Op != ir.OpJmp || last.Args[0].(*ir.Label).Name != "cond.end.2" {
			t.Errorf("%s ends in %+v, want jmp @cond.end.2", arm, last)
		}
	}
	phi := findBlock(fn, "cond.end.2").Instructions[0]
	if phi.Op != ir.OpPhi || len(phi.Args) != 4 {
		t.Fatalf("cond.end.2 starts with %+v, want a two-way phi", phi)
	}
	if c, ok := phi.Args[1].(*ir.Const); !ok || c.Value != 2 {
		t.Errorf("then value = %v, want 2", phi.Args[1])
	}
	if c, ok := phi.Args[3].(*ir.Const); !ok || c.Value != 3 {
		t.Errorf("else value = %v, want 3", phi.Args[3])
	}
}

func TestForPostJumpsBackToCondition(t *testing.T) {
	fn := mustLower(t, "int f(int n){ int i; for (i = 0; i < n; i++) ; return i; }").FindFunc("f")
	last := lastInstr(findBlock(fn, "for.post.2"))
	if last.Op != ir.OpJmp || last.Args[0].(*ir.Label).Name != "for.cond.0" {
		t.Errorf("for.post.2 ends in %+v, want jmp @for.cond.0", last)
	}
}

func TestCodeAfterReturnGoesToDeadBlock(t *testing.T) {
	warnings := captureWarnings(t)
	prog := mustLower(t, "int main(void){ return 1; return 2; }")
	fn := prog.FindFunc("main")

	if diff := cmp.Diff([]string{"start", "dead.0"}, blockLabels(fn)); diff != "" {
		t.Errorf("block labels mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(warnings.String(), "code will never be executed") {
		t.Errorf("missing unreachable-code warning, got %q", warnings.String())
	}
}

func TestGotoTargetsUserLabel(t *testing.T) {
	prog := mustLower(t, `
int main(void) {
	int i;
	i = 0;
again:
	i = i + 1;
	if (i < 3)
		goto again;
	return i;
}`)
	fn := prog.FindFunc("main")
	if findBlock(fn, "label.again") == nil {
		t.Fatalf("no block for label 'again' in %v", blockLabels(fn))
	}
	var jumps int
	for _, b := range fn.Blocks {
		last := lastInstr(b)
		if last.Op == ir.OpJmp && last.Args[0].(*ir.Label).Name == "label.again" {
			jumps++
		}
	}
	// One fallthrough into the label, one goto.
	if jumps != 2 {
		t.Errorf("jumps to label.again = %d, want 2", jumps)
	}
}

func TestSwitchBranchesToCases(t *testing.T) {
	prog := mustLower(t, `
int main(void) {
	int x;
	x = 2;
	switch (x) {
	case 1:
		return 10;
	case 2:
		return 20;
	default:
		break;
	}
	return 0;
}`)
	fn := prog.FindFunc("main")
	var cases, compares int
	for _, b := range fn.Blocks {
		if strings.HasPrefix(b.Label.Name, "switch.case.") {
			cases++
		}
		for _, instr := range b.Instructions {
			if instr.Op == ir.OpCEq {
				compares++
			}
		}
	}
	if cases != 2 || compares != 2 {
		t.Errorf("got %d case blocks and %d compares, want 2 and 2", cases, compares)
	}
}

func TestWhileLoopShape(t *testing.T) {
	prog := mustLower(t, "int main(void){ int i; i = 0; while (i < 10) { i++; if (i == 5) break; } return i; }")
	fn := prog.FindFunc("main")
	cond := findBlock(fn, "while.cond.0")
	if cond == nil {
		t.Fatalf("missing loop header in %v", blockLabels(fn))
	}
	if op := lastInstr(cond).Op; op != ir.OpJnz {
		t.Errorf("loop header ends in %v, want jnz", op)
	}
	if err := prog.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestStaticLocalBecomesPrivateData(t *testing.T) {
	prog := mustLower(t, "int counter(void){ static int n = 5; return n++; }")
	want := []*ir.Data{{
		Name:  "counter.n.1",
		Align: 4,
		Items: []ir.DataItem{{Typ: ir.TypeW, Value: &ir.Const{Value: 5}}},
	}}
	if diff := cmp.Diff(want, prog.Globals); diff != "" {
		t.Errorf("globals mismatch (-want +got):\n%s", diff)
	}
}

func TestTentativeDefinitionIsZeroFilled(t *testing.T) {
	prog := mustLower(t, "long g; extern int e; int main(void){ return 0; }")
	want := []*ir.Data{{
		Name:   "g",
		Export: true,
		Align:  8,
		Items:  []ir.DataItem{{Count: 8}},
	}}
	if diff := cmp.Diff(want, prog.Globals); diff != "" {
		t.Errorf("globals mismatch (-want +got):\n%s", diff)
	}
}

func TestStringLiteralData(t *testing.T) {
	prog := mustLower(t, `int puts(const char *s); int main(void){ puts("hi\n"); return 0; }`)
	got, err := NewQBEBackend().GenerateIR(prog, config.NewConfig())
	if err != nil {
		t.Fatalf("GenerateIR failed: %v", err)
	}
	if !strings.Contains(got, `data $str.0 = { b "hi", b 10, b 0 }`) {
		t.Errorf("string data not found in:\n%s", got)
	}
	if !strings.Contains(got, "call $puts(l $str.0)") {
		t.Errorf("call not found in:\n%s", got)
	}
}

func TestVariadicCallMarksFixedArguments(t *testing.T) {
	prog := mustLower(t, `int printf(const char *fmt, ...); int main(void){ printf("%d", 1); return 0; }`)
	got, err := NewQBEBackend().GenerateIR(prog, config.NewConfig())
	if err != nil {
		t.Fatalf("GenerateIR failed: %v", err)
	}
	if !strings.Contains(got, "call $printf(l $str.0, ..., w 1)") {
		t.Errorf("variadic call not found in:\n%s", got)
	}
}

func TestStructAggregateType(t *testing.T) {
	prog := mustLower(t, `
struct point { int x; char c; long y; };
long gety(struct point *p) { return p->y; }`)
	if len(prog.AggTypes) != 0 {
		t.Errorf("member access through a pointer declared %d aggregate types, want 0", len(prog.AggTypes))
	}
	fn := prog.FindFunc("gety")
	var offset int64 = -1
	for _, instr := range fn.Blocks[0].Instructions {
		if instr.Op == ir.OpAdd {
			offset = instr.Args[1].(*ir.Const).Value
		}
	}
	if offset != 8 {
		t.Errorf("offset of 'y' = %d, want 8", offset)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "too few arguments",
			src:  "int f(int a, int b); int main(void){ return f(1); }",
			want: "too few arguments to function call, expected 2, have 1",
		},
		{
			name: "too many arguments",
			src:  "int f(int a); int main(void){ return f(1, 2); }",
			want: "too many arguments to function call, expected 1, have 2",
		},
		{
			name: "unknown member",
			src:  "struct s { int a; }; int main(void){ struct s v; return v.b; }",
			want: "no member named 'b' in 'struct s'",
		},
		{
			name: "assignment to a constant",
			src:  "int main(void){ 1 = 2; return 0; }",
			want: "expression is not assignable",
		},
		{
			name: "address of an rvalue",
			src:  "int main(void){ int *p; p = &(1 + 2); return 0; }",
			want: "cannot take the address of an rvalue",
		},
		{
			name: "void function returning a value",
			src:  "void f(void){ return 1; }",
			want: "void function 'f' should not return a value",
		},
		{
			name: "duplicate case",
			src:  "int main(void){ int x; x = 0; switch (x) { case 1: case 1: break; } return 0; }",
			want: "duplicate case value '1'",
		},
		{
			name: "constant division by zero",
			src:  "int g = 1 / 0;",
			want: "division by zero in constant expression",
		},
		{
			name: "division by zero on the evaluated side of ||",
			src:  "int g = 0 || 1 / 0;",
			want: "division by zero in constant expression",
		},
		{
			name: "non-constant global initializer",
			src:  "int f(void); int g = f();",
			want: "initializer element is not a compile-time constant",
		},
		{
			name: "long double",
			src:  "long double x;",
			want: "'long double' is not supported by the QBE backend",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lower(t, tt.src)
			if err == nil {
				t.Fatalf("Generate succeeded, want error %q", tt.want)
			}
			var ce *util.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error %v is not a *util.CompileError", err)
			}
			if ce.Category != util.Semantic {
				t.Errorf("category = %v, want semantic", ce.Category)
			}
			if ce.Msg != tt.want {
				t.Errorf("message = %q, want %q", ce.Msg, tt.want)
			}
		})
	}
}

func TestCaseLabelSkipsUnevaluatedDivision(t *testing.T) {
	src := "int f(int x){ switch (x) { case 1 || 1 / 0: return 1; case 0 && 1 / 0: return 2; } return 0; }"
	if err := mustLower(t, src).Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"int g = 1 + 2 * 3;", 7},
		{"int g = (1 << 4) | 1;", 17},
		{"int g = -7 / 2;", -3},
		{"int g = -7 % 2;", -1},
		{"unsigned g = -1;", 4294967295},
		{"int g = sizeof(long) == 8 ? 42 : 0;", 42},
		{"char g = 300;", 44},
		{"int g = !0 + ~0;", 0},
		{"int g = 1 ? 2 : 1 / 0;", 2},
		{"int g = 0 ? 1 % 0 : 5;", 5},
		{"int g = 0 && 1 / 0;", 0},
		{"int g = 1 || 1 / 0;", 1},
	}
	captureWarnings(t)
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			prog := mustLower(t, tt.src)
			item := prog.Globals[0].Items[0]
			c, ok := item.Value.(*ir.Const)
			if !ok {
				t.Fatalf("initializer = %v, want a constant", item.Value)
			}
			if c.Value != tt.want {
				t.Errorf("value = %d, want %d", c.Value, tt.want)
			}
		})
	}
}

package printer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/lexer"
	"github.com/xplshn/xcc/pkg/parser"
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

var roundTripSeeds = []string{
	"int main(void){return 0;}",
	"int f(int n){ if (n <= 1) return 1; return n * f(n - 1); }",
	"struct s { int a; struct s *next; };",
	"union u { int i; char c; } value; struct p { long x, y; };",
	"int (*fp)(int, char *); int (*pick(int k))(int, char *){ return k ? fp : 0; }",
	"int printf(const char *fmt, ...); int main(void){ printf(\"%d\\n\" \"done\", 42); return 0; }",
	"static int counter; extern int shared; const volatile int *const p;",
	`long g(long a, unsigned b){
		long r = 0;
		r += (long)(char)a * sizeof(int) + sizeof r;
		r = -(-a) - - b + ~b + !a;
		r = a < b ? a : b == 0 ? 1 : 2;
		r <<= 1, r >>= 2;
		return r;
	}`,
	`struct node { int v; struct node *left, *right; };
	int sum(struct node *n){
		if (!n)
			return 0;
		else if (n->left == 0 && n->right == 0)
			return n->v;
		else
			return n->v + sum(n->left) + sum(n->right);
	}`,
	`int loops(int n){
		int s = 0;
		for (int i = 0; i < n; i++) { if (i % 2) continue; s += i; }
		for (;;) break;
		while (n--) s++;
		do { s--; } while (s > 100);
		do s++; while (0);
		return s;
	}`,
	`int classify(int c){
		switch (c) {
		case 'a':
		case '\n':
			return 1;
		default:
			break;
		}
		goto out;
	out:
		return 0;
	}`,
	"int *deref(int **pp){ int x = **pp; *pp = &x; (*pp)++; ++*pp; return *pp; }",
	"struct pt { int x; }; int getx(struct pt v, struct pt *w){ return v.x + w->x + (&v)->x; }",
	"double d = 1.5; float f = 2.0f; char c = 'x';",
	"int ((paren))(int (x)); void (*signal_like(int, void (*)(int)))(int);",
}

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	cfg := config.NewConfig()
	toks, errs := lexer.Tokenize([]rune(src), 0, cfg)
	if len(errs) > 0 {
		t.Fatalf("tokenize %q: %v", src, errs[0])
	}
	root, err := parser.NewParser(toks, cfg).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return root
}

// Semantic annotations differ between two parses; only the syntax is
// compared.
var syntaxOnly = cmp.Options{
	cmpopts.IgnoreTypes(token.Token{}, (*types.Type)(nil), (*types.Tag)(nil), (*scope.Function)(nil), (*scope.Variable)(nil)),
	cmpopts.IgnoreInterfaces(struct{ scope.Entity }{}),
}

func TestRoundTrip(t *testing.T) {
	for _, src := range roundTripSeeds {
		first := parse(t, src)
		printed := Print(first)
		second := parse(t, printed)
		if diff := cmp.Diff(first, second, syntaxOnly); diff != "" {
			t.Errorf("round trip changed the tree for %q\nprinted:\n%s\ndiff (-first +second):\n%s", src, printed, diff)
		}
		if again := Print(second); again != printed {
			t.Errorf("printing is not stable:\nfirst:\n%s\nsecond:\n%s", printed, again)
		}
	}
}

func TestPrintLayout(t *testing.T) {
	src := "int f(int a){ if (a) { return 1; } else return 2; while (a) a--; }"
	want := `int f(int a) {
    if (a) {
        return 1;
    } else
        return 2;
    while (a)
        a--;
}
`
	if got := Print(parse(t, src)); got != want {
		t.Errorf("Print mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestPrintTabs(t *testing.T) {
	root := parse(t, "void f(void){ ; }")
	var sb strings.Builder
	if err := Fprint(&sb, root, Options{UseTabs: true}); err != nil {
		t.Fatal(err)
	}
	if want := "void f(void) {\n\t;\n}\n"; sb.String() != want {
		t.Errorf("got %q, want %q", sb.String(), want)
	}
}

func TestUnaryOperatorsStaySeparate(t *testing.T) {
	tests := []struct{ op, operand, want string }{
		{"-", "-x", "- -x"},
		{"-", "--x", "- --x"},
		{"+", "+x", "+ +x"},
		{"-", "x", "-x"},
		{"!", "!x", "!!x"},
		{"*", "*p", "**p"},
	}
	for _, tt := range tests {
		if got := joinOperator(tt.op, tt.operand); got != tt.want {
			t.Errorf("joinOperator(%q, %q) = %q, want %q", tt.op, tt.operand, got, tt.want)
		}
	}
}

package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/lexer"
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
	"github.com/xplshn/xcc/pkg/util"
)

func parseSource(t *testing.T, cfg *config.Config, src string) (*ast.Node, *Parser, error) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	toks, lexErrs := lexer.Tokenize([]rune(src), 0, cfg)
	if len(lexErrs) > 0 {
		t.Fatalf("unexpected lexical error: %v", lexErrs[0])
	}
	p := NewParser(toks, cfg)
	root, err := p.Parse()
	return root, p, err
}

func mustParse(t *testing.T, src string) (*ast.Node, *Parser) {
	t.Helper()
	root, p, err := parseSource(t, nil, src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return root, p
}

func topDecls(root *ast.Node) []*ast.Node {
	return root.Data.(ast.TranslationUnitNode).Decls
}

func TestMinimalMain(t *testing.T) {
	root, p := mustParse(t, "int main(void){return 0;}")
	decls := topDecls(root)
	if len(decls) != 1 || decls[0].Type != ast.FuncDef {
		t.Fatalf("want one function definition, got %d decls", len(decls))
	}
	def := decls[0].Data.(ast.FuncDefNode)
	if def.Func.Name != "main" || !def.Func.Defined {
		t.Errorf("main entity = %+v, want defined 'main'", def.Func)
	}
	if got := def.Func.Type.String(); got != "int (void)" {
		t.Errorf("main type = %q, want %q", got, "int (void)")
	}
	if len(def.Params) != 0 {
		t.Errorf("main(void) bound %d parameters", len(def.Params))
	}
	if p.Scopes().Depth() != 1 {
		t.Errorf("scope depth after parse = %d, want 1", p.Scopes().Depth())
	}
}

func TestRecursiveCallSeesItsOwnFunction(t *testing.T) {
	root, _ := mustParse(t, `
int f(int n) {
	if (n <= 1)
		return 1;
	return n * f(n - 1);
}`)
	def := topDecls(root)[0].Data.(ast.FuncDefNode)

	var callee scope.Entity
	ast.Inspect(def.Body, func(n *ast.Node) bool {
		if n.Type == ast.Call {
			callee = n.Data.(ast.CallNode).Func.Data.(ast.IdentNode).Entity
		}
		return true
	})
	if callee != scope.Entity(def.Func) {
		t.Fatalf("recursive call resolved to %v, want the function being defined", callee)
	}
	if len(def.Params) != 1 || def.Params[0].Name != "n" || !def.Params[0].Param {
		t.Fatalf("unexpected parameters %+v", def.Params)
	}
}

func TestSelfReferentialStruct(t *testing.T) {
	root, p := mustParse(t, "struct s { int a; struct s *next; };")
	decl := topDecls(root)[0].Data.(ast.DeclNode)
	tag := decl.Specs.Type.Tag
	if tag == nil || !tag.IsComplete() {
		t.Fatal("struct s should be complete after its body")
	}

	var names []string
	for _, f := range tag.Fields {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"a", "next"}, names); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	next, _ := tag.Field("next")
	if !next.Type.IsPointer() || next.Type.Elem.Tag != tag {
		t.Errorf("next has type %s, want pointer to the same tag", next.Type)
	}
	if got, ok := p.Scopes().Global().LookupTag("s"); !ok || got != tag {
		t.Error("tag s is not registered in the global scope")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		cat  util.Category
		msg  string
	}{
		{"undefined label", "void g(void){ goto nowhere; }", util.Semantic, "label 'nowhere' used but not defined"},
		{"break outside loop", "void h(void){ break; }", util.Semantic, "'break' statement not in loop or switch statement"},
		{"variable redefinition", "int x; int x;", util.Semantic, "redefinition of 'x'"},
		{"continue outside loop", "void f(void){ switch (1) { continue; } }", util.Semantic, "'continue' statement not in loop statement"},
		{"case outside switch", "void f(void){ case 1: ; }", util.Semantic, "'case' statement not in switch statement"},
		{"default outside switch", "void f(void){ default: ; }", util.Semantic, "'default' statement not in switch statement"},
		{"two defaults", "void f(int x){ switch (x) { default: ; default: ; } }", util.Semantic, "multiple default labels"},
		{"duplicate label", "void f(void){ a: ; a: ; }", util.Semantic, "redefinition of label 'a'"},
		{"function redefinition", "int f(void){return 0;} int f(void){return 1;}", util.Semantic, "redefinition of 'f'"},
		{"variable then function", "int f; int f(void);", util.Semantic, "'f' redeclared as different kind of symbol"},
		{"function then variable", "int f(void); int f;", util.Semantic, "'f' redeclared as different kind of symbol"},
		{"conflicting prototypes", "int f(int); int f(char);", util.Semantic, "conflicting types for 'f'"},
		{"incomplete object", "struct t x;", util.Semantic, "variable 'x' has incomplete type 'struct t'"},
		{"incomplete field", "struct s { struct s inner; };", util.Semantic, "field 'inner' has incomplete type 'struct s'"},
		{"struct redefinition", "struct s { int a; }; struct s { int b; };", util.Semantic, "redefinition of 'struct s'"},
		{"duplicate member", "struct s { int a; char a; };", util.Semantic, "duplicate member 'a'"},
		{"tag kind mismatch", "struct s { int a; }; union s *u;", util.Semantic, "does not match previous declaration"},
		{"undeclared identifier", "int f(void){ return y; }", util.Semantic, "use of undeclared identifier 'y'"},
		{"void variable", "void v;", util.Semantic, "variable 'v' declared void"},
		{"bad specifiers", "long char c;", util.Semantic, "invalid combination of type specifiers"},
		{"typedef", "typedef int T;", util.Semantic, "'typedef' is not supported"},
		{"arrays", "int a[3];", util.Semantic, "arrays are not supported"},
		{"named void parameter", "int f(void v);", util.Semantic, "parameter 'v' has incomplete type 'void'"},
		{"void among parameters", "int f(int, void);", util.Semantic, "'void' must be the first and only parameter"},
		{"unnamed parameter in definition", "int f(int){ return 0; }", util.Semantic, "parameter 1 of 'f' has no name"},
		{"missing semicolon", "int main(void){ return 0 }", util.Syntax, "expected ';' after return statement, got punctuator '}'"},
		{"missing statement after label", "void f(void){ l: }", util.Syntax, "expected statement, got punctuator '}'"},
		{"unterminated block", "void f(void){ ", util.Syntax, "expected '}' to close block, got end of file"},
		{"nothing declared", "int;", util.Semantic, "declaration does not declare anything"},
		{"inner forward declaration hides outer tag", "struct s { int a; }; void f(void){ struct s; struct s x; }", util.Semantic, "variable 'x' has incomplete type 'struct s'"},
		{"block redefinition", "void f(void){ int a; { int a; } char a; }", util.Semantic, "redefinition of 'a'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p, err := parseSource(t, nil, tt.src)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error containing %q", tt.src, tt.msg)
			}
			var ce *util.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error %v is not a *util.CompileError", err)
			}
			if ce.Category != tt.cat {
				t.Errorf("category = %s, want %s", ce.Category, tt.cat)
			}
			if !strings.Contains(ce.Msg, tt.msg) {
				t.Errorf("message = %q, want it to contain %q", ce.Msg, tt.msg)
			}
			if d := p.Scopes().Depth(); d != 1 {
				t.Errorf("scope depth after error = %d, want 1", d)
			}
		})
	}
}

func TestAcceptedDeclarations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"prototype then definition", "int f(int); int f(int a){ return a; }"},
		{"repeated prototype", "int f(void); int f(void); int f();"},
		{"pointer to incomplete struct", "struct t *p;"},
		{"struct completed later", "struct t *p; struct t { int v; }; int g(void){ return p->v; }"},
		{"extern then definition", "extern int x; int x;"},
		{"forward goto", "void f(void){ goto done; done: ; }"},
		{"continue in switch in loop", "void f(int x){ while (x) { switch (x) { case 1: continue; } } }"},
		{"break in switch", "void f(int x){ switch (x) { case 1: break; default: break; } }"},
		{"shadowing", "int a; void f(void){ char a; { long a; } }"},
		{"for declaration", "int f(void){ int s = 0; for (int i = 0; i < 3; i++) s += i; return s; }"},
		{"function pointer", "int (*fp)(int, char *); int (*pick(int k))(int, char *){ return fp; }"},
		{"variadic prototype", "int printf(const char *fmt, ...);"},
		{"block scope prototype", "void f(void){ int g(int); g(1); }"},
		{"unions", "union u { int i; char c; }; union u v;"},
		{"casts and sizeof", "long f(void){ return sizeof(int) + sizeof 1 + (long)(char)3; }"},
		{"string concatenation", `char *s = "a" "b";`},
		{"static and extern", "static int counter; int next(void){ static int n; extern int counter; return ++n + counter; }"},
		{"qualifiers", "const volatile int *const p;"},
		{"do while", "void f(int n){ do n--; while (n > 0); }"},
		{"inner forward declaration ends with its block", "struct s { int a; }; void f(void){ { struct s; } struct s v; v.a = 1; }"},
		{"comma and ternary", "int f(int a){ return a ? a, 1 : 2; }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p, err := parseSource(t, nil, tt.src)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.src, err)
			}
			if d := p.Scopes().Depth(); d != 1 {
				t.Errorf("scope depth after parse = %d, want 1", d)
			}
		})
	}
}

// shape renders an expression as a fully parenthesized string.
func shape(n *ast.Node) string {
	switch d := n.Data.(type) {
	case ast.IdentNode:
		return d.Name
	case ast.NumberNode:
		return d.Text
	case ast.BinaryOpNode:
		return "(" + shape(d.Left) + " " + d.Op.String() + " " + shape(d.Right) + ")"
	case ast.AssignNode:
		return "(" + shape(d.Lhs) + " " + d.Op.String() + " " + shape(d.Rhs) + ")"
	case ast.TernaryNode:
		return "(" + shape(d.Cond) + " ? " + shape(d.Then) + " : " + shape(d.Else) + ")"
	case ast.UnaryOpNode:
		return "(" + d.Op.String() + shape(d.Expr) + ")"
	case ast.PostfixOpNode:
		return "(" + shape(d.Expr) + d.Op.String() + ")"
	case ast.ParenNode:
		return shape(d.Expr)
	case ast.CastNode:
		return "(cast " + d.Type.Type.String() + " " + shape(d.Expr) + ")"
	case ast.CommaNode:
		return "(" + shape(d.Left) + ", " + shape(d.Right) + ")"
	}
	return "?"
}

func TestExpressionShape(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a - b - c", "((a - b) - c)"},
		{"a = b = c", "(a = (b = c))"},
		{"a || b && c", "(a || (b && c))"},
		{"a < b == c > b", "((a < b) == (c > b))"},
		{"a ? b : c ? a : b", "(a ? b : (c ? a : b))"},
		{"a += b << 1 | c", "(a += ((b << 1) | c))"},
		{"-a * !b", "((-a) * (!b))"},
		{"(char)a + b", "((cast char a) + b)"},
		{"(a) + b", "(a + b)"},
		{"*p++", "(*(p++))"},
		{"a & b ^ c", "((a & b) ^ c)"},
		{"a, b = c", "(a, (b = c))"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			src := "int a, b, c; int *p; void f(void){ " + tt.expr + "; }"
			root, _ := mustParse(t, src)
			decls := topDecls(root)
			body := decls[len(decls)-1].Data.(ast.FuncDefNode).Body.Data.(ast.BlockNode)
			got := shape(body.Items[0].Data.(ast.ExprStmtNode).Expr)
			if got != tt.want {
				t.Errorf("shape(%q) = %s, want %s", tt.expr, got, tt.want)
			}
		})
	}
}

func TestIntegerConstantTypes(t *testing.T) {
	tests := []struct {
		text string
		want types.Kind
	}{
		{"0", types.Int},
		{"2147483647", types.Int},
		{"2147483648", types.Long},
		{"0x7fffffff", types.Int},
		{"0xffffffff", types.UInt},
		{"1u", types.UInt},
		{"1l", types.Long},
		{"1ul", types.ULong},
		{"1ll", types.LongLong},
		{"0xffffffffffffffff", types.ULong},
		{"4294967296u", types.ULong},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			root, _ := mustParse(t, "long v = "+tt.text+";")
			init := topDecls(root)[0].Data.(ast.DeclNode).Inits[0].Init
			got := init.Data.(ast.NumberNode).Type
			if got.Kind != tt.want {
				t.Errorf("type of %s = %s, want kind %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestDeclaratorTypes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"int *p;", "int *"},
		{"char **pp;", "char * *"},
		{"int (*fp)(int);", "int (*)(int)"},
		{"int ((x));", "int"},
		{"unsigned long *(*g)(void);", "unsigned long * (*)(void)"},
		{"int f(int, char *, ...);", "int (int, char *, ...)"},
		{"int h();", "int (void)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			root, _ := mustParse(t, tt.src)
			got := topDecls(root)[0].Data.(ast.DeclNode).Inits[0].Entity.EntityType().String()
			if got != tt.want {
				t.Errorf("type of %q = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestFeatureGates(t *testing.T) {
	tests := []struct {
		name    string
		feature config.Feature
		src     string
		msg     string
	}{
		{"mixed declarations", config.FeatMixedDecls, "void f(void){ ; int x; }", "-Fno-mixed-decls"},
		{"for declaration", config.FeatForDecl, "void f(void){ for (int i = 0; i < 1; i++) ; }", "-Fno-for-decl"},
		{"bool", config.FeatBool, "_Bool b;", "-Fno-bool"},
		{"long long", config.FeatLongLong, "long long v;", "-Fno-long-long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			if _, _, err := parseSource(t, cfg, tt.src); err != nil {
				t.Fatalf("enabled feature rejected %q: %v", tt.src, err)
			}
			cfg.SetFeature(tt.feature, false)
			_, _, err := parseSource(t, cfg, tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("disabled feature: got %v, want error mentioning %s", err, tt.msg)
			}
		})
	}
}

func TestInvalidTokenRejectedBeforeParsing(t *testing.T) {
	cfg := config.NewConfig()
	toks, _ := lexer.Tokenize([]rune("int x = 1 @ 2;"), 0, cfg)
	_, err := NewParser(toks, cfg).Parse()
	var ce *util.CompileError
	if !errors.As(err, &ce) || ce.Category != util.Lexical {
		t.Fatalf("got %v, want a lexical error", err)
	}
	if ce.Tok.Type != token.Invalid {
		t.Errorf("error points at %v, want the invalid token", ce.Tok)
	}
}

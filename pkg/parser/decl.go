package parser

import (
	"github.com/xplshn/xcc/pkg/ast"
	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/scope"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

type declMode int

const (
	declConcrete declMode = iota // must name an identifier
	declAbstract                 // must not name one
	declEither                   // parameter declarations
)

// isDeclStart reports whether the current token begins a declaration.
func (p *Parser) isDeclStart() bool {
	t := p.current.Type
	return t.IsTypeSpecifier() || t.IsQualifier() || t.IsStorageClass() ||
		t == token.Struct || t == token.Union || t == token.Enum ||
		t == token.Alignas || t == token.StaticAssert
}

// parseDeclSpecs parses a declaration-specifier sequence and resolves its
// type. It returns nil without consuming anything if the current token
// cannot start one.
func (p *Parser) parseDeclSpecs(allowStorage bool) *ast.DeclSpecs {
	specs := &ast.DeclSpecs{Storage: token.EOF}
	var words []token.Type
	var record *ast.RecordSpec

	for done := false; !done; {
		tok := p.current
		switch t := tok.Type; {
		case t == token.Typedef:
			p.semanticError(tok, "'typedef' is not supported")
		case t == token.ThreadLocal:
			p.semanticError(tok, "'_Thread_local' is not supported")
		case t == token.Enum:
			p.semanticError(tok, "enumerations are not supported")
		case t == token.Alignas, t == token.StaticAssert:
			p.semanticError(tok, "'%s' is not supported", t)
		case t == token.Inline, t == token.Noreturn:
			if !allowStorage {
				p.semanticError(tok, "'%s' is not allowed here", t)
			}
			p.advance()
			specs.Items = append(specs.Items, ast.Specifier{Kind: t, Tok: tok})
		case t.IsStorageClass():
			if !allowStorage {
				p.semanticError(tok, "storage class '%s' is not allowed here", t)
			}
			if specs.Storage != token.EOF {
				p.semanticError(tok, "multiple storage classes in declaration specifiers")
			}
			p.advance()
			specs.Storage = t
			specs.Items = append(specs.Items, ast.Specifier{Kind: t, Tok: tok})
		case t.IsQualifier():
			p.advance()
			specs.Items = append(specs.Items, ast.Specifier{Kind: t, Tok: tok})
		case t == token.Struct, t == token.Union:
			if record != nil || len(words) > 0 {
				p.semanticError(tok, "cannot combine '%s' with previous type specifier", t)
			}
			p.advance()
			record = p.parseRecordSpec(tok)
			specs.Items = append(specs.Items, ast.Specifier{Kind: t, Tok: tok, Record: record})
		case t.IsTypeSpecifier():
			if record != nil {
				p.semanticError(tok, "cannot combine '%s' with previous type specifier", t)
			}
			p.checkSpecifierFeature(tok, words)
			p.advance()
			words = append(words, t)
			specs.Items = append(specs.Items, ast.Specifier{Kind: t, Tok: tok})
		default:
			done = true
		}
	}

	if len(specs.Items) == 0 {
		return nil
	}
	if record != nil {
		specs.Type = record.Tag.Type
		return specs
	}
	typ, err := p.universe.Builtin(words)
	if err != nil {
		p.semanticError(specs.Items[0].Tok, "%v", err)
	}
	specs.Type = typ
	return specs
}

func (p *Parser) checkSpecifierFeature(tok token.Token, words []token.Type) {
	switch tok.Type {
	case token.Bool:
		if !p.cfg.IsFeatureEnabled(config.FeatBool) {
			p.semanticError(tok, "'_Bool' is forbidden by the current feature set (-Fno-bool)")
		}
	case token.Long:
		for _, w := range words {
			if w == token.Long && !p.cfg.IsFeatureEnabled(config.FeatLongLong) {
				p.semanticError(tok, "'long long' is forbidden by the current feature set (-Fno-long-long)")
			}
		}
	}
}

// parseRecordSpec parses what follows 'struct' or 'union'.
func (p *Parser) parseRecordSpec(kwTok token.Token) *ast.RecordSpec {
	rec := &ast.RecordSpec{Union: kwTok.Type == token.Union}
	nameTok := kwTok
	if p.match(token.Ident) {
		nameTok = p.previous
		rec.Name = nameTok.Value
	}

	if !p.check(token.LBrace) {
		if rec.Name == "" {
			p.syntaxError("expected identifier or '{' after '" + kwTok.Type.String() + "'")
		}
		// 'struct s;' on its own declares a new tag in the current scope,
		// hiding any outer one.
		lookup := p.scopes.LookupTag
		if p.check(token.Semi) {
			lookup = p.scopes.LookupTagCurrent
		}
		tag, ok := lookup(rec.Name)
		if !ok {
			tag = p.universe.NewTag(rec.Name, rec.Union)
			p.declareTag(nameTok, tag)
		}
		p.checkTagKind(nameTok, tag, rec.Union)
		rec.Tag = tag
		return rec
	}

	// The tag exists before its body so members can point to it.
	var tag *types.Tag
	if rec.Name != "" {
		if prev, ok := p.scopes.LookupTagCurrent(rec.Name); ok {
			p.checkTagKind(nameTok, prev, rec.Union)
			if prev.IsComplete() {
				p.semanticError(nameTok, "redefinition of '%s'", prev)
			}
			tag = prev
		} else {
			tag = p.universe.NewTag(rec.Name, rec.Union)
			p.declareTag(nameTok, tag)
		}
	} else {
		tag = p.universe.NewTag("", rec.Union)
	}
	rec.Tag = tag
	rec.HasBody = true

	p.advance()
	var fields []types.Field
	for !p.match(token.RBrace) {
		if p.check(token.EOF) {
			p.syntaxError("expected '}' to close member list")
		}
		fd, fdFields := p.parseFieldDecl()
		rec.Fields = append(rec.Fields, fd)
		fields = append(fields, fdFields...)
	}
	if err := tag.Complete(p.universe, fields); err != nil {
		p.semanticError(nameTok, "%v", err)
	}
	return rec
}

func (p *Parser) checkTagKind(tok token.Token, tag *types.Tag, union bool) {
	if tag.Union != union {
		p.semanticError(tok, "use of '%s' with tag type that does not match previous declaration", tag.Name)
	}
}

func (p *Parser) parseFieldDecl() (*ast.FieldDecl, []types.Field) {
	specs := p.parseDeclSpecs(false)
	if specs == nil {
		p.syntaxError("expected member declaration")
	}
	if p.check(token.Semi) {
		p.semanticError(p.current, "declaration does not declare anything")
	}

	fd := &ast.FieldDecl{Specs: specs}
	var fields []types.Field
	for {
		d := p.parseDeclarator(declConcrete).Unparen()
		nameTok, _ := d.Identifier()
		typ := p.declaratorType(specs.Type, d)
		if typ.IsFunction() {
			p.semanticError(nameTok, "field '%s' declared as a function", nameTok.Value)
		}
		if !typ.IsComplete() {
			p.semanticError(nameTok, "field '%s' has incomplete type '%s'", nameTok.Value, typ)
		}
		for _, f := range fields {
			if f.Name == nameTok.Value {
				p.semanticError(nameTok, "duplicate member '%s'", nameTok.Value)
			}
		}
		fd.Decls = append(fd.Decls, d)
		fields = append(fields, types.Field{Name: nameTok.Value, Type: typ})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.Semi, "after member declaration")
	return fd, fields
}

func (p *Parser) parseDeclarator(mode declMode) *ast.Declarator {
	d := &ast.Declarator{}
	for p.check(token.Star) {
		ptr := ast.Pointer{Tok: p.current}
		p.advance()
		for p.current.Type.IsQualifier() {
			ptr.Quals = append(ptr.Quals, p.current.Type)
			p.advance()
		}
		d.Pointers = append(d.Pointers, ptr)
	}
	d.Direct = p.parseDirectDeclarator(mode)
	return d
}

// startsParams reports whether a '(' followed by tok opens a parameter list
// rather than a parenthesized declarator.
func startsParams(tok token.Token) bool {
	return tok.Type == token.RParen || isTypeNameStart(tok) || tok.Type.IsStorageClass()
}

func (p *Parser) parseDirectDeclarator(mode declMode) ast.Direct {
	var dir ast.Direct
	switch {
	case p.check(token.Ident):
		if mode == declAbstract {
			p.syntaxError("expected ')' in type name")
		}
		dir = &ast.IdentDeclarator{Name: p.current.Value, Tok: p.current}
		p.advance()
	case p.check(token.LParen) && !(mode != declConcrete && startsParams(p.peek())):
		p.advance()
		inner := p.parseDeclarator(mode)
		p.expect(token.RParen, "to close declarator")
		dir = &ast.ParenDeclarator{Inner: inner}
	case mode == declConcrete:
		p.syntaxError("expected identifier or '('")
	}

	for {
		switch {
		case p.check(token.LParen):
			tok := p.current
			p.advance()
			fd := p.parseParamList(tok)
			fd.Inner = dir
			dir = fd
		case p.check(token.LBracket):
			p.semanticError(p.current, "arrays are not supported")
		default:
			return dir
		}
	}
}

// parseParamList parses a parameter list after its opening parenthesis.
func (p *Parser) parseParamList(tok token.Token) *ast.FuncDeclarator {
	fd := &ast.FuncDeclarator{Tok: tok}
	if p.match(token.RParen) {
		return fd
	}
	for {
		if p.match(token.Dots) {
			if len(fd.Params) == 0 {
				p.semanticError(p.previous, "ISO C requires a named parameter before '...'")
			}
			fd.Variadic = true
			break
		}
		specs := p.parseDeclSpecs(true)
		if specs == nil {
			p.syntaxError("expected parameter declaration")
		}
		if specs.Storage != token.EOF && specs.Storage != token.Register {
			p.semanticError(specs.Items[0].Tok, "invalid storage class for parameter")
		}
		d := p.parseDeclarator(declEither)
		fd.Params = append(fd.Params, &ast.ParamDecl{Specs: specs, Decl: d, Type: p.declaratorType(specs.Type, d)})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "to close parameter list")
	return fd
}

// declaratorType applies the derivations of d to base.
func (p *Parser) declaratorType(base *types.Type, d *ast.Declarator) *types.Type {
	t := base
	for range d.Pointers {
		t = p.universe.PointerTo(t)
	}
	return p.directType(t, d.Direct)
}

func (p *Parser) directType(t *types.Type, dir ast.Direct) *types.Type {
	switch dd := dir.(type) {
	case *ast.ParenDeclarator:
		return p.declaratorType(t, dd.Inner)
	case *ast.FuncDeclarator:
		return p.directType(p.funcType(t, dd), dd.Inner)
	}
	return t
}

func (p *Parser) funcType(ret *types.Type, fd *ast.FuncDeclarator) *types.Type {
	if ret.IsFunction() {
		p.semanticError(fd.Tok, "function cannot return a function type")
	}
	// f(void) takes no parameters.
	if len(fd.Params) == 1 && !fd.Variadic && fd.Params[0].Type.IsVoid() {
		if nameTok, named := fd.Params[0].Decl.Identifier(); named {
			p.semanticError(nameTok, "parameter '%s' has incomplete type 'void'", nameTok.Value)
		}
		return p.universe.Func(ret, nil, false)
	}

	params := make([]*types.Type, 0, len(fd.Params))
	for _, prm := range fd.Params {
		tok := prm.Specs.Items[0].Tok
		if nameTok, named := prm.Decl.Identifier(); named {
			tok = nameTok
		}
		switch {
		case prm.Type.IsVoid():
			p.semanticError(tok, "'void' must be the first and only parameter if specified")
		case prm.Type.IsFunction():
			p.semanticError(tok, "parameter declared as a function; use a function pointer")
		}
		params = append(params, prm.Type)
	}
	return p.universe.Func(ret, params, fd.Variadic)
}

func (p *Parser) parseTypeName() *ast.TypeName {
	specs := p.parseDeclSpecs(false)
	if specs == nil {
		p.syntaxError("expected type name")
	}
	d := p.parseDeclarator(declAbstract).Unparen()
	return &ast.TypeName{Specs: specs, Decl: d, Type: p.declaratorType(specs.Type, d)}
}

func (p *Parser) parseExternalDecl() *ast.Node {
	tok := p.current
	specs := p.parseDeclSpecs(true)
	if specs == nil {
		p.syntaxError("expected declaration")
	}
	return p.parseDeclRest(tok, specs, true)
}

func (p *Parser) parseBlockDecl() *ast.Node {
	tok := p.current
	specs := p.parseDeclSpecs(true)
	if specs == nil {
		p.syntaxError("expected declaration")
	}
	return p.parseDeclRest(tok, specs, false)
}

// parseDeclRest parses the init-declarator list of a declaration, or the
// function definition it turns out to be once '{' follows the declarator.
func (p *Parser) parseDeclRest(tok token.Token, specs *ast.DeclSpecs, fileScope bool) *ast.Node {
	if p.match(token.Semi) {
		if !hasRecord(specs) {
			p.semanticError(tok, "declaration does not declare anything")
		}
		return ast.NewDecl(tok, specs, nil)
	}

	d := p.parseDeclarator(declConcrete).Unparen()
	if d.IsFunction() && p.check(token.LBrace) {
		if !fileScope {
			p.semanticError(p.current, "function definition is not allowed here")
		}
		return p.parseFuncDef(tok, specs, d)
	}

	var inits []*ast.InitDeclarator
	for {
		inits = append(inits, p.parseInitDeclarator(specs, d))
		if !p.match(token.Comma) {
			break
		}
		d = p.parseDeclarator(declConcrete).Unparen()
	}
	p.expect(token.Semi, "after declaration")
	return ast.NewDecl(tok, specs, inits)
}

func hasRecord(specs *ast.DeclSpecs) bool {
	for _, s := range specs.Items {
		if s.Record != nil {
			return true
		}
	}
	return false
}

func (p *Parser) parseInitDeclarator(specs *ast.DeclSpecs, d *ast.Declarator) *ast.InitDeclarator {
	nameTok, _ := d.Identifier()
	typ := p.declaratorType(specs.Type, d)
	init := &ast.InitDeclarator{Decl: d}

	if d.IsFunction() {
		init.Entity = p.declareFunction(specs, nameTok, typ)
		if p.check(token.Eq) {
			p.semanticError(nameTok, "function '%s' is initialized like a variable", nameTok.Value)
		}
		return init
	}

	v := p.declareVariable(specs, nameTok, typ)
	init.Entity = v
	if p.match(token.Eq) {
		if v.Extern && !v.Global {
			p.semanticError(nameTok, "'extern' variable '%s' cannot have an initializer", nameTok.Value)
		}
		if p.check(token.LBrace) {
			p.semanticError(p.current, "initializer lists are not supported")
		}
		v.Extern = false
		init.Init = p.require(p.parseAssignmentExpr(), "initializer expression")
	}
	return init
}

func (p *Parser) declare(tok token.Token, e scope.Entity) {
	if err := p.scopes.Declare(tok.Value, e); err != nil {
		p.semanticError(tok, "%v", err)
	}
}

func (p *Parser) declareTag(tok token.Token, tag *types.Tag) {
	if err := p.scopes.DeclareTag(tag.Name, tag); err != nil {
		p.semanticError(tok, "%v", err)
	}
}

// redeclareFunction checks a redeclaration of name against its previous
// binding and returns the existing function.
func (p *Parser) redeclareFunction(prev scope.Entity, tok token.Token, typ *types.Type) *scope.Function {
	fn, ok := prev.(*scope.Function)
	if !ok {
		p.semanticError(tok, "'%s' redeclared as different kind of symbol", tok.Value)
	}
	if !types.Identical(fn.Type, typ) {
		p.semanticError(tok, "conflicting types for '%s': '%s' vs '%s'", tok.Value, typ, fn.Type)
	}
	return fn
}

func (p *Parser) declareFunction(specs *ast.DeclSpecs, tok token.Token, typ *types.Type) *scope.Function {
	global := p.scopes.Current().IsGlobal()
	switch specs.Storage {
	case token.Auto, token.Register:
		p.semanticError(tok, "illegal storage class on function '%s'", tok.Value)
	case token.Static:
		if !global {
			p.semanticError(tok, "invalid storage class for block-scope function '%s'", tok.Value)
		}
	}

	if prev, ok := p.scopes.LookupCurrent(tok.Value); ok {
		return p.redeclareFunction(prev, tok, typ)
	}
	if !global {
		if prev, ok := p.scopes.Global().Lookup(tok.Value); ok {
			if fn, isFn := prev.(*scope.Function); isFn {
				fn = p.redeclareFunction(fn, tok, typ)
				p.declare(tok, fn)
				return fn
			}
		}
	}
	fn := &scope.Function{Name: tok.Value, Type: typ, Tok: tok, Static: specs.Storage == token.Static}
	p.declare(tok, fn)
	return fn
}

func (p *Parser) declareVariable(specs *ast.DeclSpecs, tok token.Token, typ *types.Type) *scope.Variable {
	global := p.scopes.Current().IsGlobal()
	extern := specs.Storage == token.Extern
	if typ.IsVoid() {
		p.semanticError(tok, "variable '%s' declared void", tok.Value)
	}
	if !typ.IsComplete() && !extern {
		p.semanticError(tok, "variable '%s' has incomplete type '%s'", tok.Value, typ)
	}
	if global && (specs.Storage == token.Auto || specs.Storage == token.Register) {
		p.semanticError(tok, "illegal storage class on file-scoped variable '%s'", tok.Value)
	}

	if prev, ok := p.scopes.LookupCurrent(tok.Value); ok {
		v, isVar := prev.(*scope.Variable)
		if !isVar {
			p.semanticError(tok, "'%s' redeclared as different kind of symbol", tok.Value)
		}
		// Only extern declarations may repeat a name; at block scope both
		// must be extern.
		compatible := extern || v.Extern
		if !global {
			compatible = extern && v.Extern
		}
		if !compatible {
			p.semanticError(tok, "redefinition of '%s'", tok.Value)
		}
		if !types.Identical(v.Type, typ) {
			p.semanticError(tok, "conflicting types for '%s': '%s' vs '%s'", tok.Value, typ, v.Type)
		}
		if !extern {
			v.Extern = false
		}
		return v
	}

	v := &scope.Variable{
		Name: tok.Value, Type: typ, Tok: tok,
		Global: global, Static: specs.Storage == token.Static, Extern: extern,
	}
	p.declare(tok, v)
	return v
}

func (p *Parser) parseFuncDef(tok token.Token, specs *ast.DeclSpecs, d *ast.Declarator) *ast.Node {
	nameTok, _ := d.Identifier()
	typ := p.declaratorType(specs.Type, d)
	if specs.Storage == token.Auto || specs.Storage == token.Register {
		p.semanticError(nameTok, "illegal storage class on function '%s'", nameTok.Value)
	}
	if !typ.Ret.IsVoid() && !typ.Ret.IsComplete() {
		p.semanticError(nameTok, "function '%s' has incomplete return type '%s'", nameTok.Value, typ.Ret)
	}

	fn := p.defineFunction(specs, nameTok, typ)

	p.pushScope()
	defer p.popScope()
	p.fn = newFuncContext(fn)
	defer func() { p.fn = nil }()

	fd := d.InnermostFunc()
	params := make([]*scope.Variable, 0, len(typ.Params))
	for i, pt := range typ.Params {
		prm := fd.Params[i]
		ptok, named := prm.Decl.Identifier()
		if !named {
			p.semanticError(prm.Specs.Items[0].Tok, "parameter %d of '%s' has no name", i+1, nameTok.Value)
		}
		if !pt.IsComplete() {
			p.semanticError(ptok, "parameter '%s' has incomplete type '%s'", ptok.Value, pt)
		}
		v := &scope.Variable{Name: ptok.Value, Type: pt, Tok: ptok, Param: true}
		p.declare(ptok, v)
		params = append(params, v)
	}

	// The body shares the parameter scope.
	body := p.parseCompoundStmt(false)
	p.resolveGotos()
	return ast.NewFuncDef(tok, specs, d, body, fn, params)
}

func (p *Parser) defineFunction(specs *ast.DeclSpecs, tok token.Token, typ *types.Type) *scope.Function {
	if prev, ok := p.scopes.Global().Lookup(tok.Value); ok {
		fn := p.redeclareFunction(prev, tok, typ)
		if fn.Defined {
			p.semanticError(tok, "redefinition of '%s'", tok.Value)
		}
		fn.Defined = true
		fn.Static = fn.Static || specs.Storage == token.Static
		return fn
	}
	fn := &scope.Function{Name: tok.Value, Type: typ, Tok: tok, Static: specs.Storage == token.Static, Defined: true}
	p.declare(tok, fn)
	return fn
}

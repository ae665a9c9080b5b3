// Package scope implements the lexical scope stack used while parsing.
package scope

import (
	"fmt"

	"github.com/xplshn/xcc/pkg/ir"
	"github.com/xplshn/xcc/pkg/token"
	"github.com/xplshn/xcc/pkg/types"
)

// Entity is a value bound to an ordinary identifier: *Variable or *Function.
type Entity interface {
	EntityName() string
	EntityType() *types.Type
	entity()
}

type Variable struct {
	Name    string
	Type    *types.Type
	Tok     token.Token
	Global  bool
	Static  bool
	Extern  bool
	Param   bool
	Storage ir.Value // address of the object, set during lowering
}

type Function struct {
	Name    string
	Type    *types.Type
	Tok     token.Token
	Static  bool
	Defined bool
	Handle  ir.Value // set during lowering
}

func (v *Variable) EntityName() string      { return v.Name }
func (v *Variable) EntityType() *types.Type { return v.Type }
func (*Variable) entity()                   {}

func (f *Function) EntityName() string      { return f.Name }
func (f *Function) EntityType() *types.Type { return f.Type }
func (*Function) entity()                   {}

type Scope struct {
	global bool
	vars   map[string]Entity
	tags   map[string]*types.Tag
}

func newScope(global bool) *Scope {
	return &Scope{global: global, vars: make(map[string]Entity), tags: make(map[string]*types.Tag)}
}

func (s *Scope) IsGlobal() bool { return s.global }

func (s *Scope) Lookup(name string) (Entity, bool) {
	e, ok := s.vars[name]
	return e, ok
}

func (s *Scope) LookupTag(name string) (*types.Tag, bool) {
	t, ok := s.tags[name]
	return t, ok
}

// Declare binds name in this scope. A name can be bound once per scope;
// callers handle compatible function redeclarations before calling.
func (s *Scope) Declare(name string, e Entity) error {
	if _, ok := s.vars[name]; ok {
		return fmt.Errorf("redefinition of '%s'", name)
	}
	s.vars[name] = e
	return nil
}

func (s *Scope) DeclareTag(name string, t *types.Tag) error {
	if _, ok := s.tags[name]; ok {
		return fmt.Errorf("redefinition of tag '%s'", name)
	}
	s.tags[name] = t
	return nil
}

// Stack is the scope stack. The bottom scope is global and is never popped.
type Stack struct {
	scopes []*Scope
}

func NewStack() *Stack {
	return &Stack{scopes: []*Scope{newScope(true)}}
}

func (st *Stack) Push() { st.scopes = append(st.scopes, newScope(false)) }

func (st *Stack) Pop() {
	if len(st.scopes) == 1 {
		panic("scope: pop of the global scope")
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
}

func (st *Stack) Depth() int      { return len(st.scopes) }
func (st *Stack) Current() *Scope { return st.scopes[len(st.scopes)-1] }
func (st *Stack) Global() *Scope  { return st.scopes[0] }

// Lookup scans from the innermost scope outwards.
func (st *Stack) Lookup(name string) (Entity, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if e, ok := st.scopes[i].vars[name]; ok {
			return e, true
		}
	}
	return nil, false
}

func (st *Stack) LookupTag(name string) (*types.Tag, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if t, ok := st.scopes[i].tags[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// LookupCurrent and LookupTagCurrent only search the innermost scope.
func (st *Stack) LookupCurrent(name string) (Entity, bool) {
	return st.Current().Lookup(name)
}

func (st *Stack) LookupTagCurrent(name string) (*types.Tag, bool) {
	return st.Current().LookupTag(name)
}

func (st *Stack) Declare(name string, e Entity) error {
	return st.Current().Declare(name, e)
}

func (st *Stack) DeclareTag(name string, t *types.Tag) error {
	return st.Current().DeclareTag(name, t)
}

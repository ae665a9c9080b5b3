package types

import (
	"fmt"

	"github.com/xplshn/xcc/pkg/util"
)

type Field struct {
	Name   string
	Type   *Type
	Index  int
	Offset int64
}

// Tag is a struct or union name. Its aggregate type exists from the first
// mention; the member list is filled in exactly once by Complete.
type Tag struct {
	ID     int
	Name   string // empty for an anonymous struct
	Union  bool
	Type   *Type
	Fields []*Field

	index    map[string]int
	complete bool
	size     int64
	align    int64
}

func (u *Universe) NewTag(name string, union bool) *Tag {
	u.nextTag++
	tag := &Tag{ID: u.nextTag, Name: name, Union: union}
	tag.Type = &Type{Kind: Struct, Tag: tag}
	return tag
}

func (t *Tag) IsComplete() bool { return t.complete }
func (t *Tag) Size() int64      { return t.size }
func (t *Tag) Align() int64     { return t.align }

func (t *Tag) Keyword() string {
	if t.Union {
		return "union"
	}
	return "struct"
}

func (t *Tag) String() string {
	if t.Name == "" {
		return fmt.Sprintf("%s <anonymous#%d>", t.Keyword(), t.ID)
	}
	return t.Keyword() + " " + t.Name
}

// Field looks a member up by name.
func (t *Tag) Field(name string) (*Field, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Fields[i], true
}

// Complete fixes the member list and computes the layout. Members keep
// declaration order; struct members are laid out at increasing aligned
// offsets, union members all at offset 0.
func (t *Tag) Complete(u *Universe, fields []Field) error {
	if t.complete {
		return fmt.Errorf("redefinition of '%s'", t)
	}
	if len(fields) == 0 {
		return fmt.Errorf("'%s' declared with no members", t)
	}

	index := make(map[string]int, len(fields))
	laid := make([]*Field, 0, len(fields))
	var offset, size int64
	align := int64(1)
	for i, f := range fields {
		if _, dup := index[f.Name]; dup {
			return fmt.Errorf("duplicate member '%s' in '%s'", f.Name, t)
		}
		if f.Type.IsFunction() {
			return fmt.Errorf("member '%s' declared as a function", f.Name)
		}
		if !f.Type.IsComplete() {
			return fmt.Errorf("member '%s' has incomplete type '%s'", f.Name, f.Type)
		}
		fa := u.Alignof(f.Type)
		fs := u.Sizeof(f.Type)
		if fa > align {
			align = fa
		}
		field := &Field{Name: f.Name, Type: f.Type, Index: i}
		if t.Union {
			if fs > size {
				size = fs
			}
		} else {
			offset = util.AlignUp(offset, fa)
			field.Offset = offset
			offset += fs
			size = offset
		}
		index[f.Name] = i
		laid = append(laid, field)
	}

	t.Fields, t.index = laid, index
	t.size, t.align = util.AlignUp(size, align), align
	t.complete = true
	return nil
}

package types

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/xcc/pkg/token"
)

func TestBuiltin(t *testing.T) {
	u := NewUniverse(8)
	tests := []struct {
		specs []token.Type
		want  Kind
	}{
		{[]token.Type{token.Int}, Int},
		{[]token.Type{token.Signed}, Int},
		{[]token.Type{token.Unsigned}, UInt},
		{[]token.Type{token.Char}, Char},
		{[]token.Type{token.Unsigned, token.Char}, UChar},
		{[]token.Type{token.Int, token.Short, token.Unsigned}, UShort},
		{[]token.Type{token.Unsigned, token.Long, token.Long, token.Int}, ULongLong},
		{[]token.Type{token.Long, token.Int, token.Long}, LongLong},
		{[]token.Type{token.Long, token.Double}, LongDouble},
		{[]token.Type{token.Bool}, Bool},
		{[]token.Type{token.Void}, Void},
	}
	for _, tt := range tests {
		got, err := u.Builtin(tt.specs)
		if err != nil {
			t.Errorf("Builtin(%v): %v", tt.specs, err)
			continue
		}
		if got.Kind != tt.want {
			t.Errorf("Builtin(%v) = %s, want %s", tt.specs, got, kindNames[tt.want])
		}
		if got != u.Basic(tt.want) {
			t.Errorf("Builtin(%v) is not the canonical instance", tt.specs)
		}
	}
}

func TestBuiltinErrors(t *testing.T) {
	u := NewUniverse(8)
	for _, specs := range [][]token.Type{
		nil,
		{token.Signed, token.Unsigned},
		{token.Long, token.Long, token.Long},
		{token.Short, token.Char},
		{token.Void, token.Int},
		{token.Double, token.Complex},
	} {
		if got, err := u.Builtin(specs); err == nil {
			t.Errorf("Builtin(%v) = %s, want an error", specs, got)
		}
	}
	if _, err := u.Builtin([]token.Type{token.Float, token.Complex}); err == nil || !strings.Contains(err.Error(), "complex") {
		t.Errorf("complex specifier error = %v", err)
	}
}

func TestSizes(t *testing.T) {
	u := NewUniverse(8)
	got := map[string]int64{}
	for _, k := range []Kind{Char, Short, Int, Long, LongLong, Double, LongDouble} {
		got[kindNames[k]] = u.Sizeof(u.Basic(k))
	}
	got["pointer"] = u.Sizeof(u.PointerTo(u.Basic(Char)))
	want := map[string]int64{
		"char": 1, "short": 2, "int": 4, "long": 8, "long long": 8, "double": 8, "long double": 16, "pointer": 8,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestPointerToIsCanonical(t *testing.T) {
	u := NewUniverse(8)
	p1 := u.PointerTo(u.Basic(Int))
	p2 := u.PointerTo(u.Basic(Int))
	if p1 != p2 {
		t.Errorf("PointerTo returned distinct instances")
	}
	if !Identical(u.PointerTo(p1), u.PointerTo(p2)) {
		t.Errorf("int ** not identical to itself")
	}
	if Identical(p1, u.PointerTo(u.Basic(UInt))) {
		t.Errorf("int * identical to unsigned int *")
	}
}

func TestFunctionIdentity(t *testing.T) {
	u := NewUniverse(8)
	i := u.Basic(Int)
	f1 := u.Func(i, []*Type{i, u.PointerTo(u.Basic(Char))}, true)
	f2 := u.Func(i, []*Type{i, u.PointerTo(u.Basic(Char))}, true)
	if !Identical(f1, f2) {
		t.Errorf("%s not identical to %s", f1, f2)
	}
	if Identical(f1, u.Func(i, []*Type{i}, true)) {
		t.Errorf("functions with different arity reported identical")
	}
	if got, want := f1.String(), "int (int, char *, ...)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := u.PointerTo(u.Func(i, nil, false)).String(), "int (*)(void)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTagLayout(t *testing.T) {
	u := NewUniverse(8)
	s := u.NewTag("s", false)
	if s.IsComplete() || s.Type.IsComplete() {
		t.Fatalf("fresh tag reported complete")
	}
	err := s.Complete(u, []Field{
		{Name: "a", Type: u.Basic(Int)},
		{Name: "next", Type: u.PointerTo(s.Type)},
		{Name: "c", Type: u.Basic(Char)},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	type layout struct {
		Name   string
		Index  int
		Offset int64
	}
	var got []layout
	for _, f := range s.Fields {
		got = append(got, layout{f.Name, f.Index, f.Offset})
	}
	want := []layout{{"a", 0, 0}, {"next", 1, 8}, {"c", 2, 16}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
	if s.Size() != 24 || s.Align() != 8 {
		t.Errorf("size/align = %d/%d, want 24/8", s.Size(), s.Align())
	}
	if f, ok := s.Field("next"); !ok || f.Index != 1 {
		t.Errorf("Field(next) = %v, %v", f, ok)
	}
	if _, ok := s.Field("missing"); ok {
		t.Errorf("Field(missing) found")
	}
	if err := s.Complete(u, []Field{{Name: "x", Type: u.Basic(Int)}}); err == nil {
		t.Errorf("second completion accepted")
	}
}

func TestUnionLayout(t *testing.T) {
	u := NewUniverse(8)
	un := u.NewTag("v", true)
	if err := un.Complete(u, []Field{{Name: "c", Type: u.Basic(Char)}, {Name: "l", Type: u.Basic(Long)}}); err != nil {
		t.Fatal(err)
	}
	for _, f := range un.Fields {
		if f.Offset != 0 {
			t.Errorf("union member %s at offset %d", f.Name, f.Offset)
		}
	}
	if un.Size() != 8 {
		t.Errorf("union size = %d, want 8", un.Size())
	}
}

func TestTagCompletionErrors(t *testing.T) {
	u := NewUniverse(8)
	s := u.NewTag("s", false)
	tests := []struct {
		name   string
		fields []Field
	}{
		{"empty", nil},
		{"duplicate", []Field{{Name: "a", Type: u.Basic(Int)}, {Name: "a", Type: u.Basic(Char)}}},
		{"self by value", []Field{{Name: "self", Type: s.Type}}},
		{"void member", []Field{{Name: "v", Type: u.Basic(Void)}}},
		{"function member", []Field{{Name: "f", Type: u.Func(u.Basic(Int), nil, false)}}},
	}
	for _, tt := range tests {
		if err := s.Complete(u, tt.fields); err == nil {
			t.Errorf("%s: Complete accepted %v", tt.name, tt.fields)
		}
	}
	if s.IsComplete() {
		t.Errorf("failed completions left the tag complete")
	}
}

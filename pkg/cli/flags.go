// Package cli parses GNU-style command lines (long flags, shorthands,
// -W/-F groups and -l style prefixes) and renders help pages.
package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v stringValue) Set(s string) error { *v.p = s; return nil }
func (v stringValue) String() string     { return *v.p }

type boolValue struct{ p *bool }

// Set accepts an empty string as true, so a bare -flag enables it.
func (v boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s'", s)
	}
	*v.p = b
	return nil
}
func (v boolValue) String() string { return strconv.FormatBool(*v.p) }

type listValue struct{ p *[]string }

func (v listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v listValue) String() string     { return strings.Join(*v.p, ",") }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
	Changed      bool
}

func (fl *Flag) isBool() bool {
	_, ok := fl.Value.(boolValue)
	return ok
}

// FlagGroupEntry is one member of a -<prefix><name>/-<prefix>no-<name> pair.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagGroup struct {
	Name        string
	Description string
	GroupType   string
	Header      string
	Flags       []FlagGroupEntry
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	prefixes   []*Flag
	groups     []FlagGroup
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

// Args returns the positional arguments left after Parse.
func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

// Changed reports whether the named flag was set on the command line.
func (f *FlagSet) Changed(name string) bool {
	fl, ok := f.flags[name]
	return ok && fl.Changed
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) *Flag {
	if name == "" {
		panic("cli: flag name cannot be empty")
	}
	if _, dup := f.flags[name]; dup {
		panic("cli: flag redefined: " + name)
	}
	fl := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = fl
	if shorthand != "" {
		if _, dup := f.shorthands[shorthand]; dup {
			panic("cli: shorthand redefined: " + shorthand)
		}
		f.shorthands[shorthand] = fl
	}
	return fl
}

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(listValue{p}, name, shorthand, usage, strings.Join(value, ","), expectedType)
}

// Special registers a flag whose value is glued to its name, like -lm.
func (f *FlagSet) Special(p *[]string, prefix, usage, expectedType string) {
	*p = []string{}
	f.prefixes = append(f.prefixes, f.Var(listValue{p}, prefix, "", usage, "", expectedType))
	sort.Slice(f.prefixes, func(i, j int) bool { return len(f.prefixes[i].Name) > len(f.prefixes[j].Name) })
}

// AddFlagGroup defines the enable and disable flags of every entry and
// records the group for the help page.
func (f *FlagSet) AddFlagGroup(name, description, groupType, header string, entries []FlagGroupEntry) {
	for _, e := range entries {
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Description: description, GroupType: groupType, Header: header, Flags: entries})
}

func (f *FlagSet) inGroup(name string) bool {
	for _, g := range f.groups {
		for _, e := range g.Flags {
			if name == e.Prefix+e.Name || name == e.Prefix+"no-"+e.Name {
				return true
			}
		}
	}
	return false
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}

		fl, value, hasValue, err := f.resolve(arg)
		if err != nil {
			return err
		}
		if !hasValue && !fl.isBool() {
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = arguments[i]
		}
		fl.Changed = true
		if err := fl.Value.Set(value); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

// resolve finds the flag named by arg. Single-dash arguments are tried as a
// full flag name first, then as a glued prefix, then as a shorthand.
func (f *FlagSet) resolve(arg string) (fl *Flag, value string, hasValue bool, err error) {
	if long, ok := strings.CutPrefix(arg, "--"); ok {
		name, value, hasValue := strings.Cut(long, "=")
		if name == "" {
			return nil, "", false, fmt.Errorf("empty flag name")
		}
		if fl, ok := f.flags[name]; ok {
			return fl, value, hasValue, nil
		}
		return nil, "", false, fmt.Errorf("unknown flag: --%s", name)
	}

	body := arg[1:]
	if name, value, hasValue := strings.Cut(body, "="); f.flags[name] != nil {
		return f.flags[name], value, hasValue, nil
	}
	for _, p := range f.prefixes {
		if rest, ok := strings.CutPrefix(body, p.Name); ok && rest != "" {
			return p, rest, true, nil
		}
	}
	fl, ok := f.shorthands[body[:1]]
	if !ok {
		return nil, "", false, fmt.Errorf("unknown shorthand flag: -%s", body[:1])
	}
	if len(body) > 1 && !fl.isBool() {
		return fl, body[1:], true, nil
	}
	return fl, "", false, nil
}

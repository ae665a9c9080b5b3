package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/xcc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatCComments Feature = iota
	FeatDigraphs
	FeatBool
	FeatLongLong
	FeatMixedDecls
	FeatForDecl
	FeatCount
)

type Warning int

const (
	WarnUnreachableCode Warning = iota
	WarnImplicitConversion
	WarnOverflow
	WarnUnusedValue
	WarnPedantic
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features       map[Feature]Info
	Warnings       map[Warning]Info
	FeatureMap     map[string]Feature
	WarningMap     map[string]Warning
	StdName        string
	TargetArch     string
	QbeTarget      string
	WordSize       int
	WordType       string
	StackAlignment int
	LinkerArgs     []string
	LibRequests    []string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		StdName:    "c11",
		// Host-independent default until SetTarget runs.
		QbeTarget: "amd64_sysv", WordSize: 8, WordType: "l", StackAlignment: 16,
	}

	features := map[Feature]Info{
		FeatCComments:  {"c-comments", true, "Recognize C99 '//' line comments."},
		FeatDigraphs:   {"digraphs", true, "Recognize the digraphs '<:' ':>' '<%' '%>' '%:' '%:%:'."},
		FeatBool:       {"bool", true, "Allow the '_Bool' type specifier."},
		FeatLongLong:   {"long-long", true, "Allow the 'long long' type specifiers."},
		FeatMixedDecls: {"mixed-decls", true, "Allow declarations after statements inside a block."},
		FeatForDecl:    {"for-decl", true, "Allow a declaration in the first clause of a 'for' statement."},
	}

	warnings := map[Warning]Info{
		WarnUnreachableCode:    {"unreachable-code", true, "Warn about code that will never be executed."},
		WarnImplicitConversion: {"implicit-conversion", true, "Warn about implicit conversions between pointers and integers."},
		WarnOverflow:           {"overflow", true, "Warn when a constant does not fit the type it is converted to."},
		WarnUnusedValue:        {"unused-value", false, "Warn about expression statements whose value is discarded without effect."},
		WarnPedantic:           {"pedantic", false, "Issue all warnings demanded by the strict standard."},
		WarnExtra:              {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// Targets lists the QBE targets xcc knows the data model of.
var Targets = []string{"amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64"}

// SetTarget configures the compiler for a specific architecture and QBE target.
// An empty qbeTarget selects the host's default.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) error {
	qbeTarget = strings.TrimPrefix(qbeTarget, "qbe/")
	if qbeTarget == "" || qbeTarget == "qbe" {
		qbeTarget = libqbe.DefaultTarget(goos, goarch)
	}
	c.TargetArch = goarch

	switch qbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.QbeTarget = qbeTarget
		c.WordSize, c.WordType, c.StackAlignment = 8, "l", 16
	default:
		return fmt.Errorf("unsupported QBE target '%s'. Supported: %s", qbeTarget, strings.Join(Targets, ", "))
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) ApplyStd(stdName string) error {
	type stdSettings struct {
		feature       Feature
		c89, c99, c11 bool
	}

	settings := []stdSettings{
		{FeatCComments, false, true, true},
		{FeatDigraphs, false, true, true},
		{FeatBool, false, true, true},
		{FeatLongLong, false, true, true},
		{FeatMixedDecls, false, true, true},
		{FeatForDecl, false, true, true},
	}

	for _, s := range settings {
		switch stdName {
		case "c89", "c90", "ansi":
			c.SetFeature(s.feature, s.c89)
		case "c99":
			c.SetFeature(s.feature, s.c99)
		case "c11", "c17", "c18":
			c.SetFeature(s.feature, s.c11)
		default:
			return fmt.Errorf("unsupported standard '%s'. Supported: 'c89', 'c99', 'c11'", stdName)
		}
	}
	c.StdName = stdName
	return nil
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		}
	}
}

// ProcessFlags applies -W/-F style flags in order, with -Wall and
// -Wno-all taking effect before any individual flag.
func (c *Config) ProcessFlags(flags []string) {
	for _, f := range flags {
		if f == "-Wall" || f == "-Wno-all" {
			c.applyFlag(f)
		}
	}
	for _, f := range flags {
		if f != "-Wall" && f != "-Wno-all" {
			c.applyFlag(f)
		}
	}
}

// SetupFlagGroups registers one -W<name>/-Wno-<name> pair per warning and
// one -F<name>/-Fno-<name> pair per feature on fs.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) {
	var wall bool
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings except pedantic ones.")

	warningFlags := make([]cli.FlagGroupEntry, 0, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags = append(warningFlags, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled,
		})
	}
	featureFlags := make([]cli.FlagGroupEntry, 0, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags = append(featureFlags, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled,
		})
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available feature flags:", featureFlags)
}

// ApplyFlagGroups applies the group flags the user actually passed, so that
// defaults registered by SetupFlagGroups never override ApplyStd.
func (c *Config) ApplyFlagGroups(fs *cli.FlagSet) {
	var flags []string
	if fs.Changed("Wall") {
		flags = append(flags, "-Wall")
	}
	for i := Warning(0); i < WarnCount; i++ {
		name := c.Warnings[i].Name
		if fs.Changed("W" + name) {
			flags = append(flags, "-W"+name)
		}
		if fs.Changed("Wno-" + name) {
			flags = append(flags, "-Wno-"+name)
		}
	}
	for i := Feature(0); i < FeatCount; i++ {
		name := c.Features[i].Name
		if fs.Changed("F" + name) {
			flags = append(flags, "-F"+name)
		}
		if fs.Changed("Fno-" + name) {
			flags = append(flags, "-Fno-"+name)
		}
	}
	c.ProcessFlags(flags)
}

// Fingerprint describes every setting that changes generated code. It is
// part of the build cache key.
func (c *Config) Fingerprint() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "std=%s;target=%s;", c.StdName, c.QbeTarget)
	for i := Feature(0); i < FeatCount; i++ {
		fmt.Fprintf(&sb, "%s=%t;", c.Features[i].Name, c.Features[i].Enabled)
	}
	return sb.String()
}

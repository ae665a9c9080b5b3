package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/xcc/pkg/cli"
)

func TestApplyStd(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyStd("c89"); err != nil {
		t.Fatalf("ApplyStd(c89): %v", err)
	}
	for _, ft := range []Feature{FeatCComments, FeatDigraphs, FeatBool, FeatLongLong, FeatMixedDecls, FeatForDecl} {
		if cfg.IsFeatureEnabled(ft) {
			t.Errorf("feature %s enabled under c89", cfg.Features[ft].Name)
		}
	}
	if err := cfg.ApplyStd("c11"); err != nil {
		t.Fatalf("ApplyStd(c11): %v", err)
	}
	if !cfg.IsFeatureEnabled(FeatLongLong) {
		t.Errorf("long-long disabled under c11")
	}
	if err := cfg.ApplyStd("k&r"); err == nil {
		t.Errorf("ApplyStd(k&r) succeeded, want an error")
	}
}

func TestProcessFlags(t *testing.T) {
	cfg := NewConfig()
	cfg.ProcessFlags([]string{"-Wno-overflow", "-Wall", "-Fno-digraphs", "-Wunused-value"})
	if cfg.IsWarningEnabled(WarnOverflow) {
		t.Errorf("-Wno-overflow lost to -Wall")
	}
	if !cfg.IsWarningEnabled(WarnUnusedValue) || cfg.IsWarningEnabled(WarnPedantic) {
		t.Errorf("unused-value = %v, pedantic = %v", cfg.IsWarningEnabled(WarnUnusedValue), cfg.IsWarningEnabled(WarnPedantic))
	}
	if cfg.IsFeatureEnabled(FeatDigraphs) {
		t.Errorf("-Fno-digraphs ignored")
	}
}

func TestFlagGroupsRespectStd(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("xcc")
	cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Fbool", "-Wno-unreachable-code"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.ApplyStd("c89"); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(fs)

	if !cfg.IsFeatureEnabled(FeatBool) {
		t.Errorf("-Fbool not applied")
	}
	if cfg.IsFeatureEnabled(FeatLongLong) {
		t.Errorf("untouched -Flong-long overrode -std=c89")
	}
	if cfg.IsWarningEnabled(WarnUnreachableCode) {
		t.Errorf("-Wno-unreachable-code not applied")
	}
}

func TestSetTarget(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.SetTarget("linux", "arm64", "qbe/arm64"); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if cfg.QbeTarget != "arm64" || cfg.WordSize != 8 || cfg.WordType != "l" {
		t.Errorf("got target %q word %d/%s", cfg.QbeTarget, cfg.WordSize, cfg.WordType)
	}
	if err := cfg.SetTarget("linux", "386", "i386"); err == nil {
		t.Errorf("SetTarget(i386) succeeded, want an error")
	}
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectFileName)
	src := `
[build]
std = "c99"
target = "rv64"
output = "demo"
linker_args = ["-s"]
libs = ["m"]

[warnings]
unused-value = true

[features]
digraphs = false
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	found, ok, err := FindProjectFile(sub)
	if err != nil || !ok {
		t.Fatalf("FindProjectFile(%q) = %q, %v, %v", sub, found, ok, err)
	}
	p, err := LoadProjectFile(found)
	if err != nil {
		t.Fatalf("LoadProjectFile: %v", err)
	}
	if target, ok := p.Target(); !ok || target != "rv64" {
		t.Errorf("Target() = %q, %v", target, ok)
	}

	cfg := NewConfig()
	if err := cfg.Apply(p); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.StdName != "c99" || cfg.IsFeatureEnabled(FeatDigraphs) || !cfg.IsWarningEnabled(WarnUnusedValue) {
		t.Errorf("project settings not applied: std=%s digraphs=%v unused-value=%v",
			cfg.StdName, cfg.IsFeatureEnabled(FeatDigraphs), cfg.IsWarningEnabled(WarnUnusedValue))
	}
	if diff := cmp.Diff([]string{"-s"}, cfg.LinkerArgs); diff != "" {
		t.Errorf("linker args (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"m"}, cfg.LibRequests); diff != "" {
		t.Errorf("libs (-want +got):\n%s", diff)
	}
}

func TestLoadProjectFileRejectsUnknownNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectFileName)
	if err := os.WriteFile(path, []byte("[warnings]\nno-such-warning = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProjectFile(path)
	if err != nil {
		t.Fatalf("LoadProjectFile: %v", err)
	}
	if err := NewConfig().Apply(p); err == nil {
		t.Errorf("Apply accepted an unknown warning")
	}

	if err := os.WriteFile(path, []byte("[build]\nstdd = \"c99\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProjectFile(path); err == nil {
		t.Errorf("LoadProjectFile accepted an unknown key")
	}
}

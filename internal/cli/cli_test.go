package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/roboco-io/qmdtree/internal/cells"
	"github.com/roboco-io/qmdtree/internal/config"
	"github.com/roboco-io/qmdtree/internal/ir"
	"github.com/roboco-io/qmdtree/internal/outline"
	"github.com/roboco-io/qmdtree/internal/syntax"
)

// resetFlags restores every flag to its default, since cobra keeps flag
// values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with a config file at cfgPath and the
// given standard input.
func execute(t *testing.T, cfgPath, stdin string, args ...string) result {
	t.Helper()
	t.Setenv(config.EnvFormat, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvStrict, "")

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--config", cfgPath))
	err := rootCmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	return execute(t, filepath.Join(t.TempDir(), "config.yaml"), "", args...)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestSetVersion(t *testing.T) {
	oldVersion := version
	defer func() { version = oldVersion }()

	SetVersion("1.2.3")
	if version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got '%s'", version)
	}

	r := run(t, "version")
	if r.err != nil {
		t.Fatalf("version failed: %v", r.err)
	}
	if r.stdout != "qmdtree 1.2.3\n" {
		t.Errorf("unexpected output %q", r.stdout)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "qmdtree [file]" {
		t.Errorf("expected Use 'qmdtree [file]', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	for _, flag := range []string{"config", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("expected persistent flag '%s' to exist", flag)
		}
	}
}

func TestSubcommands(t *testing.T) {
	want := []string{"parse", "check", "extract", "cells", "outline", "extractors", "config", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand '%s' to exist", name)
		}
	}
}

func TestParseCommandFlags(t *testing.T) {
	for _, flag := range []string{"format", "output", "anonymous", "text"} {
		if parseCmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag '%s' to exist", flag)
		}
	}
}

func TestParseSExpr(t *testing.T) {
	src := "See @fig-a."
	path := writeFile(t, "doc.qmd", src)
	want := syntax.SExpr(syntax.Parse([]byte(src))) + "\n"

	tests := []struct {
		name string
		args []string
	}{
		{"parse command", []string{"parse", path}},
		{"root shortcut", []string{path}},
		{"explicit format", []string{"parse", path, "--format", "sexp"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, tc.args...)
			if r.err != nil {
				t.Fatalf("parse failed: %v", r.err)
			}
			if r.stdout != want {
				t.Errorf("got %q, want %q", r.stdout, want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	path := writeFile(t, "doc.qmd", "# Title\n\nSome *text*.\n")

	r := run(t, "parse", path, "--format", "json", "--text")
	if r.err != nil {
		t.Fatalf("parse failed: %v", r.err)
	}

	var doc ir.Document
	if err := json.Unmarshal([]byte(r.stdout), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, r.stdout)
	}
	if doc.Version != ir.Version {
		t.Errorf("expected version %s, got %s", ir.Version, doc.Version)
	}
	if doc.Metadata.Format != "quarto" {
		t.Errorf("expected format quarto, got %s", doc.Metadata.Format)
	}
	if doc.Root == nil || doc.Root.Kind != "document" {
		t.Fatalf("expected document root, got %+v", doc.Root)
	}
	if doc.Metadata.Errors != 0 {
		t.Errorf("expected no errors, got %d", doc.Metadata.Errors)
	}
	if !strings.Contains(r.stdout, `"text": "text"`) {
		t.Errorf("expected leaf text in output")
	}
}

func TestParseYAMLFromStdin(t *testing.T) {
	r := execute(t, filepath.Join(t.TempDir(), "config.yaml"), "Plain paragraph\n", "parse", "-", "--format", "yaml")
	if r.err != nil {
		t.Fatalf("parse failed: %v", r.err)
	}

	var doc ir.Document
	if err := yaml.Unmarshal([]byte(r.stdout), &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if doc.Metadata.Source != "stdin" {
		t.Errorf("expected source stdin, got %q", doc.Metadata.Source)
	}
	if doc.Metadata.Bytes != len("Plain paragraph\n") {
		t.Errorf("unexpected byte count %d", doc.Metadata.Bytes)
	}
}

func TestParseOutputFile(t *testing.T) {
	path := writeFile(t, "doc.md", "text\n")
	out := filepath.Join(t.TempDir(), "tree.txt")

	r := run(t, "parse", path, "-o", out)
	if r.err != nil {
		t.Fatalf("parse failed: %v", r.err)
	}
	if r.stdout != "" {
		t.Errorf("expected nothing on stdout, got %q", r.stdout)
	}
	if !strings.Contains(r.stderr, "저장 완료") {
		t.Errorf("expected save notice, got %q", r.stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "(document") {
		t.Errorf("unexpected output %q", data)
	}
}

func TestParseErrors(t *testing.T) {
	path := writeFile(t, "doc.qmd", "x\n")
	bin := writeFile(t, "bin.md", "\x00\x01")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"parse", filepath.Join(t.TempDir(), "none.qmd")}, "파일을 찾을 수 없습니다"},
		{"bad format", []string{"parse", path, "--format", "xml"}, "지원하지 않는 출력 형식"},
		{"binary input", []string{"parse", bin}, "문서 파싱 실패"},
		{"no args", []string{"parse"}, "accepts 1 arg"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, tc.args...)
			if r.err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(r.err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %q", tc.want, r.err)
			}
		})
	}
}

func TestParseUsesConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Output.Fields = false
	if err := config.NewLoaderWithPath(cfgPath).Save(cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	src := "See @fig-a."
	path := writeFile(t, "doc.qmd", src)
	r := execute(t, cfgPath, "", "parse", path)
	if r.err != nil {
		t.Fatalf("parse failed: %v", r.err)
	}
	if want := syntax.SExprKinds(syntax.Parse([]byte(src))) + "\n"; r.stdout != want {
		t.Errorf("got %q, want %q", r.stdout, want)
	}
}

func TestCheck(t *testing.T) {
	clean := writeFile(t, "clean.qmd", "# Fine\n\nText.\n")
	broken := writeFile(t, "broken.qmd", "```{r}\nx <- 1\n")
	degraded := writeFile(t, "degraded.qmd", "# H {.a #b}\n")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    []string
	}{
		{"clean", []string{"check", clean}, false, []string{"✓ " + clean, "오류 0개"}},
		{"error node", []string{"check", broken}, true, []string{"✗ " + broken, broken + ":1: structural:"}},
		{"degraded passes", []string{"check", degraded}, false, []string{"✓ " + degraded, ": attribute:"}},
		{"degraded strict", []string{"check", degraded, "--strict"}, true, []string{"✗ " + degraded}},
		{"several files", []string{"check", clean, broken}, true, []string{"✓ " + clean, "✗ " + broken}},
		{"stats", []string{"check", clean, "--stats"}, false, []string{"document", "atx_heading"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, tc.args...)
			if (r.err != nil) != tc.wantErr {
				t.Fatalf("error = %v, wantErr %v", r.err, tc.wantErr)
			}
			for _, s := range tc.want {
				if !strings.Contains(r.stdout, s) {
					t.Errorf("expected output to contain %q\n%s", s, r.stdout)
				}
			}
		})
	}
}

func TestCheckStrictFromEnv(t *testing.T) {
	degraded := writeFile(t, "degraded.qmd", "# H {.a #b}\n")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Check.FailOnDiagnostics = true
	if err := config.NewLoaderWithPath(cfgPath).Save(cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if r := execute(t, cfgPath, "", "check", degraded); r.err == nil {
		t.Error("expected check.fail_on_diagnostics to fail the check")
	}
}

func TestCheckWatchRejectsStdin(t *testing.T) {
	r := run(t, "check", "-", "--watch")
	if r.err == nil || !strings.Contains(r.err.Error(), "표준 입력") {
		t.Errorf("expected stdin watch error, got %v", r.err)
	}
}

func TestCellsCommand(t *testing.T) {
	path := writeFile(t, "doc.qmd", "```{r}\n#| label: fig-x\n#| echo: false\nplot(1)\n```\n\nInline `{r} 1 + 1`.\n")

	r := run(t, "cells", path)
	if r.err != nil {
		t.Fatalf("cells failed: %v", r.err)
	}
	var got []cells.Cell
	if err := json.Unmarshal([]byte(r.stdout), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, r.stdout)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(got))
	}
	if got[0].Language != "r" || got[0].Label != "fig-x" {
		t.Errorf("unexpected block cell %+v", got[0])
	}
	if got[0].Values["echo"] != false {
		t.Errorf("expected echo=false, got %v", got[0].Values["echo"])
	}
	if !got[1].Inline || got[1].Code != "1 + 1" {
		t.Errorf("unexpected inline cell %+v", got[1])
	}
}

func TestOutlineCommand(t *testing.T) {
	path := writeFile(t, "doc.qmd", "# Intro {#sec-intro}\n\nSee @sec-intro and @fig-none.\n")

	r := run(t, "outline", path, "--format", "yaml")
	if r.err != nil {
		t.Fatalf("outline failed: %v", r.err)
	}
	var o outline.Outline
	if err := yaml.Unmarshal([]byte(r.stdout), &o); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(o.Headings) != 1 || o.Headings[0].ID != "sec-intro" {
		t.Errorf("unexpected headings %+v", o.Headings)
	}
	if len(o.Unresolved) != 1 || o.Unresolved[0].Key != "fig-none" {
		t.Errorf("unexpected unresolved %+v", o.Unresolved)
	}
}

func TestExtractCommand(t *testing.T) {
	path := writeFile(t, "doc.qmd", "Text `open\n")

	r := run(t, "extract", "diagnostics", path)
	if r.err != nil {
		t.Fatalf("extract failed: %v", r.err)
	}
	if !strings.Contains(r.stdout, `"lexical"`) {
		t.Errorf("expected a lexical diagnostic\n%s", r.stdout)
	}

	r = run(t, "extract", "nonexistent", path)
	if r.err == nil || !strings.Contains(r.err.Error(), "알 수 없는 추출기") {
		t.Errorf("expected unknown extractor error, got %v", r.err)
	}

	r = run(t, "extract", "cells", path, "--format", "sexp")
	if r.err == nil {
		t.Error("expected sexp to be rejected for extractors")
	}
}

func TestExtractorsCommand(t *testing.T) {
	r := run(t, "extractors")
	if r.err != nil {
		t.Fatalf("extractors failed: %v", r.err)
	}
	for _, name := range []string{"cells", "diagnostics", "outline"} {
		if !strings.Contains(r.stdout, name) {
			t.Errorf("expected extractor %q in listing", name)
		}
	}
}

func TestConfigCommand(t *testing.T) {
	subcommands := []string{"show", "init", "set", "path"}
	for _, name := range subcommands {
		found := false
		for _, cmd := range configCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand '%s' to exist", name)
		}
	}
}

func TestConfigLifecycle(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sub", "config.yaml")

	r := execute(t, cfgPath, "", "config", "path")
	if strings.TrimSpace(r.stdout) != cfgPath {
		t.Errorf("expected path %s, got %q", cfgPath, r.stdout)
	}

	r = execute(t, cfgPath, "", "config", "show")
	if r.err != nil || !strings.Contains(r.stdout, "(기본값 사용)") {
		t.Errorf("expected defaults, got %q (%v)", r.stdout, r.err)
	}

	if r = execute(t, cfgPath, "", "config", "init"); r.err != nil {
		t.Fatalf("init failed: %v", r.err)
	}
	if r = execute(t, cfgPath, "", "config", "init"); r.err == nil {
		t.Error("expected init to refuse an existing file")
	}
	if r = execute(t, cfgPath, "", "config", "init", "--force"); r.err != nil {
		t.Errorf("init --force failed: %v", r.err)
	}

	if r = execute(t, cfgPath, "", "config", "set", "output.format", "json"); r.err != nil {
		t.Fatalf("set failed: %v", r.err)
	}
	r = execute(t, cfgPath, "", "config", "show")
	if !strings.Contains(r.stdout, "format: json") || !strings.Contains(r.stdout, config.EnvFormat) {
		t.Errorf("unexpected show output\n%s", r.stdout)
	}

	path := writeFile(t, "doc.md", "x\n")
	r = execute(t, cfgPath, "", "parse", path)
	if r.err != nil || !strings.HasPrefix(r.stdout, "{") {
		t.Errorf("expected JSON from configured format, got %q (%v)", r.stdout, r.err)
	}
}

func TestConfigSetErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"unknown.key", "x", "알 수 없는 설정 키"},
		{"output.format", "xml", "유효하지 않은 값"},
		{"output.pretty", "maybe", "유효하지 않은 값"},
		{"log.level", "loud", "유효하지 않은 값"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			r := run(t, "config", "set", tc.key, tc.value)
			if r.err == nil || !strings.Contains(r.err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, r.err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	oldVerbose := verbose
	defer func() { verbose = oldVerbose }()

	tests := []struct {
		name      string
		verbose   bool
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"default warn", false, "", false, false},
		{"info level", false, "info", false, true},
		{"verbose wins", true, "error", true, true},
		{"bad level", false, "loud", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verbose = tc.verbose
			var buf bytes.Buffer
			log := newLogger(&buf, tc.level)
			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tc.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tc.wantDebug)
			}
			if got := strings.Contains(out, "info message"); got != tc.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tc.wantInfo)
			}
			if !strings.Contains(out, `"level":"warn"`) {
				t.Errorf("expected JSON warn entry, got %q", out)
			}
		})
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// pinEnv fixes the variables the CLI reads so the host environment does not
// leak into results.
func pinEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DEFAULT_TIMEZONE", "UTC")
	t.Setenv("DEFAULT_RUN_COUNT", "5")
	t.Setenv("MAX_RUN_COUNT", "50")
	t.Setenv("SEARCH_TIMEOUT", "5s")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_LEVEL", "info")
}

func runCLI(t *testing.T, fn func([]string, *bytes.Buffer, *bytes.Buffer) int, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := fn(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func next(args []string, stdout, stderr *bytes.Buffer) int {
	return runNext(args, stdout, stderr)
}

func random(args []string, stdout, stderr *bytes.Buffer) int {
	return runRandom(args, stdout, stderr)
}

func validate(args []string, stdout, stderr *bytes.Buffer) int {
	return runValidate(args, stdout, stderr)
}

const fixedFrom = "2024-03-05T10:00:00Z"

func TestRunNext_Text(t *testing.T) {
	pinEnv(t)

	code, out, errOut := runCLI(t, next, "--from", fixedFrom, "-n", "3", "5", "4", "*", "*", "*")
	if code != exitSuccess {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}

	for _, want := range []string{
		"5 4 * * *",
		"At 04:05 every day.",
		"Wed, 06 Mar 2024 04:05",
		"Thu, 07 Mar 2024 04:05",
		"Fri, 08 Mar 2024 04:05",
		"from now",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Sat, 09 Mar 2024") {
		t.Errorf("expected 3 runs only:\n%s", out)
	}
}

func TestRunNext_JSON(t *testing.T) {
	pinEnv(t)

	code, out, errOut := runCLI(t, next, "-o", "json", "--from", fixedFrom, "--tz", "America/New_York", "-n", "2", "0 9 * * 1-5")
	if code != exitSuccess {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}

	var got nextOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if got.Expression != "0 9 * * 1-5" || got.Timezone != "America/New_York" {
		t.Errorf("got expression=%q timezone=%q", got.Expression, got.Timezone)
	}
	// 10:00Z is 05:00 in New York, so Tuesday 09:00 local is still ahead.
	want := []string{"2024-03-05T09:00:00-05:00", "2024-03-06T09:00:00-05:00"}
	if len(got.Runs) != len(want) {
		t.Fatalf("runs = %v, want %v", got.Runs, want)
	}
	for i := range want {
		if got.Runs[i] != want[i] {
			t.Errorf("runs[%d] = %s, want %s", i, got.Runs[i], want[i])
		}
	}
}

func TestRunNext_YAML(t *testing.T) {
	pinEnv(t)

	code, out, errOut := runCLI(t, next, "--output", "yaml", "--from", fixedFrom, "--count", "1", "0 12 15 * *")
	if code != exitSuccess {
		t.Fatalf("exit %d, stderr: %s", code, errOut)
	}

	var got nextOutput
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, out)
	}
	if len(got.Runs) != 1 || got.Runs[0] != "2024-03-15T12:00:00Z" {
		t.Errorf("runs = %v", got.Runs)
	}
	if got.Summary != "Next run is Fri Mar 15 2024 12:00 (UTC)." {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestRunNext_ExitCodes(t *testing.T) {
	pinEnv(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no expression", []string{"--from", fixedFrom}, exitInvalidConfig},
		{"wrong field count", []string{"* * *"}, exitInvalidConfig},
		{"out of range", []string{"61 * * * *"}, exitInvalidConfig},
		{"bad step", []string{"*/0 * * * *"}, exitInvalidConfig},
		{"unknown flag", []string{"--bogus", "* * * * *"}, exitInvalidConfig},
		{"bad from", []string{"--from", "yesterday", "* * * * *"}, exitInvalidConfig},
		{"bad timezone", []string{"--tz", "Mars/Olympus", "* * * * *"}, exitInvalidConfig},
		{"bad output", []string{"-o", "xml", "* * * * *"}, exitInvalidConfig},
		{"negative count", []string{"-n", "-1", "* * * * *"}, exitInvalidConfig},
		{"never fires", []string{"--from", fixedFrom, "0 0 31 2 *"}, exitRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, next, tt.args...)
			if code != tt.want {
				t.Errorf("exit = %d, want %d (stderr: %s)", code, tt.want, errOut)
			}
			if errOut == "" {
				t.Error("expected a message on stderr")
			}
		})
	}
}

var dailyExpr = regexp.MustCompile(`^\d{1,2} \d{1,2} \* \* \*$`)

func TestRunRandom_Seeded(t *testing.T) {
	code, first, _ := runCLI(t, random, "-n", "3", "--seed", "42")
	if code != exitSuccess {
		t.Fatalf("exit %d", code)
	}
	_, second, _ := runCLI(t, random, "--count", "3", "--seed", "42")

	if first != second {
		t.Errorf("same seed gave different output:\n%s\n%s", first, second)
	}

	lines := strings.Split(strings.TrimSpace(first), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), first)
	}
	for _, l := range lines {
		if !dailyExpr.MatchString(l) {
			t.Errorf("unexpected expression %q", l)
		}
	}
}

func TestRunRandom_InvalidCount(t *testing.T) {
	if code, _, _ := runCLI(t, random, "-n", "0"); code != exitInvalidConfig {
		t.Errorf("exit = %d, want %d", code, exitInvalidConfig)
	}
}

func TestRunValidate_Expression(t *testing.T) {
	code, out, _ := runCLI(t, validate, "0", "9-17", "*", "*", "mon-fri")
	if code != exitSuccess {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out, "expression valid: 0 9-17 * * mon-fri") {
		t.Errorf("unexpected output %q", out)
	}

	code, _, errOut := runCLI(t, validate, "0 25 * * *")
	if code != exitInvalidConfig {
		t.Errorf("exit = %d, want %d", code, exitInvalidConfig)
	}
	if !strings.Contains(errOut, "invalid expression") {
		t.Errorf("unexpected stderr %q", errOut)
	}
}

func TestRunValidate_Config(t *testing.T) {
	pinEnv(t)

	if code, out, _ := runCLI(t, validate); code != exitSuccess || !strings.Contains(out, "configuration valid") {
		t.Errorf("exit = %d, output %q", code, out)
	}

	t.Setenv("LOG_FORMAT", "xml")
	if code, _, errOut := runCLI(t, validate); code != exitInvalidConfig || !strings.Contains(errOut, "LOG_FORMAT") {
		t.Errorf("exit = %d, stderr %q", code, errOut)
	}
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	if code := runVersion(&buf); code != exitSuccess {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(buf.String(), "cronpeek version dev") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPrintUsage_ListsCommands(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	for _, cmd := range []string{"serve", "next", "random", "validate", "config", "version", "SEARCH_TIMEOUT"} {
		if !strings.Contains(buf.String(), cmd) {
			t.Errorf("usage missing %q", cmd)
		}
	}
}

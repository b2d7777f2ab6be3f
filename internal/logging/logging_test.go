package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	Info("rules loaded", "count", 3)

	output := buf.String()
	if !strings.Contains(output, "rules loaded") || !strings.Contains(output, "count=3") {
		t.Errorf("unexpected text output: %s", output)
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, true, &buf)

	Info("rules loaded", "count", 3)

	output := buf.String()
	if !strings.Contains(output, `"msg":"rules loaded"`) {
		t.Errorf("Expected JSON output, got: %s", output)
	}
}

func TestSetup_Verbosity(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    bool
	}{
		{"verbose shows debug", true, true},
		{"quiet hides debug", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.verbose, false, &buf)

			if Verbose != tt.verbose {
				t.Errorf("Verbose = %v, want %v", Verbose, tt.verbose)
			}

			Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.want {
				t.Errorf("debug visible = %v, want %v (output %q)", got, tt.want, buf.String())
			}
		})
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	Warn("warn test")
	Error("error test")

	output := buf.String()
	for _, want := range []string{"level=WARN", "warn test", "level=ERROR", "error test"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestSetup_InstallsDefault(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	slog.Default().Info("via default")

	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("slog.Default should write to the configured writer, got: %s", buf.String())
	}
}

func TestWithAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	With("gate", "connect").Info("with test")
	Component("reload").Info("component test")

	output := buf.String()
	for _, want := range []string{"gate=connect", "with test", "component=reload", "component test"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestSetup_NilWriter(t *testing.T) {
	Setup(false, false, nil)

	if Logger == nil {
		t.Error("Logger should not be nil after Setup with nil writer")
	}
}

func TestUserOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	SetUserOutput(&out, &errOut)
	defer SetUserOutput(nil, nil)

	UserInfo("loaded %d rules", 2)
	UserSuccess("%s allowed", "api.example.com")
	UserWarning("line %d skipped", 4)
	UserError("%s blocked", "evil.example")

	if got := out.String(); got != "ℹ loaded 2 rules\n✓ api.example.com allowed\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "⚠ line 4 skipped\n✗ evil.example blocked\n" {
		t.Errorf("stderr = %q", got)
	}
}

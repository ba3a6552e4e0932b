package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisplayWarning_TitleOnly(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "Configuration Missing"}.Display(&buf)

	want := "⚠️  Warning: Configuration Missing\n"
	if buf.String() != want {
		t.Errorf("Display() = %q, want %q", buf.String(), want)
	}
}

func TestDisplayWarning_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "x", Message: "y"}.Display(&buf)

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected no ANSI codes for non-terminal writer, got %q", buf.String())
	}
}

func TestDisplayWarning_AllFields(t *testing.T) {
	var buf bytes.Buffer
	w := Warning{
		Title:      "Crew features not executed locally",
		Message:    "The local runner ignores some settings",
		Items:      []string{"memory is enabled", "agent \"Writer\" declares tools"},
		Suggestion: "Remove them from the crew file",
	}
	w.Display(&buf)

	want := "⚠️  Warning: Crew features not executed locally\n" +
		"    The local runner ignores some settings\n" +
		"      1. memory is enabled\n" +
		"      2. agent \"Writer\" declares tools\n" +
		"    Suggestion: Remove them from the crew file\n"
	if buf.String() != want {
		t.Errorf("Display() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWarningRender_Colored(t *testing.T) {
	out := Warning{Title: "Colored"}.render(true)

	// fatih/color honours NO_COLOR and non-TTY stdout globally; only check content.
	if !strings.Contains(out, "Colored") {
		t.Errorf("render(true) missing title, got %q", out)
	}
}

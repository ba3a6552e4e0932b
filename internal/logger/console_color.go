package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/crewlocal/internal/models"
)

// colorScheme defines consistent colors for task metrics.
// Green: saved outputs
// Yellow: cache hits and reviewer feedback
// Cyan: labels
type colorScheme struct {
	success *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats "label: value" with a cyan label.
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %s", scheme.label.Sprint(label), scheme.value.Sprintf("%v", value))
}

// formatTaskMetrics renders the trailing details of a task completion line.
// Format: " - model: qwen2.5:7b, words: 412, cached, saved: outputs/01.md"
// Returns an empty string when there is nothing to report.
func formatTaskMetrics(output models.TaskOutput, colored bool) string {
	scheme := newColorScheme()
	var parts []string

	metric := func(label string, value interface{}) string {
		if colored {
			return formatColorizedMetric(label, value, scheme)
		}
		return fmt.Sprintf("%s: %v", label, value)
	}

	if output.Model != "" {
		parts = append(parts, metric("model", output.Model))
	}
	if words := len(strings.Fields(output.Raw)); words > 0 {
		parts = append(parts, metric("words", words))
	}
	if output.Cached {
		if colored {
			parts = append(parts, scheme.warn.Sprint("cached"))
		} else {
			parts = append(parts, "cached")
		}
	}
	if output.Feedback != "" {
		if colored {
			parts = append(parts, scheme.warn.Sprint("revised"))
		} else {
			parts = append(parts, "revised")
		}
	}
	if output.OutputFile != "" {
		if colored {
			parts = append(parts, fmt.Sprintf("%s: %s", scheme.success.Sprint("saved"), output.OutputFile))
		} else {
			parts = append(parts, "saved: "+output.OutputFile)
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return " - " + strings.Join(parts, ", ")
}

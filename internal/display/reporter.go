package display

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

const (
	// ruleWidth is the width of the "=" lines framing every section.
	ruleWidth = 70

	// AgentRoleWidth is the number of characters of an agent role shown in the startup banner.
	AgentRoleWidth = 55

	// TaskDescriptionWidth is the number of characters of a task description shown in the startup banner.
	TaskDescriptionWidth = 50

	// DefaultProcess is shown when StartupOptions.Process is empty.
	DefaultProcess = "N/A"

	// DefaultEstimatedTime is shown when StartupOptions.EstimatedTime is empty.
	DefaultEstimatedTime = "2-5 minutes"

	timeLayout = "2006-01-02 15:04:05"
	indent     = "      "
)

// cells measures display columns without consulting the locale, so
// East Asian ambiguous glyphs like the box borders are one column everywhere.
var cells = &runewidth.Condition{StrictEmojiNeutral: true}

// StartupOptions holds the run configuration shown in the startup banner.
// Zero values fall back to the documented defaults.
type StartupOptions struct {
	Process       string // display tag, e.g. "Sequential"
	Memory        bool
	Cache         bool
	MaxRPM        *int // nil omits the Max RPM line
	Verbose       bool
	EstimatedTime string
}

// Reporter writes run lifecycle banners to a writer.
type Reporter struct {
	writer      io.Writer
	now         func() time.Time
	colorOutput bool
}

// NewReporter creates a Reporter writing to w. A nil writer means os.Stdout.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{
		writer:      w,
		now:         time.Now,
		colorOutput: isTerminal(w),
	}
}

// WithClock replaces the clock used for start/end timestamps and durations.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	if now != nil {
		r.now = now
	}
	return r
}

// isTerminal reports whether w is a color-capable TTY.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) && !color.NoColor
}

// PrintSection writes a title framed by rules, followed by content when present.
func (r *Reporter) PrintSection(title, content string) {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)

	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n  ")
	b.WriteString(r.title(title))
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n")
	if content != "" {
		b.WriteString(content)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprint(r.writer, b.String())
}

func (r *Reporter) title(s string) string {
	if !r.colorOutput {
		return s
	}
	return color.New(color.FgCyan, color.Bold).Sprint(s)
}

// PrintCrewStartup writes the startup banner: start time, numbered agent and
// task boxes, the configuration list and the estimated time.
func (r *Reporter) PrintCrewStartup(agents, tasks []string, model string, opts StartupOptions) {
	process := opts.Process
	if process == "" {
		process = DefaultProcess
	}
	estimated := opts.EstimatedTime
	if estimated == "" {
		estimated = DefaultEstimatedTime
	}

	lines := []string{
		indent + "⏰ Start Time: " + r.now().Format(timeLayout),
		"",
		fmt.Sprintf("%s👥 AGENTS (%d):", indent, len(agents)),
	}
	lines = append(lines, numberedBox(agents, AgentRoleWidth)...)
	lines = append(lines,
		"",
		fmt.Sprintf("%s📋 TASKS (%d):", indent, len(tasks)),
	)
	lines = append(lines, numberedBox(tasks, TaskDescriptionWidth)...)
	lines = append(lines,
		"",
		indent+"🔧 CONFIGURATION:",
		indent+"• Process: "+process,
		indent+"• Model: "+model,
		indent+"• Memory: "+enabled(opts.Memory),
		indent+"• Cache: "+enabled(opts.Cache),
	)
	if opts.MaxRPM != nil {
		lines = append(lines, fmt.Sprintf("%s• Max RPM: %d", indent, *opts.MaxRPM))
	}
	lines = append(lines,
		indent+"• Verbose: "+strconv.FormatBool(opts.Verbose),
		"",
		indent+"⚠️  ESTIMATED TIME: "+estimated,
	)

	r.PrintSection("🚀 CREW EXECUTION STARTING", body(lines))
}

// PrintExecutionStart announces that the crew has been kicked off.
func (r *Reporter) PrintExecutionStart() {
	r.PrintSection("⚙️  EXECUTING CREW", "Watch the agents work in real-time below...\n")
}

// PrintExecutionComplete writes the end time and the time elapsed since start.
// A non-nil result that renders to a non-empty string is printed after the banner.
func (r *Reporter) PrintExecutionComplete(start time.Time, result any) {
	end := r.now()
	elapsed := end.Sub(start).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	r.PrintSection("✅ EXECUTION COMPLETE", body([]string{
		indent + "⏰ End Time: " + end.Format(timeLayout),
		fmt.Sprintf("%s⏱️  Duration: %s", indent, FormatElapsed(elapsed)),
		"",
		indent + "📄 RESULT:",
	}))

	if text, ok := printable(result); ok {
		fmt.Fprintln(r.writer, text)
	}
}

// PrintOutputsSaved lists the files a run produced, in the order given.
// The directory note is only written when outputDir is non-empty.
func (r *Reporter) PrintOutputsSaved(files []string, outputDir string) {
	lines := make([]string, 0, len(files)+1)
	for _, f := range files {
		lines = append(lines, indent+"✅ "+f)
	}
	if outputDir != "" {
		lines = append(lines, indent+"📁 All files saved in "+outputDir+"/")
	}
	r.PrintSection("📁 OUTPUTS SAVED", body(lines))
}

// FormatElapsed renders seconds as "S.SS seconds (M.M minutes)".
func FormatElapsed(seconds float64) string {
	return fmt.Sprintf("%.2f seconds (%.1f minutes)", seconds, seconds/60)
}

// NewTimer returns a function reporting the seconds elapsed since NewTimer was called.
func NewTimer() func() float64 {
	start := time.Now()
	return func() float64 {
		return time.Since(start).Seconds()
	}
}

// Truncate cuts s to at most n display columns. Wide glyphs such as CJK
// count as two columns, so the result never overflows a box cell.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return cells.Truncate(s, n, "")
}

// numberedBox renders items as "N. item" lines inside a box, each item cut
// and padded to width columns.
func numberedBox(items []string, width int) []string {
	numWidth := len(strconv.Itoa(len(items)))
	inner := numWidth + 4 + width

	lines := make([]string, 0, len(items)+2)
	lines = append(lines, indent+"┌"+strings.Repeat("─", inner)+"┐")
	for i, item := range items {
		cell := cells.FillRight(Truncate(item, width), width)
		lines = append(lines, fmt.Sprintf("%s│ %*d. %s │", indent, numWidth, i+1, cell))
	}
	lines = append(lines, indent+"└"+strings.Repeat("─", inner)+"┘")
	return lines
}

func body(lines []string) string {
	return "\n" + strings.Join(lines, "\n") + "\n"
}

func enabled(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}

// printable converts result to its display text. Falsy values are not
// printable: nil (including typed nil pointers), false, numeric zero, empty
// strings and empty slices, maps and arrays. So are values rendering to "".
func printable(result any) (string, bool) {
	if result == nil {
		return "", false
	}
	v := reflect.ValueOf(result)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func:
		if v.IsNil() {
			return "", false
		}
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan, reflect.String:
		if v.Len() == 0 {
			return "", false
		}
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		if v.IsZero() {
			return "", false
		}
	}
	text := fmt.Sprint(result)
	return text, text != ""
}

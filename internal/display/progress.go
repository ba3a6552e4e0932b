package display

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
)

// ProgressIndicator reports crew files as they finish loading. Step may be
// called from several goroutines; the counter always prints in order.
type ProgressIndicator struct {
	mu          sync.Mutex
	writer      io.Writer
	total       int
	current     int
	colorOutput bool
}

// NewProgressIndicator creates a progress indicator for total files
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer:      w,
		total:       total,
		colorOutput: isTerminal(w),
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Loading crew files:\n")
}

// Step displays progress for one loaded file: [N/Total] filename
func (p *ProgressIndicator) Step(filename string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	line := fmt.Sprintf("  [%d/%d] %s", p.current, p.total, filepath.Base(filename))
	if p.colorOutput {
		line = color.CyanString(line)
	}
	fmt.Fprintln(p.writer, line)
}

// Complete displays the success line with a checkmark
func (p *ProgressIndicator) Complete() {
	check := "✓"
	if p.colorOutput {
		check = color.GreenString(check)
	}
	fmt.Fprintf(p.writer, "%s Loaded %d crew files\n\n", check, p.total)
}

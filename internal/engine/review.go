package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/crewlocal/internal/display"
	"github.com/harrison/crewlocal/internal/models"
)

// Reviewer is asked for feedback on tasks marked human_input. An empty
// answer accepts the output.
type Reviewer interface {
	Review(ctx context.Context, task models.Task, output string) (string, error)
}

// PromptReviewer asks for feedback on a terminal.
type PromptReviewer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptReviewer reads answers from in and writes questions to out.
func NewPromptReviewer(in io.Reader, out io.Writer) *PromptReviewer {
	return &PromptReviewer{in: bufio.NewReader(in), out: out}
}

// Review shows output and reads one line of feedback. End of input accepts.
func (p *PromptReviewer) Review(ctx context.Context, task models.Task, output string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reporter := display.NewReporter(p.out)
	reporter.PrintSection("📝 REVIEW: "+task.Name, strings.TrimSpace(output))
	fmt.Fprint(p.out, "Provide feedback on the final result (press Enter to accept): ")

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read feedback: %w", err)
	}
	return strings.TrimSpace(line), nil
}

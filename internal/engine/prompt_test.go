package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/crewlocal/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	task := models.Task{
		Description:    "  Write a 900 word article  ",
		ExpectedOutput: "Complete article in Markdown",
	}

	got := buildPrompt(task, []string{"findings", "outline"})
	want := "Current Task: Write a 900 word article\n" +
		"\nThis is the expected criteria for your final answer: Complete article in Markdown\n" +
		"You MUST return the actual complete content as the final answer, not a summary.\n" +
		"\nThis is the context you're working with:\n" +
		"findings\n\n----------\n\noutline\n" +
		"\nBegin! This is VERY important to you, give your best Final Answer.\n"
	assert.Equal(t, want, got)
}

func TestBuildPromptMinimal(t *testing.T) {
	got := buildPrompt(models.Task{Description: "Say hello"}, nil)
	assert.Equal(t, "Current Task: Say hello\n\nBegin! This is VERY important to you, give your best Final Answer.\n", got)
}

func TestRevisionPrompt(t *testing.T) {
	got := revisionPrompt("P\n", "old", " be brief ")
	assert.True(t, strings.HasPrefix(got, "P\n\nYour previous answer was:\nold\n"))
	assert.Contains(t, got, "feedback:\nbe brief\n")
}

func TestPromptReviewer(t *testing.T) {
	var out strings.Builder
	reviewer := NewPromptReviewer(strings.NewReader("  tighten the intro \nignored\n"), &out)

	feedback, err := reviewer.Review(context.Background(), models.Task{Name: "write"}, "Draft text")
	require.NoError(t, err)
	assert.Equal(t, "tighten the intro", feedback)
	assert.Contains(t, out.String(), "📝 REVIEW: write")
	assert.Contains(t, out.String(), "Draft text")
	assert.Contains(t, out.String(), "press Enter to accept")

	feedback, err = reviewer.Review(context.Background(), models.Task{Name: "write"}, "Draft text")
	require.NoError(t, err)
	assert.Equal(t, "ignored", feedback)

	feedback, err = reviewer.Review(context.Background(), models.Task{Name: "write"}, "Draft text")
	require.NoError(t, err)
	assert.Empty(t, feedback)
}

func TestPromptReviewerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPromptReviewer(strings.NewReader("x\n"), &strings.Builder{}).Review(ctx, models.Task{}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(0))
	assert.Nil(t, newLimiter(-5))

	l := newLimiter(60)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
	assert.InDelta(t, 1.0, float64(l.Limit()), 1e-9)

	assert.NoError(t, waitAll(context.Background(), nil, l))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, waitAll(ctx, l))
}

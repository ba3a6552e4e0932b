package engine

import (
	"strings"

	"github.com/harrison/crewlocal/internal/models"
)

const contextSeparator = "\n\n----------\n\n"

// buildPrompt renders the user prompt for task. The agent persona travels
// separately as the system prompt.
func buildPrompt(task models.Task, prior []string) string {
	var sb strings.Builder
	sb.WriteString("Current Task: ")
	sb.WriteString(strings.TrimSpace(task.Description))
	sb.WriteString("\n")

	if expected := strings.TrimSpace(task.ExpectedOutput); expected != "" {
		sb.WriteString("\nThis is the expected criteria for your final answer: ")
		sb.WriteString(expected)
		sb.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.\n")
	}

	if len(prior) > 0 {
		sb.WriteString("\nThis is the context you're working with:\n")
		sb.WriteString(strings.Join(prior, contextSeparator))
		sb.WriteString("\n")
	}

	sb.WriteString("\nBegin! This is VERY important to you, give your best Final Answer.\n")
	return sb.String()
}

// revisionPrompt asks the model to rework previous in light of feedback.
func revisionPrompt(prompt, previous, feedback string) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\nYour previous answer was:\n")
	sb.WriteString(previous)
	sb.WriteString("\n\nA human reviewer gave this feedback:\n")
	sb.WriteString(strings.TrimSpace(feedback))
	sb.WriteString("\n\nRevise your answer accordingly and return the complete final answer.\n")
	return sb.String()
}

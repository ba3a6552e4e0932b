// Package display renders the console banners printed around a crew run.
//
// A run prints four sections in order, each framed by 70-column rules:
//
//	r := display.NewReporter(os.Stdout)
//	r.PrintCrewStartup(roles, descriptions, "ollama/qwen2.5:7b", display.StartupOptions{
//	    Process: "Sequential",
//	    Cache:   true,
//	})
//	start := time.Now()
//	r.PrintExecutionStart()
//	result, err := runner.Kickoff(ctx, c)
//	r.PrintExecutionComplete(start, result)
//	r.PrintOutputsSaved(c.OutputFiles(), "outputs")
//
// The Reporter does not enforce that order and keeps no state between calls.
// Agent roles are cut to 55 characters and task descriptions to 50 so the
// bordered lists line up; nothing else is validated.
//
// # Warnings
//
// Warning prints a yellow, indented block for non-fatal problems:
//
//	display.Warning{
//	    Title:      "Crew features not executed locally",
//	    Items:      c.Warnings(),
//	    Suggestion: "Remove them from the crew file to silence this warning",
//	}.Display(os.Stderr)
//
// # Colors
//
// Titles are colored with fatih/color only when the destination is a
// terminal. Any other io.Writer receives plain text, which keeps output
// byte-identical for identical inputs.
package display

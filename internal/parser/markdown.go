package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/crewlocal/internal/models"
)

// MarkdownParser parses crew files written as Markdown.
//
// Crew settings live in YAML frontmatter. Each "## Agent: <role>" section
// declares an agent and each "## Task: <name>" section a task. Lines of the
// form "**Field**: value" set fields; every other paragraph is the agent's
// backstory or the task's description.
type MarkdownParser struct {
	markdown goldmark.Markdown
}

var (
	sectionRegex = regexp.MustCompile(`^(?i)(agent|task):\s*(.+)$`)
	fieldRegex   = regexp.MustCompile(`^\*\*([^*]+)\*\*:\s*(.*)$`)
)

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionAgent
	sectionTask
)

// section accumulates one agent or task while walking the document
type section struct {
	kind   sectionKind
	title  string
	fields map[string]string
	order  []string
	body   []string
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

func (p *MarkdownParser) Parse(r io.Reader) (*models.Crew, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	crew := &models.Crew{}
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		if err := yaml.Unmarshal(frontmatter, crew); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))

	sections, err := collectSections(doc, content)
	if err != nil {
		return nil, err
	}

	for _, s := range sections {
		switch s.kind {
		case sectionAgent:
			agent, err := s.agent()
			if err != nil {
				return nil, fmt.Errorf("agent %q: %w", s.title, err)
			}
			crew.Agents = append(crew.Agents, agent)
		case sectionTask:
			task, err := s.task()
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", s.title, err)
			}
			crew.Tasks = append(crew.Tasks, task)
		}
	}

	if err := normalizeProcess(crew); err != nil {
		return nil, err
	}
	return crew, nil
}

// collectSections walks the top-level blocks of doc, opening a section at
// every level 2 "Agent:" or "Task:" heading. Any other heading of level 1 or
// 2 closes the current section.
func collectSections(doc ast.Node, source []byte) ([]*section, error) {
	var sections []*section
	var current *section

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok && heading.Level <= 2 {
			current = nil
			if heading.Level != 2 {
				continue
			}
			matches := sectionRegex.FindStringSubmatch(strings.TrimSpace(string(nodeLines(heading, source))))
			if matches == nil {
				continue
			}
			current = &section{
				title:  strings.TrimSpace(matches[2]),
				fields: make(map[string]string),
			}
			if strings.EqualFold(matches[1], "agent") {
				current.kind = sectionAgent
			} else {
				current.kind = sectionTask
			}
			sections = append(sections, current)
			continue
		}

		if current == nil {
			continue
		}

		if para, ok := n.(*ast.Paragraph); ok {
			if err := current.addParagraph(nodeLines(para, source)); err != nil {
				return nil, err
			}
			continue
		}

		if raw := strings.TrimSpace(string(blockSource(n, source))); raw != "" {
			current.body = append(current.body, raw)
		}
	}

	return sections, nil
}

// addParagraph splits a paragraph into "**Field**: value" lines and body text.
func (s *section) addParagraph(raw []byte) error {
	var body []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := fieldRegex.FindStringSubmatch(line); m != nil {
			key := fieldKey(m[1])
			if _, dup := s.fields[key]; dup {
				return fmt.Errorf("%q: field %q set twice", s.title, m[1])
			}
			s.fields[key] = strings.TrimSpace(m[2])
			s.order = append(s.order, key)
			continue
		}
		body = append(body, line)
	}
	if len(body) > 0 {
		s.body = append(s.body, strings.Join(body, "\n"))
	}
	return nil
}

func (s *section) text() string {
	return strings.Join(s.body, "\n\n")
}

func (s *section) agent() (models.Agent, error) {
	agent := models.Agent{Role: s.title, Backstory: s.text()}
	for _, key := range s.order {
		value := s.fields[key]
		var err error
		switch key {
		case "goal":
			agent.Goal = value
		case "backstory":
			agent.Backstory = joinText(value, agent.Backstory)
		case "llm", "model":
			agent.LLM = value
		case "temperature":
			var temp float64
			temp, err = strconv.ParseFloat(value, 64)
			agent.Temperature = &temp
		case "allow_delegation":
			agent.AllowDelegation, err = strconv.ParseBool(value)
		case "max_iter":
			agent.MaxIter, err = strconv.Atoi(value)
		case "max_rpm":
			agent.MaxRPM, err = strconv.Atoi(value)
		case "verbose":
			agent.Verbose, err = strconv.ParseBool(value)
		case "tools":
			agent.Tools = splitList(value)
		default:
			return agent, fmt.Errorf("unknown agent field %q", key)
		}
		if err != nil {
			return agent, fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}
	return agent, nil
}

func (s *section) task() (models.Task, error) {
	task := models.Task{Name: s.title, Description: s.text()}
	for _, key := range s.order {
		value := s.fields[key]
		var err error
		switch key {
		case "agent":
			task.Agent = value
		case "description":
			task.Description = joinText(value, task.Description)
		case "expected_output":
			task.ExpectedOutput = value
		case "output_file":
			task.OutputFile = strings.Trim(value, "`")
		case "context":
			task.Context = splitList(value)
		case "async_execution":
			task.AsyncExecution, err = strconv.ParseBool(value)
		case "human_input":
			task.HumanInput, err = strconv.ParseBool(value)
		case "tools":
			task.Tools = splitList(value)
		default:
			return task, fmt.Errorf("unknown task field %q", key)
		}
		if err != nil {
			return task, fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}
	return task, nil
}

// fieldKey turns "Expected Output" into "expected_output".
func fieldKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// splitList splits "a, b , c" into trimmed non-empty items.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.Trim(strings.TrimSpace(item), "`")
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func joinText(first, rest string) string {
	if rest == "" {
		return first
	}
	if first == "" {
		return rest
	}
	return first + "\n\n" + rest
}

// nodeLines returns the raw source lines of a leaf block, one per line.
func nodeLines(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := seg.Value(source)
		buf.Write(line)
		if !bytes.HasSuffix(line, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// blockSource returns the source of a block, descending into containers such
// as lists so their text is kept as written.
func blockSource(n ast.Node, source []byte) []byte {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		raw := nodeLines(n, source)
		if fenced, ok := n.(*ast.FencedCodeBlock); ok {
			lang := string(fenced.Language(source))
			return []byte("```" + lang + "\n" + string(raw) + "```")
		}
		return raw
	}

	var buf bytes.Buffer
	if _, ok := n.(*ast.ListItem); ok {
		buf.WriteString("- ")
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		child := blockSource(c, source)
		if len(child) == 0 {
			continue
		}
		buf.Write(bytes.TrimRight(child, "\n"))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// extractFrontmatter extracts YAML frontmatter from markdown content
// Returns the content without frontmatter and the frontmatter bytes
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	// No closing delimiter found
	return content, nil
}

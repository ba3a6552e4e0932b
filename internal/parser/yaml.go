package parser

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/harrison/crewlocal/internal/models"
)

// YAMLParser parses crew files written as a single YAML document
type YAMLParser struct{}

// NewYAMLParser creates a YAMLParser
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Parse decodes a crew. Unknown keys are rejected so typos such as
// "expected_ouput" do not silently drop settings.
func (p *YAMLParser) Parse(r io.Reader) (*models.Crew, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var crew models.Crew
	if err := dec.Decode(&crew); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty crew file")
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	if err := normalizeProcess(&crew); err != nil {
		return nil, err
	}
	return &crew, nil
}

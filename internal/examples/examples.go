// Package examples holds the curated question/query pairs shown to the
// model as few-shot examples, and seeds them into the shared vector index.
package examples

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const CollectionName = "fewshot_examples"

//go:embed curated.yaml
var curatedYAML []byte

type Example struct {
	Question string `yaml:"question" json:"question"`
	Query    string `yaml:"query" json:"query"`
}

// Text is the embedded and prompted form of the example.
func (e Example) Text() string {
	return "Q: " + e.Question + "\nSQL: " + e.Query
}

var curated = sync.OnceValue(func() []Example {
	parsed, err := Parse(curatedYAML)
	if err != nil {
		panic(fmt.Sprintf("curated examples: %v", err))
	}
	return parsed
})

// Curated returns a copy of the built-in example set.
func Curated() []Example {
	return append([]Example(nil), curated()...)
}

func Load(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples file: %w", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse examples file %q: %w", path, err)
	}
	return parsed, nil
}

// Parse decodes a YAML list of {question, query} pairs. Every entry needs
// both fields.
func Parse(data []byte) ([]Example, error) {
	var parsed []Example
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode examples: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no examples defined")
	}
	for i := range parsed {
		parsed[i].Question = strings.TrimSpace(parsed[i].Question)
		parsed[i].Query = strings.TrimSpace(parsed[i].Query)
		if parsed[i].Question == "" || parsed[i].Query == "" {
			return nil, fmt.Errorf("example %d: question and query are required", i)
		}
	}
	return parsed, nil
}

func FormatBlock(examples []Example) string {
	texts := make([]string, 0, len(examples))
	for _, example := range examples {
		texts = append(texts, example.Text())
	}
	return strings.Join(texts, "\n\n")
}

package triage

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ruleDocument is the mapping form of a rule file. A file may also be a
// bare sequence of rules.
type ruleDocument struct {
	RedFlags []string   `yaml:"red_flags"`
	Rules    []RuleSpec `yaml:"rules"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() *RuleTable {
	t, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("load embedded rules.yaml: %v", err))
	}
	return t
}

func LoadRules(r io.Reader) (*RuleTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

func LoadRulesFile(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}
	t, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %q: %w", path, err)
	}
	return t, nil
}

// ParseRules decodes a YAML or JSON rule document, keeping rule order.
func ParseRules(data []byte) (*RuleTable, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty rule document", ErrInvalidRule)
	}

	node := root.Content[0]
	var doc ruleDocument
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&doc.Rules); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	case yaml.MappingNode:
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: rule document must be a list or a mapping", ErrInvalidRule)
	}

	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules defined", ErrInvalidRule)
	}
	return NewRuleTable(doc.Rules, doc.RedFlags)
}

package config

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/interleave/internal/alias"
)

// List is a string list written either as a YAML sequence or as one string
// separated by commas or plus signs ("minify+lint").
type List []string

func (l *List) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = split(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = splitAll(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list", node.Line)
	}
}

func split(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '+' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func splitAll(items []string) []string {
	var out []string
	for _, item := range items {
		out = append(out, split(item)...)
	}
	return out
}

// AliasList keeps aliases in the order they are declared in the YAML mapping.
type AliasList []alias.Rule

func (a *AliasList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: aliases must be a mapping of name to replacement", node.Line)
	}
	rules := make(AliasList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: alias %q must map to a string", v.Line, k.Value)
		}
		rules = rules.Set(alias.Rule{Name: k.Value, Replacement: v.Value})
	}
	*a = rules
	return nil
}

func (a AliasList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, r := range a {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.Replacement},
		)
	}
	return node, nil
}

// Set replaces the rule with the same name in place, or appends it.
func (a AliasList) Set(r alias.Rule) AliasList {
	if i := slices.IndexFunc(a, func(x alias.Rule) bool { return x.Name == r.Name }); i >= 0 {
		out := slices.Clone(a)
		out[i] = r
		return out
	}
	return append(a, r)
}

func (a AliasList) Rules() []alias.Rule {
	return slices.Clone([]alias.Rule(a))
}

// Package alias rewrites include directive targets using prefix rules.
//
// A rule named "vendor" matches targets written as "vendor!rest". When the
// replacement ends with a slash the remainder is appended ("vendor/rest"),
// otherwise the replacement stands for the whole target.
package alias

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is a single alias declaration.
type Rule struct {
	Name        string
	Replacement string
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp
}

// Resolver applies an ordered list of rules.
type Resolver struct {
	rules []compiledRule
}

// NewResolver compiles rules in declaration order.
func NewResolver(rules []Rule) (*Resolver, error) {
	r := &Resolver{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("alias with empty name (replacement %q)", rule.Replacement)
		}
		r.rules = append(r.rules, compiledRule{
			Rule:    rule,
			pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(rule.Name) + `!(.*)$`),
		})
	}
	return r, nil
}

// Rules returns the rules in evaluation order.
func (r *Resolver) Rules() []Rule {
	if r == nil {
		return nil
	}
	out := make([]Rule, len(r.rules))
	for i, c := range r.rules {
		out[i] = c.Rule
	}
	return out
}

// Resolve makes one pass over the rules in order. Each rule is tested against
// the output of the rules before it, and no rule runs twice.
func (r *Resolver) Resolve(target string) string {
	if r == nil {
		return target
	}
	for _, rule := range r.rules {
		m := rule.pattern.FindStringSubmatch(target)
		if m == nil {
			continue
		}
		if strings.HasSuffix(rule.Replacement, "/") {
			target = rule.Replacement + m[1]
		} else {
			target = rule.Replacement
		}
	}
	return target
}

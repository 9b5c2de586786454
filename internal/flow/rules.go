package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// Validator rule kinds.
const (
	RuleMinLen   = "minlen"
	RuleRegex    = "regex"
	RuleRegexAny = "regex_any"
)

// Rule is a single validation check applied to captured free-text input.
// Rules are compiled once at graph load time; Check never fails at runtime.
type Rule struct {
	Kind  string `json:"type"`
	Value any    `json:"value"`

	min int
	re  *regexp.Regexp
}

// Compile resolves the rule's value into its runtime form. A minlen value
// must be numeric; regex patterns must compile. regex is anchored at the
// start of the input, regex_any matches anywhere.
func (r *Rule) Compile() error {
	switch r.Kind {
	case RuleMinLen:
		n, err := toInt(r.Value)
		if err != nil {
			return fmt.Errorf("minlen value %v: %w", r.Value, err)
		}
		r.min = n
	case RuleRegex:
		pattern, ok := r.Value.(string)
		if !ok {
			return fmt.Errorf("regex value must be a string, got %T", r.Value)
		}
		re, err := regexp.Compile(`\A(?:` + pattern + `)`)
		if err != nil {
			return fmt.Errorf("regex %q: %w", pattern, err)
		}
		r.re = re
	case RuleRegexAny:
		pattern, ok := r.Value.(string)
		if !ok {
			return fmt.Errorf("regex_any value must be a string, got %T", r.Value)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("regex_any %q: %w", pattern, err)
		}
		r.re = re
	default:
		return fmt.Errorf("unknown validator kind %q", r.Kind)
	}

	return nil
}

// Check reports whether value passes the rule. Length is counted in runes,
// not bytes, so multi-byte input validates the way users perceive it.
func (r *Rule) Check(value string) bool {
	switch r.Kind {
	case RuleMinLen:
		return utf8.RuneCountInString(value) >= r.min
	case RuleRegex, RuleRegexAny:
		if r.re == nil {
			return false
		}
		return r.re.MatchString(value)
	default:
		return false
	}
}

// CheckAll AND-combines every rule against value.
func CheckAll(rules []Rule, value string) bool {
	for i := range rules {
		if !rules[i].Check(value) {
			return false
		}
	}
	return true
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("not a number (%T)", v)
	}
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/htn-go/domain/config"
)

// envPattern matches ${VAR}, ${VAR:-default}, ${VAR:?message} and $VAR.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// envExpander expands environment variables in scenario text.
type envExpander struct {
	// strict fails if a plain reference names an unset variable.
	strict bool
	// lookup defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

// Expand replaces every reference in one pass; substituted values are not
// expanded again.
func (e *envExpander) Expand(input string) (string, error) {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []string
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		m := envPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		if name == "" {
			name = m[4]
		}

		value, ok := lookup(name)
		switch op {
		case "-":
			if !ok || value == "" {
				return arg
			}
		case "?":
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, arg))
				return match
			}
		default:
			if !ok {
				if e.strict {
					missing = append(missing, name)
				}
				return ""
			}
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(missing, ", "))
	}
	return out, nil
}

// ExpandEnv expands environment variables, leaving unset plain references empty.
// Required references that are unset leave the input unchanged.
func ExpandEnv(input string) string {
	out, err := (&envExpander{}).Expand(input)
	if err != nil {
		return input
	}
	return out
}

// ExpandEnvStrict expands environment variables and returns an error for missing vars.
func ExpandEnvStrict(input string) (string, error) {
	return (&envExpander{strict: true}).Expand(input)
}

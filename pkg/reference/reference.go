// Package reference detects and resolves inter-module references inside
// arbitrarily nested configuration values.
//
// A reference names exactly one upstream module and one output key, in one of
// two surface forms: the structured mapping {"module_id": m, "output_key": k}
// and the templated string "${m.output.k}". Both forms may appear anywhere
// inside mapping values and sequence elements; mapping keys are never scanned.
package reference

import (
	"regexp"
	"sort"

	"github.com/canvasflow/canvasflow/pkg/models"
)

// templatePattern matches ${<module_id>.output.<output_key>}. The module id
// excludes '.' and '}', the output key excludes '}'.
var templatePattern = regexp.MustCompile(`\$\{([^.}]+)\.output\.([^}]+)\}`)

const (
	moduleIDKey  = "module_id"
	outputKeyKey = "output_key"
)

// Lookup provides recorded module outputs to the resolver. A state store
// satisfies this during execution.
type Lookup interface {
	Output(moduleID string) (map[string]any, bool)
}

// Detect recursively walks a configuration value and returns the ids of all
// referenced modules, sorted and deduplicated. It is a pure function of its
// input.
func Detect(value any) []string {
	seen := make(map[string]struct{})
	detect(value, seen)

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func detect(value any, seen map[string]struct{}) {
	switch typed := value.(type) {
	case map[string]any:
		if id, _, ok := structuredReference(typed); ok {
			seen[id] = struct{}{}

			return
		}

		for _, nested := range typed {
			detect(nested, seen)
		}
	case []any:
		for _, element := range typed {
			detect(element, seen)
		}
	case string:
		for _, match := range templatePattern.FindAllStringSubmatch(typed, -1) {
			seen[match[1]] = struct{}{}
		}
	}
}

// Resolve walks a configuration value and replaces every reference site with
// the referenced module's recorded output value. Non-reference leaves are
// returned unchanged. A templated string must match the pattern exactly; the
// full-string match is replaced by the raw resolved value, preserving its
// type. A template embedded in a longer string fails with
// ErrInvalidReferenceSyntax.
func Resolve(value any, lookup Lookup) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		if id, key, ok := structuredReference(typed); ok {
			return lookupOutput(lookup, id, key)
		}

		resolved := make(map[string]any, len(typed))

		for k, nested := range typed {
			v, err := Resolve(nested, lookup)
			if err != nil {
				return nil, err
			}

			resolved[k] = v
		}

		return resolved, nil
	case []any:
		resolved := make([]any, len(typed))

		for i, element := range typed {
			v, err := Resolve(element, lookup)
			if err != nil {
				return nil, err
			}

			resolved[i] = v
		}

		return resolved, nil
	case string:
		return resolveString(typed, lookup)
	default:
		return value, nil
	}
}

// ResolveInput resolves a module's full handler input. The module_id and
// identifier fields are carried through verbatim; user_config is resolved
// recursively.
func ResolveInput(module *models.Module, lookup Lookup) (models.HandlerInput, error) {
	input := models.HandlerInput{
		ModuleID:   module.ID,
		Identifier: module.Identifier,
	}

	if module.UserConfig == nil {
		return input, nil
	}

	resolved, err := Resolve(module.UserConfig, lookup)
	if err != nil {
		return models.HandlerInput{}, err
	}

	config, ok := resolved.(map[string]any)
	if !ok {
		config = map[string]any{}
	}

	input.UserConfig = config

	return input, nil
}

func resolveString(value string, lookup Lookup) (any, error) {
	match := templatePattern.FindStringSubmatchIndex(value)
	if match == nil {
		return value, nil
	}

	if match[0] != 0 || match[1] != len(value) {
		return nil, &SyntaxError{Value: value}
	}

	return lookupOutput(lookup, value[match[2]:match[3]], value[match[4]:match[5]])
}

func lookupOutput(lookup Lookup, moduleID, outputKey string) (any, error) {
	output, ok := lookup.Output(moduleID)
	if !ok {
		return nil, &ResolutionError{ModuleID: moduleID, OutputKey: outputKey, Err: ErrUnresolvedDependency}
	}

	value, ok := output[outputKey]
	if !ok {
		return nil, &ResolutionError{ModuleID: moduleID, OutputKey: outputKey, Err: ErrMissingOutputKey}
	}

	return value, nil
}

// structuredReference reports whether a mapping node is a structured
// reference: exactly the two keys module_id and output_key, both strings.
func structuredReference(node map[string]any) (moduleID, outputKey string, ok bool) {
	if len(node) != 2 {
		return "", "", false
	}

	moduleID, idOK := node[moduleIDKey].(string)
	outputKey, keyOK := node[outputKeyKey].(string)

	if !idOK || !keyOK {
		return "", "", false
	}

	return moduleID, outputKey, true
}

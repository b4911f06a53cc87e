package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// YAML is a kong configuration loader. Keys are flag names, either at the
// top level or nested under the command they belong to:
//
//	lat-window: 0.035
//	extract:
//	  grid-dir: test_data
//
// Underscores may be used in place of dashes.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	var f kong.ResolverFunc = func(_ *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		for _, path := range candidateKeys(parent, flag.Name) {
			if raw, ok := lookup(values, path); ok {
				return scalar(flag.Name, raw)
			}
		}
		return nil, nil
	}
	return f, nil
}

func candidateKeys(parent *kong.Path, name string) [][]string {
	names := []string{name}
	if alt := strings.ReplaceAll(name, "-", "_"); alt != name {
		names = append(names, alt)
	}

	var keys [][]string
	if parent != nil {
		if node := parent.Node(); node != nil && node.Type == kong.CommandNode {
			for _, n := range names {
				keys = append(keys, []string{node.Name, n})
			}
		}
	}
	for _, n := range names {
		keys = append(keys, []string{n})
	}
	return keys
}

func lookup(values map[string]any, path []string) (any, bool) {
	var cur any = values
	for _, part := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func scalar(name string, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(v), nil
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), nil
	default:
		return nil, fmt.Errorf("config: %s: unsupported value %T", name, raw)
	}
}

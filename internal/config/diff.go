package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// DiffSerialized describes how current differs from previous. When both
// payloads decode, changes are listed per field by YAML path
// ("maxHistory: 16 -> 0"). Payloads that do not decode, or differ only in
// keys the config does not know, fall back to a line diff.
func DiffSerialized(previous, current []byte) string {
	prev, prevErr := decodeWith(previous, false)
	curr, currErr := decodeWith(current, false)
	if prevErr == nil && currErr == nil {
		if diff := DiffConfigs(prev, curr); diff != "" {
			return diff
		}
	}
	return cmp.Diff(splitLines(previous), splitLines(current))
}

// DiffConfigs lists changed fields between two configs, one per line.
func DiffConfigs(previous, current *Config) string {
	var r fieldReporter
	cmp.Equal(previous, current, cmp.Reporter(&r))
	return strings.Join(r.lines, "\n")
}

type fieldReporter struct {
	path  cmp.Path
	lines []string
}

func (r *fieldReporter) PushStep(ps cmp.PathStep) { r.path = append(r.path, ps) }

func (r *fieldReporter) PopStep() { r.path = r.path[:len(r.path)-1] }

func (r *fieldReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	r.lines = append(r.lines, fmt.Sprintf("%s: %s -> %s", yamlPath(r.path), formatValue(vx), formatValue(vy)))
}

// yamlPath renders the struct fields of p with their yaml tag names.
func yamlPath(p cmp.Path) string {
	var parts []string
	for i, step := range p {
		sf, ok := step.(cmp.StructField)
		if !ok || i == 0 {
			continue
		}
		parent := p[i-1].Type()
		for parent.Kind() == reflect.Pointer {
			parent = parent.Elem()
		}
		name := sf.Name()
		if tag, ok := parent.Field(sf.Index()).Tag.Lookup("yaml"); ok {
			if tagName, _, _ := strings.Cut(tag, ","); tagName != "" {
				name = tagName
			}
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ".")
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return "<unset>"
	}
	if v.Kind() == reflect.String {
		return fmt.Sprintf("%q", v.String())
	}
	return fmt.Sprintf("%v", v.Interface())
}

func splitLines(data []byte) []string {
	text := strings.TrimRight(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

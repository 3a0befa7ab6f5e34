package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Matrix is a set of named axes expanded into the cross product of their
// values, minus exclude rows, plus include rows. Axis and value order are
// preserved from the document so expansion is deterministic.
type Matrix struct {
	Axes    []Axis
	Include []map[string]string
	Exclude []map[string]string
}

type Axis struct {
	Key    string
	Values []string
}

func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("matrix must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		switch key {
		case "include", "exclude":
			rows, err := decodeMatrixRows(val)
			if err != nil {
				return fmt.Errorf("matrix %s: %w", key, err)
			}
			if key == "include" {
				m.Include = rows
			} else {
				m.Exclude = rows
			}
		default:
			if val.Kind != yaml.SequenceNode {
				return fmt.Errorf("matrix axis %q must be a sequence", key)
			}
			axis := Axis{Key: key}
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("matrix axis %q values must be scalars", key)
				}
				axis.Values = append(axis.Values, item.Value)
			}
			m.Axes = append(m.Axes, axis)
		}
	}
	return nil
}

func decodeMatrixRows(node *yaml.Node) ([]map[string]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("must be a sequence of mappings")
	}
	rows := make([]map[string]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("must be a sequence of mappings")
		}
		row := make(map[string]string, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			v := item.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("values must be scalars")
			}
			row[item.Content[i].Value] = v.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Expand produces the ordered list of matrix combinations. A nil matrix
// expands to a single empty combination so that matrix-less jobs still
// produce exactly one job.
func (m *Matrix) Expand() []map[string]string {
	if m == nil || len(m.Axes) == 0 {
		rows := []map[string]string{{}}
		if m != nil {
			rows = appendIncludes(rows[:0], m.Include)
			if len(rows) == 0 {
				rows = []map[string]string{{}}
			}
		}
		return rows
	}

	rows := []map[string]string{{}}
	for _, axis := range m.Axes {
		next := make([]map[string]string, 0, len(rows)*len(axis.Values))
		for _, row := range rows {
			for _, v := range axis.Values {
				combined := make(map[string]string, len(row)+1)
				for k, rv := range row {
					combined[k] = rv
				}
				combined[axis.Key] = v
				next = append(next, combined)
			}
		}
		rows = next
	}

	if len(m.Exclude) > 0 {
		kept := rows[:0]
		for _, row := range rows {
			if !matchesAny(row, m.Exclude) {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	return mergeIncludes(rows, m.Include)
}

// matchesAny reports whether every key of some pattern row equals the
// corresponding value of row.
func matchesAny(row map[string]string, patterns []map[string]string) bool {
	for _, p := range patterns {
		if len(p) == 0 {
			continue
		}
		all := true
		for k, v := range p {
			if row[k] != v {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// mergeIncludes applies include rows: a row whose shared keys all match an
// existing combination extends that combination with its extra keys; a row
// matching nothing is appended as a new combination.
func mergeIncludes(rows []map[string]string, includes []map[string]string) []map[string]string {
	for _, inc := range includes {
		matched := false
		for _, row := range rows {
			shared := false
			conflict := false
			for k, v := range inc {
				cur, ok := row[k]
				if !ok {
					continue
				}
				shared = true
				if cur != v {
					conflict = true
					break
				}
			}
			if shared && !conflict {
				matched = true
				for k, v := range inc {
					row[k] = v
				}
			}
		}
		if !matched {
			extra := make(map[string]string, len(inc))
			for k, v := range inc {
				extra[k] = v
			}
			rows = append(rows, extra)
		}
	}
	return rows
}

func appendIncludes(rows []map[string]string, includes []map[string]string) []map[string]string {
	for _, inc := range includes {
		row := make(map[string]string, len(inc))
		for k, v := range inc {
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows
}

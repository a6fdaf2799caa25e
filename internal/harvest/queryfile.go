// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// QueryFile is the on-disk representation of a set of named harvest
// queries. An operator can keep a collection corpus definition in a file
// and re-run it without retyping query expressions.
type QueryFile struct {
	Queries []QuerySpec `yaml:"queries"`
}

// QuerySpec stores one query in serializable form.
type QuerySpec struct {
	Name     string   `yaml:"name"`
	Q        string   `yaml:"q"`
	Sort     string   `yaml:"sort,omitempty"`
	Size     int      `yaml:"size,omitempty"`
	Fields   []string `yaml:"fields,omitempty"`
	Earliest string   `yaml:"earliest,omitempty"`
}

// ToQuery converts a stored entry into a Query, applying the given
// defaults for fields the entry omits.
func (s QuerySpec) ToQuery(defaults Query) (Query, error) {
	q := defaults
	q.Q = s.Q
	if s.Sort != "" {
		q.Sort = s.Sort
	}
	if s.Size > 0 {
		q.Size = s.Size
	}
	if len(s.Fields) > 0 {
		q.Fields = s.Fields
	}
	if s.Earliest != "" {
		iv, err := ParseInterval(s.Earliest)
		if err != nil {
			return q, err
		}
		q.Earliest = iv
	}
	if err := q.Validate(); err != nil {
		return q, fmt.Errorf("query %q: %w", s.Name, err)
	}
	return q, nil
}

// ReadQueryFile loads a query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if len(qf.Queries) == 0 {
		return nil, fmt.Errorf("query file %s defines no queries", path)
	}
	return &qf, nil
}

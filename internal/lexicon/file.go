package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileTables is the on-disk layout. Tables are YAML sequences, not maps,
// because match order must survive the round trip.
//
//	categories:
//	  default: Altro
//	  keywords:
//	    - {keyword: supermercato, label: Cibo}
//	payments:
//	  default: Carta
//	  keywords:
//	    - {keyword: contanti, label: Contanti}
type fileTables struct {
	Categories fileTable `yaml:"categories"`
	Payments   fileTable `yaml:"payments"`
}

type fileTable struct {
	Default  string  `yaml:"default"`
	Keywords []Entry `yaml:"keywords"`
}

// LoadFile builds a Matcher from a YAML file. A section left empty keeps
// the built-in table.
func LoadFile(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Matcher, error) {
	var ft fileTables
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("parse lexicon YAML: %w", err)
	}
	cats, err := ft.Categories.table(DefaultCategories())
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	pays, err := ft.Payments.table(DefaultPayments())
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}
	return NewMatcher(cats, pays), nil
}

func (ft fileTable) table(builtin Table) (Table, error) {
	if len(ft.Keywords) == 0 {
		if ft.Default != "" {
			return NewTable(ft.Default, builtin.Entries()...), nil
		}
		return builtin, nil
	}
	for i, e := range ft.Keywords {
		if e.Keyword == "" || e.Label == "" {
			return Table{}, fmt.Errorf("entry %d: keyword and label are required", i)
		}
	}
	fallback := ft.Default
	if fallback == "" {
		fallback = builtin.Fallback()
	}
	return NewTable(fallback, ft.Keywords...), nil
}

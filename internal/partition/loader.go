package partition

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// file is the layout of the partition table file:
//
//	partitions:
//	  "07-2025": 22b2ddb994ba81dba631d8415085778b
//	  "08-2025": 22b2ddb994ba807ca890d78a0f67387a
type file struct {
	Partitions map[string]string `yaml:"partitions"`
}

// ParseYAML reads a partition table document.
func ParseYAML(data []byte) (map[string]string, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse partitions YAML: %w", err)
	}
	if f.Partitions == nil {
		return map[string]string{}, nil
	}
	return f.Partitions, nil
}

// ParseInline reads "07-2025=id,08-2025=id" as given in PARTITIONS.
func ParseInline(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid partition entry %q: want MM-YYYY=id", pair)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// Load builds the table from the YAML file at path (skipped when path is
// empty or the file does not exist) and the inline list; inline entries win.
func Load(path, inline string) (Table, error) {
	entries := map[string]string{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			fromFile, err := ParseYAML(data)
			if err != nil {
				return Table{}, fmt.Errorf("%s: %w", path, err)
			}
			for k, v := range fromFile {
				entries[k] = v
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Table{}, fmt.Errorf("read partitions file: %w", err)
		}
	}

	fromEnv, err := ParseInline(inline)
	if err != nil {
		return Table{}, err
	}
	for k, v := range fromEnv {
		entries[k] = v
	}

	return NewTable(entries)
}

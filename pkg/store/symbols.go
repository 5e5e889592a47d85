package store

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasTable maps human-entered stock names to canonical lookup keys
// (the data file names). It is loaded once at startup and read-only
// afterwards.
type AliasTable struct {
	byAlias map[string]string
	names   []string
}

// LoadAliasTable reads a yaml file of alias -> key pairs.
func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read alias table %s: %w", path, err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: parse alias table %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("store: alias table %s is empty", path)
	}
	return NewAliasTable(raw), nil
}

// NewAliasTable builds a table from alias -> key pairs. Canonical keys
// resolve to themselves so users may type the ticker directly.
func NewAliasTable(pairs map[string]string) *AliasTable {
	t := &AliasTable{byAlias: make(map[string]string, len(pairs)*2)}
	for alias, key := range pairs {
		t.byAlias[normalizeAlias(alias)] = key
		t.byAlias[normalizeAlias(key)] = key
		t.names = append(t.names, alias)
	}
	sort.Strings(t.names)
	return t
}

// Resolve maps a user token to its canonical key, case-insensitively.
func (t *AliasTable) Resolve(name string) (string, bool) {
	key, ok := t.byAlias[normalizeAlias(name)]
	return key, ok
}

// Names returns the configured aliases in sorted order, for "symbol
// not found" replies.
func (t *AliasTable) Names() []string {
	return t.names
}

func normalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

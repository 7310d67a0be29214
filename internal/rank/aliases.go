package rank

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aalex954/applocate-sub001/configs"
	"github.com/aalex954/applocate-sub001/internal/query"
)

// AliasTable maps application names to their known equivalents. Terms are
// stored collapsed (see query.Collapse), so lookups ignore case, spacing and
// punctuation.
type AliasTable struct {
	groups [][]string
	index  map[string][]int
}

type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// ParseAliases decodes an `aliases:` YAML document into canonical name ->
// alias list form.
func ParseAliases(data []byte) (map[string][]string, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse aliases: %w", err)
	}
	return f.Aliases, nil
}

// NewAliasTable builds a table from canonical name -> aliases entries. Each
// entry forms one equivalence group.
func NewAliasTable(entries map[string][]string) *AliasTable {
	t := &AliasTable{index: make(map[string][]int)}
	t.add(entries)
	return t
}

// With returns a new table holding t's groups plus extra.
func (t *AliasTable) With(extra map[string][]string) *AliasTable {
	out := &AliasTable{index: make(map[string][]int)}
	if t != nil {
		for _, g := range t.groups {
			out.addGroup(g)
		}
	}
	out.add(extra)
	return out
}

func (t *AliasTable) add(entries map[string][]string) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.addGroup(append([]string{name}, entries[name]...))
	}
}

func (t *AliasTable) addGroup(terms []string) {
	seen := make(map[string]struct{}, len(terms))
	group := make([]string, 0, len(terms))
	for _, term := range terms {
		c := query.Collapse(term)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		group = append(group, c)
	}
	if len(group) < 2 {
		return
	}
	id := len(t.groups)
	t.groups = append(t.groups, group)
	for _, c := range group {
		t.index[c] = append(t.index[c], id)
	}
}

// Equivalents returns the collapsed terms sharing a group with term,
// excluding term itself.
func (t *AliasTable) Equivalents(term string) []string {
	if t == nil {
		return nil
	}
	c := query.Collapse(term)
	var out []string
	for _, id := range t.index[c] {
		for _, other := range t.groups[id] {
			if other != c {
				out = append(out, other)
			}
		}
	}
	return out
}

// Related reports whether a and b are distinct members of one alias group.
func (t *AliasTable) Related(a, b string) bool {
	cb := query.Collapse(b)
	if cb == "" || cb == query.Collapse(a) {
		return false
	}
	for _, e := range t.Equivalents(a) {
		if e == cb {
			return true
		}
	}
	return false
}

// Len returns the number of alias groups.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.groups)
}

var (
	defaultAliasesOnce sync.Once
	defaultAliases     *AliasTable
)

// DefaultAliases returns the table built from the embedded alias file.
func DefaultAliases() *AliasTable {
	defaultAliasesOnce.Do(func() {
		entries, err := ParseAliases([]byte(configs.AliasesYAML))
		if err != nil {
			entries = nil
		}
		defaultAliases = NewAliasTable(entries)
	})
	return defaultAliases
}

package rank

import (
	"math"
	"strings"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/merge"
	"github.com/aalex954/applocate-sub001/internal/query"
)

// candidate is the pre-tokenized view of a hit the signals read.
type candidate struct {
	h        hit.Hit
	leaf     string     // file stem for executables, base name otherwise
	leafC    string     // collapsed leaf
	names    [][]string // token sequences: leaf, display names, parent segments
	segments []string   // lower-case path segments
}

// parentSegments is how many directories above the leaf take part in
// token matching.
const parentSegments = 3

func newCandidate(h hit.Hit) candidate {
	c := candidate{h: h}
	if h.Kind == hit.KindExe {
		c.leaf = hit.Stem(h.Path)
	} else {
		c.leaf = hit.Base(h.Path)
	}
	c.leafC = query.Collapse(c.leaf)

	segs := hit.Segments(h.Path)
	c.segments = make([]string, len(segs))
	for i, s := range segs {
		c.segments[i] = strings.ToLower(s)
	}

	c.names = append(c.names, query.Tokens(c.leaf))
	if dn, ok := h.EvidenceValue(hit.EvidenceDisplayName); ok {
		for _, name := range merge.Segments(dn) {
			c.names = append(c.names, query.Tokens(name))
		}
	}
	for i := len(segs) - 2; i >= 0 && i >= len(segs)-1-parentSegments; i-- {
		if isDriveOrRoot(segs[i]) {
			continue
		}
		c.names = append(c.names, query.Tokens(segs[i]))
	}
	return c
}

func isDriveOrRoot(seg string) bool {
	return len(seg) == 2 && seg[1] == ':'
}

// displayNames returns the collapsed display names from evidence.
func (c candidate) displayNames() []string {
	dn, ok := c.h.EvidenceValue(hit.EvidenceDisplayName)
	if !ok {
		return nil
	}
	var out []string
	for _, name := range merge.Segments(dn) {
		out = append(out, query.Collapse(name))
	}
	return out
}

// Token match strengths.
const (
	matchExact     = 1.0
	matchCompound  = 0.9
	matchSubstring = 0.5
)

// tokenMatch returns how well token t occurs in the name token sequence and
// how many name tokens the match spans.
func tokenMatch(t string, name []string) (strength float64, width int) {
	for _, n := range name {
		if n == t {
			return matchExact, 1
		}
	}
	for i := range name {
		joined := name[i]
		for j := i + 1; j < len(name) && j < i+3; j++ {
			joined += name[j]
			if joined == t {
				return matchCompound, j - i + 1
			}
		}
	}
	if len(t) >= 2 {
		for _, n := range name {
			if strings.Contains(n, t) {
				return matchSubstring, 1
			}
		}
	}
	return 0, 0
}

// coverage is the mean over query tokens of their best match strength
// across every candidate name.
func coverage(qt []string, c candidate) float64 {
	if len(qt) == 0 {
		return 0
	}
	var sum float64
	for _, t := range qt {
		best := 0.0
		for _, name := range c.names {
			if s, _ := tokenMatch(t, name); s > best {
				best = s
			}
			if best == matchExact {
				break
			}
		}
		sum += best
	}
	return sum / float64(len(qt))
}

// span rewards query tokens appearing adjacent and in order inside one
// name. The result is in [0,1].
func span(qt []string, c candidate) float64 {
	if len(qt) == 0 {
		return 0
	}
	best := 0.0
	for _, name := range c.names {
		if len(name) == 0 {
			continue
		}
		if len(qt) == 1 {
			s, w := tokenMatch(qt[0], name)
			if s < matchCompound {
				continue
			}
			if v := float64(w) / float64(len(name)); v > best {
				best = v
			}
			continue
		}
		if v := orderedSpan(qt, name); v > best {
			best = v
		}
	}
	return best
}

// orderedSpan finds the query tokens in order inside name and returns
// len(qt) divided by the number of name tokens the match stretches over.
func orderedSpan(qt, name []string) float64 {
	best := 0.0
	for start := range name {
		if name[start] != qt[0] {
			continue
		}
		pos, k := start+1, 1
		for ; k < len(qt) && pos < len(name); pos++ {
			if name[pos] == qt[k] {
				k++
			}
		}
		if k < len(qt) {
			continue
		}
		if v := float64(len(qt)) / float64(pos-start); v > best {
			best = v
		}
	}
	return best
}

// Filename match strengths.
const (
	filenameExact     = 1.0
	filenameCollapsed = 0.95
	filenameSubstring = 0.3
)

// filename compares the candidate's leaf with the whole query and each of its
// tokens.
func filename(q string, qt []string, c candidate) float64 {
	leafLower := strings.ToLower(c.leaf)
	if leafLower == "" {
		return 0
	}
	if leafLower == q {
		return filenameExact
	}
	for _, t := range qt {
		if leafLower == t {
			return filenameExact
		}
	}
	cq := query.Collapse(q)
	if cq != "" && c.leafC == cq {
		return filenameCollapsed
	}
	if cq != "" && len(c.leafC) >= 3 && (strings.Contains(c.leafC, cq) || strings.Contains(cq, c.leafC)) {
		return filenameSubstring
	}
	return 0
}

// implicitAlias reports whether the query and one of the candidate's names
// belong to the same alias group.
func implicitAlias(q string, c candidate, aliases *AliasTable) bool {
	if aliases.Len() == 0 {
		return false
	}
	if aliases.Related(q, c.leafC) {
		return true
	}
	for _, dn := range c.displayNames() {
		if aliases.Related(q, dn) {
			return true
		}
	}
	return false
}

// fuzzyLimit is the largest edit distance the fuzzy signal considers.
const fuzzyLimit = 2

// fuzzy returns a small closeness score between the collapsed query and the
// candidate's leaf, in [0,1]. Exact matches are scored elsewhere.
func fuzzy(q string, c candidate) float64 {
	cq := query.Collapse(q)
	if len([]rune(cq)) < 4 || c.leafC == "" || c.leafC == cq {
		return 0
	}
	d := levenshtein(cq, c.leafC, fuzzyLimit)
	if d > fuzzyLimit {
		return 0
	}
	return 1 - float64(d)/float64(fuzzyLimit+1)
}

// multiSourceBonus grows with the harmonic number of the provenance count so
// each extra source adds less than the one before.
func multiSourceBonus(n int, scale, limit float64) float64 {
	if n <= 1 {
		return 0
	}
	h := 0.0
	for i := 1; i <= n; i++ {
		h += 1 / float64(i)
	}
	return math.Min(scale*(h-1), limit)
}

// Noise markers.
var (
	tempSegments = map[string]bool{
		"temp": true, "tmp": true, "staging": true, "installer": true,
		"package cache": true, "$recycle.bin": true, "squirreltemp": true,
		"downloaded installations": true, "setupcache": true,
	}
	pluginMarkers = map[string]bool{
		"plugins": true, "extensions": true, "node_modules": true,
		"addons": true, "add-ins": true, "bundled": true,
	}
	auxSuffixes = []string{"webhelper", "helper", "errorreporter", "crashreporter", "updater", "service"}
	auxContains = []string{"crashpad", "crashhandler"}
)

func inTempTree(c candidate) bool {
	for _, s := range c.segments {
		if tempSegments[s] {
			return true
		}
	}
	return false
}

// isAuxBinary reports whether an executable looks like an uninstaller,
// helper, reporter or service next to the real application.
func isAuxBinary(q string, c candidate) bool {
	if c.h.Kind != hit.KindExe || c.leafC == "" || c.leafC == query.Collapse(q) {
		return false
	}
	stem := strings.ToLower(c.leaf)
	if strings.HasPrefix(stem, "unins") {
		return true
	}
	for _, s := range auxContains {
		if strings.Contains(c.leafC, s) {
			return true
		}
	}
	for _, s := range auxSuffixes {
		if strings.HasSuffix(c.leafC, s) {
			return true
		}
	}
	return false
}

// inForeignPluginTree reports whether the candidate sits under another
// application's plugin or extension directory.
func inForeignPluginTree(qt []string, c candidate) bool {
	for i := 1; i < len(c.segments)-1; i++ {
		if !pluginMarkers[c.segments[i]] {
			continue
		}
		owner := query.Collapse(c.segments[i-1])
		owned := false
		for _, t := range qt {
			if strings.Contains(owner, query.Collapse(t)) {
				owned = true
				break
			}
		}
		if !owned {
			return true
		}
	}
	return false
}

func hasBrokenShortcut(h hit.Hit) bool {
	v, ok := h.EvidenceValue(hit.EvidenceBrokenShortcut)
	return ok && !strings.EqualFold(v, "false")
}

func isMissing(h hit.Hit) bool {
	v, ok := h.EvidenceValue(hit.EvidenceExists)
	return ok && strings.EqualFold(v, "false")
}

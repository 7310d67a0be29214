// Package rank scores merged hits against a query.
//
// Positive signals each yield a strength s in [0,1]. They are combined with
// a noisy-OR, 1 - prod(1 - s), which keeps the score in [0,1] and gives every
// additional signal diminishing returns. Penalties then scale the positive
// score multiplicatively, but never below a floor fraction of it, so noise
// patterns reduce a well-evidenced hit without cancelling it.
//
// Scoring is pure: no I/O, no shared mutable state, and missing or
// malformed attributes count as absent signals.
package rank

import (
	"math"

	"github.com/aalex954/applocate-sub001/internal/hit"
	"github.com/aalex954/applocate-sub001/internal/query"
)

// Weights are the maximum strengths of each signal and the factors of each
// penalty.
type Weights struct {
	Baseline map[hit.Kind]float64

	Coverage  float64
	Span      float64
	Filename  float64
	Metadata  float64
	AliasHint float64 // alias inferred from the query and the alias table
	AliasSeen float64 // alias resolved upstream (AliasMatched evidence)
	Fuzzy     float64

	Evidence     map[string]float64
	SynergyStep  float64
	SynergyLimit float64

	MultiSourceScale float64
	MultiSourceLimit float64

	TempPenalty    float64
	AuxPenalty     float64
	BrokenPenalty  float64
	MissingPenalty float64
	PluginPenalty  float64
	PenaltyFloor   float64
}

// DefaultWeights returns the tuned weights.
func DefaultWeights() Weights {
	return Weights{
		Baseline: map[hit.Kind]float64{
			hit.KindExe:        0.05,
			hit.KindInstallDir: 0.04,
			hit.KindConfig:     0.02,
			hit.KindData:       0.01,
		},
		Coverage:  0.45,
		Span:      0.10,
		Filename:  0.40,
		Metadata:  0.02,
		AliasHint: 0.25,
		AliasSeen: 0.35,
		Fuzzy:     0.05,
		Evidence: map[string]float64{
			hit.EvidenceShortcut:        0.30,
			hit.EvidenceProcess:         0.30,
			hit.EvidenceInstallLocation: 0.20,
			hit.EvidenceDisplayIcon:     0.10,
			hit.EvidenceManifest:        0.12,
			hit.EvidencePackageID:       0.12,
		},
		SynergyStep:      0.05,
		SynergyLimit:     0.15,
		MultiSourceScale: 0.10,
		MultiSourceLimit: 0.25,
		TempPenalty:      0.45,
		AuxPenalty:       0.50,
		BrokenPenalty:    0.35,
		MissingPenalty:   0.40,
		PluginPenalty:    0.40,
		PenaltyFloor:     0.35,
	}
}

// corroborating lists the evidence keys that count toward synergy, in
// breakdown order.
var corroborating = []struct {
	key  string
	name string
}{
	{hit.EvidenceShortcut, "evidence.shortcut"},
	{hit.EvidenceProcess, "evidence.process"},
	{hit.EvidenceInstallLocation, "evidence.installLocation"},
	{hit.EvidenceDisplayIcon, "evidence.displayIcon"},
	{hit.EvidenceManifest, "evidence.manifest"},
	{hit.EvidencePackageID, "evidence.packageId"},
}

// Ranker computes confidence scores. A Ranker is immutable once built and
// safe for concurrent use.
type Ranker struct {
	weights Weights
	aliases *AliasTable
	strict  bool
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithAliases sets the alias table. Nil disables alias matching.
func WithAliases(t *AliasTable) Option {
	return func(r *Ranker) { r.aliases = t }
}

// WithWeights overrides DefaultWeights.
func WithWeights(w Weights) Option {
	return func(r *Ranker) { r.weights = w }
}

// WithStrict disables the alias and fuzzy signal groups.
func WithStrict(strict bool) Option {
	return func(r *Ranker) { r.strict = strict }
}

// New creates a Ranker with DefaultWeights and DefaultAliases.
func New(opts ...Option) *Ranker {
	r := &Ranker{weights: DefaultWeights(), aliases: DefaultAliases()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Score returns the confidence in [0,1] that h answers the normalized query.
func (r *Ranker) Score(q string, h hit.Hit) float64 {
	return r.evaluate(q, h, nil)
}

// Explain scores h and returns the per-signal decomposition.
func (r *Ranker) Explain(q string, h hit.Hit) Breakdown {
	b := &Breakdown{Query: q, Path: h.Path, Kind: h.Kind}
	b.Total = r.evaluate(q, h, b)
	return *b
}

// RankAll returns copies of hits with Confidence set.
func (r *Ranker) RankAll(q string, hits []hit.Hit) []hit.Hit {
	out := make([]hit.Hit, len(hits))
	for i, h := range hits {
		out[i] = h
		out[i].Confidence = r.Score(q, h)
	}
	return out
}

type signal struct {
	name     string
	strength float64 // in [0,1]
	weight   float64
}

type penalty struct {
	name   string
	active bool
	factor float64
}

func (r *Ranker) evaluate(q string, h hit.Hit, b *Breakdown) float64 {
	q = query.Normalize(q)
	qt := query.WordTokens(q)
	c := newCandidate(h)
	w := r.weights

	fn := filename(q, qt, c)
	cov := coverage(qt, c)

	aliasHint, aliasSeen, fz := 0.0, 0.0, 0.0
	if !r.strict {
		if implicitAlias(q, c, r.aliases) {
			aliasHint = 1
		}
		if _, ok := h.EvidenceValue(hit.EvidenceAliasMatched); ok {
			aliasSeen = 1
		}
		if fn < filenameCollapsed && cov < matchExact {
			fz = fuzzy(q, c)
		}
	}
	alias := aliasHint * w.AliasHint
	if aliasSeen*w.AliasSeen > alias {
		alias = aliasSeen * w.AliasSeen
	}

	metadata := 0.0
	if h.Version != "" || h.PackageType != hit.PackageUnknown {
		metadata = 1
	}

	signals := []signal{
		{"baseline", 1, w.Baseline[h.Kind]},
		{"coverage", cov, w.Coverage},
		{"span", span(qt, c), w.Span},
		{"filename", fn, w.Filename},
		{"alias", 1, alias},
		{"fuzzy", fz, w.Fuzzy},
		{"metadata", metadata, w.Metadata},
	}

	present := 0
	for _, e := range corroborating {
		s := 0.0
		if _, ok := h.EvidenceValue(e.key); ok {
			s = 1
			present++
		}
		signals = append(signals, signal{e.name, s, w.Evidence[e.key]})
	}
	synergy := 0.0
	if present >= 2 {
		synergy = math.Min(w.SynergyStep*float64(present-1), w.SynergyLimit)
	}
	signals = append(signals,
		signal{"synergy", 1, synergy},
		signal{"multiSource", 1, multiSourceBonus(len(hit.UnionSources(nil, h.Source)), w.MultiSourceScale, w.MultiSourceLimit)},
	)

	// noisy-OR; each contribution is its share of the combined score
	remaining := 1.0
	for _, s := range signals {
		v := clamp01(s.strength * s.weight)
		contribution := v * remaining
		remaining *= 1 - v
		b.add(s.name, v, contribution)
	}
	positive := 1 - remaining
	b.setPositive(positive)

	penalties := []penalty{
		{"penalty.tempDir", inTempTree(c), w.TempPenalty},
		{"penalty.auxBinary", isAuxBinary(q, c), w.AuxPenalty},
		{"penalty.brokenShortcut", hasBrokenShortcut(h), w.BrokenPenalty},
		{"penalty.missingPath", isMissing(h), w.MissingPenalty},
		{"penalty.pluginTree", inForeignPluginTree(qt, c), w.PluginPenalty},
	}
	floor := positive * w.PenaltyFloor
	score := positive
	for _, p := range penalties {
		if !p.active {
			b.add(p.name, 1, 0)
			continue
		}
		next := math.Max(score*clamp01(p.factor), floor)
		b.add(p.name, p.factor, next-score)
		score = next
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

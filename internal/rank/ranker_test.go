package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

const vscodeExe = `C:\Program Files\Microsoft VS Code\Code.exe`

func exe(path string, sources ...string) hit.Hit {
	if len(sources) == 0 {
		sources = []string{"Registry"}
	}
	return hit.Hit{Kind: hit.KindExe, Scope: hit.ScopeMachine, Path: path, Source: sources}
}

func withEvidence(h hit.Hit, kv ...string) hit.Hit {
	h = h.Clone()
	if h.Evidence == nil {
		h.Evidence = map[string]string{}
	}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Evidence[kv[i]] = kv[i+1]
	}
	return h
}

func TestScore_BoundedAndDeterministic(t *testing.T) {
	r := New()
	hits := []hit.Hit{
		exe(vscodeExe),
		withEvidence(exe(vscodeExe, "A", "B", "C", "D", "E", "F", "G"),
			hit.EvidenceShortcut, "x", hit.EvidenceProcess, "1", hit.EvidenceInstallLocation, "y",
			hit.EvidenceDisplayIcon, "z", hit.EvidenceManifest, "m", hit.EvidencePackageID, "p",
			hit.EvidenceAliasMatched, "vscode", hit.EvidenceDisplayName, "Visual Studio Code"),
		withEvidence(exe(`C:\Temp\plugins\x\unins000.exe`), hit.EvidenceBrokenShortcut, "true", hit.EvidenceExists, "false"),
		{Kind: hit.KindData, Path: ""},
		{Kind: hit.Kind(42), Scope: hit.Scope(9), Path: `\\`},
	}
	for _, q := range []string{"vscode", "code", "", "  ", "visual studio code", "ö"} {
		for _, h := range hits {
			s := r.Score(q, h)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
			assert.Equal(t, s, r.Score(q, h), "score must be deterministic")
		}
	}
}

func TestScore_ExactFilenameBeatsSubstring(t *testing.T) {
	r := New()
	exact := r.Score("code", exe(`C:\Tools\code.exe`))
	substring := r.Score("code", exe(`C:\Tools\somecodehelper.exe`))
	plainSubstring := r.Score("code", exe(`C:\Tools\mycodeviewer.exe`))

	assert.Greater(t, exact, substring)
	assert.Greater(t, exact, plainSubstring)
}

func TestScore_CollapsedFilenameIsNearExact(t *testing.T) {
	r := New(WithAliases(nil))
	collapsed := r.Explain("oh-my-posh", exe(`C:\Tools\ohmyposh.exe`))
	partial := r.Explain("oh-my-posh", exe(`C:\Tools\ohmyposhextras.exe`))

	fnCollapsed, _ := collapsed.Get("filename")
	fnPartial, _ := partial.Get("filename")
	assert.InDelta(t, 0.38, fnCollapsed.Strength, 1e-9)
	assert.InDelta(t, 0.12, fnPartial.Strength, 1e-9)
	assert.Greater(t, collapsed.Total, partial.Total)

	fz, _ := collapsed.Get("fuzzy")
	assert.Zero(t, fz.Value, "collapsed equality is not a fuzzy match")
}

func TestScore_EvidenceAliasBeatsImplicitAlias(t *testing.T) {
	r := New()
	implicit := exe(vscodeExe)
	explicit := withEvidence(implicit, hit.EvidenceAliasMatched, "vscode")
	none := New(WithAliases(nil)).Score("vscode", implicit)

	si := r.Score("vscode", implicit)
	se := r.Score("vscode", explicit)

	assert.Greater(t, se, si)
	assert.Greater(t, si, none)

	exact := r.Score("code", exe(`C:\Tools\code.exe`))
	onlyAlias := r.Explain("vscode", exe(`C:\Tools\code.exe`))
	alias, _ := onlyAlias.Get("alias")
	fn, _ := r.Explain("code", exe(`C:\Tools\code.exe`)).Get("filename")
	assert.Less(t, alias.Strength, fn.Strength, "alias bonus stays below an exact match")
	assert.Greater(t, exact, 0.0)
}

func TestScore_StrictDisablesAliasAndFuzzy(t *testing.T) {
	h := withEvidence(exe(vscodeExe), hit.EvidenceAliasMatched, "vscode")
	loose := New().Explain("vscode", h)
	strict := New(WithStrict(true)).Explain("vscode", h)

	la, _ := loose.Get("alias")
	sa, _ := strict.Get("alias")
	sf, _ := strict.Get("fuzzy")
	assert.Greater(t, la.Value, 0.0)
	assert.Zero(t, sa.Value)
	assert.Zero(t, sf.Value)
	assert.Less(t, strict.Total, loose.Total)
}

func TestScore_FuzzyOnlyBreaksTies(t *testing.T) {
	r := New(WithAliases(nil))
	typo := r.Explain("firefox", exe(`C:\Apps\firefx.exe`))
	correct := r.Score("firefox", exe(`C:\Apps\firefox.exe`))

	fz, _ := typo.Get("fuzzy")
	assert.Greater(t, fz.Value, 0.0)
	assert.LessOrEqual(t, fz.Strength, 0.05)
	assert.Greater(t, correct, typo.Total)

	strict := New(WithAliases(nil), WithStrict(true)).Score("firefox", exe(`C:\Apps\firefx.exe`))
	assert.Less(t, strict, typo.Total)
}

func TestScore_EvidenceSynergy(t *testing.T) {
	r := New()
	base := exe(`C:\Program Files\App\app.exe`)
	shortcut := withEvidence(base, hit.EvidenceShortcut, `C:\Start\App.lnk`)
	process := withEvidence(base, hit.EvidenceProcess, "4242")
	both := withEvidence(shortcut, hit.EvidenceProcess, "4242")

	sBase := r.Score("app", base)
	sShortcut := r.Score("app", shortcut)
	sProcess := r.Score("app", process)
	sBoth := r.Score("app", both)

	assert.GreaterOrEqual(t, sShortcut, sBase)
	assert.GreaterOrEqual(t, sProcess, sBase)
	assert.Greater(t, sBoth, max(sShortcut, sProcess)+0.01)

	syn, ok := r.Explain("app", both).Get("synergy")
	require.True(t, ok)
	assert.Greater(t, syn.Value, 0.0)
	syn, _ = r.Explain("app", shortcut).Get("synergy")
	assert.Zero(t, syn.Value)
}

func TestScore_MultiSourceDiminishingReturns(t *testing.T) {
	r := New()
	path := `C:\Program Files\App\app.exe`
	s1 := r.Score("app", exe(path, "S1"))
	s3 := r.Score("app", exe(path, "S1", "S2", "S3"))
	s6 := r.Score("app", exe(path, "S1", "S2", "S3", "S4", "S5", "S6"))

	gain13 := s3 - s1
	gain36 := s6 - s3
	assert.Greater(t, gain13, 0.0)
	assert.Greater(t, gain36, 0.0)
	assert.Greater(t, gain13, gain36)

	dup := r.Score("app", exe(path, "S1", "s1", "S1"))
	assert.Equal(t, s1, dup, "provenance counts distinct names only")
}

func TestScore_NoisePenalties(t *testing.T) {
	r := New()
	rich := func(h hit.Hit) hit.Hit {
		h.Source = []string{"Registry", "StartMenu"}
		return withEvidence(h,
			hit.EvidenceShortcut, "a.lnk", hit.EvidenceInstallLocation, "x")
	}

	tests := []struct {
		name    string
		clean   hit.Hit
		noisy   hit.Hit
		penalty string
	}{
		{
			name:    "temp directory",
			clean:   rich(exe(`C:\Users\ann\AppData\Local\App\app.exe`)),
			noisy:   rich(exe(`C:\Users\ann\AppData\Local\Temp\App\app.exe`)),
			penalty: "penalty.tempDir",
		},
		{
			name:    "uninstaller binary",
			clean:   rich(exe(`C:\Program Files\App\appx000.exe`)),
			noisy:   rich(exe(`C:\Program Files\App\unins000.exe`)),
			penalty: "penalty.auxBinary",
		},
		{
			name:    "foreign plugin tree",
			clean:   rich(exe(`C:\Tools\Host\runtime\app\app.exe`)),
			noisy:   rich(exe(`C:\Tools\Host\plugins\app\app.exe`)),
			penalty: "penalty.pluginTree",
		},
		{
			name:    "broken shortcut",
			clean:   rich(exe(`C:\Program Files\App\app.exe`)),
			noisy:   withEvidence(rich(exe(`C:\Program Files\App\app.exe`)), hit.EvidenceBrokenShortcut, "true"),
			penalty: "penalty.brokenShortcut",
		},
		{
			name:    "missing path",
			clean:   withEvidence(rich(exe(`C:\Program Files\App\app.exe`)), hit.EvidenceExists, "true"),
			noisy:   withEvidence(rich(exe(`C:\Program Files\App\app.exe`)), hit.EvidenceExists, "false"),
			penalty: "penalty.missingPath",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean := r.Explain("app", tt.clean)
			noisy := r.Explain("app", tt.noisy)

			p, ok := noisy.Get(tt.penalty)
			require.True(t, ok)
			assert.Less(t, p.Value, 0.0)
			cp, _ := clean.Get(tt.penalty)
			assert.Zero(t, cp.Value)

			assert.Less(t, noisy.Total, clean.Total*0.7, "penalty must be material")
			assert.Greater(t, noisy.Total, 0.1, "penalty must not zero a strong score")
		})
	}
}

func TestScore_PenaltyFloor(t *testing.T) {
	r := New()
	h := withEvidence(exe(`C:\Temp\Host\plugins\App\unins000.exe`, "A", "B", "C"),
		hit.EvidenceShortcut, "x", hit.EvidenceProcess, "1",
		hit.EvidenceBrokenShortcut, "true", hit.EvidenceExists, "false")

	b := r.Explain("app", h)
	assert.InDelta(t, b.Positive*DefaultWeights().PenaltyFloor, b.Total, 1e-9)
	assert.Greater(t, b.Total, 0.0)
}

func TestScore_PluginTreeOwnership(t *testing.T) {
	r := New()
	inHost := exe(`C:\Users\ann\.vscode\extensions\ms-python\python.exe`)

	b := r.Explain("vscode", inHost)
	p, _ := b.Get("penalty.pluginTree")
	assert.Zero(t, p.Value, "the host owns its own extension tree")

	b = r.Explain("python", inHost)
	p, _ = b.Get("penalty.pluginTree")
	assert.Less(t, p.Value, 0.0, "python bundled inside another app is noise")

	b = r.Explain("python", exe(`C:\Program Files\Python\plugins\python.exe`))
	p, _ = b.Get("penalty.pluginTree")
	assert.Zero(t, p.Value)
}

func TestScore_AuxBinaryMatchingQueryIsNotPenalized(t *testing.T) {
	r := New()
	b := r.Explain("updater", exe(`C:\Tools\updater.exe`))
	p, _ := b.Get("penalty.auxBinary")
	assert.Zero(t, p.Value)
}

func TestScore_KindBaselineBreaksTies(t *testing.T) {
	r := New(WithAliases(nil))
	asExe := r.Score("zzz", hit.Hit{Kind: hit.KindExe, Path: `C:\a\b`})
	asDir := r.Score("zzz", hit.Hit{Kind: hit.KindInstallDir, Path: `C:\a\b`})
	asConfig := r.Score("zzz", hit.Hit{Kind: hit.KindConfig, Path: `C:\a\b`})
	asData := r.Score("zzz", hit.Hit{Kind: hit.KindData, Path: `C:\a\b`})

	assert.Greater(t, asExe, asDir)
	assert.Greater(t, asDir, asConfig)
	assert.Greater(t, asConfig, asData)
}

func TestExplain_SumsToTotal(t *testing.T) {
	r := New()
	h := withEvidence(exe(vscodeExe, "Registry", "StartMenu"),
		hit.EvidenceDisplayName, "Visual Studio Code",
		hit.EvidenceInstallLocation, `C:\Program Files\Microsoft VS Code`,
		hit.EvidenceDisplayIcon, vscodeExe,
		hit.EvidenceShortcut, `C:\ProgramData\Microsoft\Windows\Start Menu\Programs\Visual Studio Code.lnk`)

	b := r.Explain("vscode", h)
	assert.GreaterOrEqual(t, len(b.Contributions), 20)
	assert.InDelta(t, b.Total, b.Sum(), 1e-9)
	assert.Equal(t, r.Score("vscode", h), b.Total)
	assert.GreaterOrEqual(t, b.Total, 0.8)
	assert.Contains(t, b.String(), "coverage")
	assert.Equal(t, vscodeExe, b.Path)

	noisy := r.Explain("app", withEvidence(exe(`C:\Temp\unins000.exe`), hit.EvidenceShortcut, "x"))
	assert.InDelta(t, noisy.Total, noisy.Sum(), 1e-9)
}

func TestRankAll(t *testing.T) {
	r := New()
	in := []hit.Hit{exe(`C:\Tools\code.exe`), exe(`C:\Tools\other.exe`)}
	out := r.RankAll("code", in)

	require.Len(t, out, 2)
	assert.Zero(t, in[0].Confidence, "inputs are not modified")
	assert.Greater(t, out[0].Confidence, out[1].Confidence)
}

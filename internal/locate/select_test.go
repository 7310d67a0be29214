package locate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aalex954/applocate-sub001/internal/hit"
)

func scored(kind hit.Kind, scope hit.Scope, path string, conf float64) hit.Hit {
	return hit.Hit{Kind: kind, Scope: scope, Path: path, Confidence: conf, Source: []string{"S"}}
}

func paths(hits []hit.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Path
	}
	return out
}

func TestSelect(t *testing.T) {
	in := []hit.Hit{
		scored(hit.KindExe, hit.ScopeMachine, `C:\p\app.exe`, 0.91),
		scored(hit.KindExe, hit.ScopeUser, `C:\u\app.exe`, 0.72),
		scored(hit.KindInstallDir, hit.ScopeMachine, `C:\p`, 0.80),
		scored(hit.KindConfig, hit.ScopeUser, `C:\u\cfg`, 0.40),
		scored(hit.KindData, hit.ScopeUser, `C:\u\data`, 0.10),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "best per kind",
			filter: Filter{},
			want:   []string{`C:\p\app.exe`, `C:\p`, `C:\u\cfg`, `C:\u\data`},
		},
		{
			name:   "all",
			filter: Filter{All: true},
			want:   []string{`C:\p\app.exe`, `C:\p`, `C:\u\app.exe`, `C:\u\cfg`, `C:\u\data`},
		},
		{
			name:   "min confidence",
			filter: Filter{All: true, MinConfidence: 0.72},
			want:   []string{`C:\p\app.exe`, `C:\p`, `C:\u\app.exe`},
		},
		{
			name:   "user only",
			filter: Filter{All: true, UserOnly: true},
			want:   []string{`C:\u\app.exe`, `C:\u\cfg`, `C:\u\data`},
		},
		{
			name:   "user only best exe",
			filter: Filter{UserOnly: true, Kinds: []hit.Kind{hit.KindExe}},
			want:   []string{`C:\u\app.exe`},
		},
		{
			name:   "machine only",
			filter: Filter{All: true, MachineOnly: true},
			want:   []string{`C:\p\app.exe`, `C:\p`},
		},
		{
			name:   "kinds",
			filter: Filter{All: true, Kinds: []hit.Kind{hit.KindConfig, hit.KindData}},
			want:   []string{`C:\u\cfg`, `C:\u\data`},
		},
		{
			name:   "limit",
			filter: Filter{All: true, Limit: 2},
			want:   []string{`C:\p\app.exe`, `C:\p`},
		},
		{
			name:   "nothing survives",
			filter: Filter{MinConfidence: 0.95},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(in, tt.filter)
			assert.Equal(t, tt.want, paths(got))
		})
	}
}

func TestSelect_ThresholdUsesRoundedConfidence(t *testing.T) {
	in := []hit.Hit{scored(hit.KindExe, hit.ScopeMachine, `C:\a.exe`, 0.6996)}

	assert.Len(t, Select(in, Filter{MinConfidence: 0.7}), 1)
	assert.Empty(t, Select(in, Filter{MinConfidence: 0.701}))
}

func TestSelect_DoesNotModifyInput(t *testing.T) {
	in := []hit.Hit{
		scored(hit.KindExe, hit.ScopeMachine, `C:\b.exe`, 0.2),
		scored(hit.KindExe, hit.ScopeMachine, `C:\a.exe`, 0.9),
	}

	_ = Select(in, Filter{All: true})

	assert.Equal(t, `C:\b.exe`, in[0].Path)
}

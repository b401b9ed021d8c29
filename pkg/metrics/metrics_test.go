package metrics

import (
	"bytes"
	"testing"

	"github.com/chazu/spar/pkg/advlink"
	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/kinds"
	"github.com/chazu/spar/pkg/link"
	"github.com/chazu/spar/pkg/parm"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkMetrics(t *testing.T) {
	met := New()
	reg := parm.NewRegistry()
	m := geom.NewModel(reg, kinds.NewCatalog(), geom.WithObserver(met))
	_, err := m.Add("Pod", "")
	require.NoError(t, err)
	_, err = m.Add("Wing", "")
	require.NoError(t, err)

	m.Update(false)
	m.Update(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(met.walks.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.walks.WithLabelValues("full")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(met.nodes), 2.0)
	assert.Equal(t, 1, testutil.CollectAndCount(met.walkSeconds))
}

func TestCommitAndLinkMetrics(t *testing.T) {
	met := New()
	reg := parm.NewRegistry()
	cancel := reg.Subscribe(met.ParmCommitted)
	defer cancel()

	lm := link.NewManager(reg, link.WithPropagateHook(met.LinkPropagated))
	defer lm.Close()
	a, err := lm.UserParms().Add("A", "", 1, -100, 100)
	require.NoError(t, err)
	b, err := lm.UserParms().Add("B", "", 0, -100, 100)
	require.NoError(t, err)
	_, err = lm.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)

	a.Set(5)
	a.SetFromDevice(6)

	assert.Equal(t, 1.0, testutil.ToFloat64(met.commits.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.commits.WithLabelValues("device")))
	assert.Equal(t, 3.0, testutil.ToFloat64(met.commits.WithLabelValues("link")))
	assert.Equal(t, 3.0, testutil.ToFloat64(met.propagations))
}

func TestScriptMetrics(t *testing.T) {
	met := New()
	reg := parm.NewRegistry()
	lm := link.NewManager(reg)
	defer lm.Close()
	x, err := lm.UserParms().Add("x", "", 2, -100, 100)
	require.NoError(t, err)
	y, err := lm.UserParms().Add("y", "", 0, -100, 100)
	require.NoError(t, err)

	am := advlink.NewManager(reg, advlink.WithEvalHook(met.ScriptEvaluated))
	defer am.Close()
	l, err := am.Add("double")
	require.NoError(t, err)
	require.NoError(t, am.AddInput(l, x.ID(), "x"))
	require.NoError(t, am.AddOutput(l, y.ID(), "y"))

	_, err = am.SetScript(l, "(def y (* x 2.0))")
	require.NoError(t, err)
	assert.Equal(t, 4.0, y.Get())
	_, err = am.SetScript(l, "(def y (* x")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(met.scriptEvals.WithLabelValues(advlink.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.scriptEvals.WithLabelValues(advlink.ResultError)))
}

func TestWriteText(t *testing.T) {
	met := New()
	met.ScriptEvaluated(advlink.ResultTimeout, 0)
	met.WalkFinished(true, 0, 0)

	var buf bytes.Buffer
	require.NoError(t, met.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, `spar_script_evals_total{result="timeout"} 1`)
	assert.Contains(t, out, `spar_update_walks_total{mode="full"} 1`)
	assert.Contains(t, out, "spar_update_walk_seconds_count 1")
}

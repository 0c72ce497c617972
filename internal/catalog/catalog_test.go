package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlansOrderedAndComplete(t *testing.T) {
	plans := Plans()
	require.Len(t, plans, 5)

	ids := make([]string, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
		assert.NotEmpty(t, p.Name)
		assert.Positive(t, p.PriceMinor)
		assert.Equal(t, "INR", p.Currency)
		assert.Positive(t, p.BaseTokens)
		assert.NotEmpty(t, p.Features)
	}
	assert.Equal(t, []string{"starter", "trader", "pro", "elite", "ultimate"}, ids)
}

func TestPlansReturnsCopy(t *testing.T) {
	first := Plans()
	first[0].PriceMinor = 1

	again := Plans()
	assert.Equal(t, int64(129900), again[0].PriceMinor)
}

func TestByID(t *testing.T) {
	pro, ok := ByID("pro")
	require.True(t, ok)
	assert.Equal(t, "Pro Pack", pro.Name)
	assert.Equal(t, int64(349900), pro.PriceMinor)
	assert.True(t, pro.Popular)
	assert.Equal(t, "Best Seller", pro.Badge)
	assert.Equal(t, int64(180), pro.TotalTokens())

	_, ok = ByID("platinum")
	assert.False(t, ok)
}

func TestTotalTokens(t *testing.T) {
	cases := map[string]int64{
		"starter":  30,
		"trader":   80,
		"pro":      180,
		"elite":    370,
		"ultimate": 750,
	}
	for id, want := range cases {
		plan, ok := ByID(id)
		require.True(t, ok, id)
		assert.Equal(t, want, plan.TotalTokens(), id)
	}
}

func TestTokenCost(t *testing.T) {
	basic, ok := TokenCost(AnalysisBasic)
	require.True(t, ok)
	assert.Equal(t, int64(2), basic)

	advanced, ok := TokenCost(AnalysisAdvanced)
	require.True(t, ok)
	assert.Equal(t, int64(5), advanced)

	_, ok = TokenCost("premium")
	assert.False(t, ok)
}

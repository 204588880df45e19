package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/copilot/internal/contracts"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
	assert.InDelta(t, 0.95, Default().MaxEquity(), 1e-12)
}

func TestTierFor(t *testing.T) {
	p := Default()

	tests := []struct {
		risk int
		want Tier
	}{
		{0, TierVeryRiskAverse},
		{34, TierVeryRiskAverse},
		{35, TierRiskAverse},
		{49, TierRiskAverse},
		{50, TierModerate},
		{69, TierModerate},
		{70, TierAggressive},
		{100, TierAggressive},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, p.TierFor(tt.risk))
		})
	}

	assert.True(t, TierVeryRiskAverse.IsRiskAverse())
	assert.True(t, TierRiskAverse.IsRiskAverse())
	assert.False(t, TierModerate.IsRiskAverse())
	assert.False(t, TierRiskAverse.IsVeryRiskAverse())
}

func TestLimitsFor(t *testing.T) {
	p := Default()

	tests := []struct {
		risk      int
		maxSector float64
		minSect   int
		prefMin   float64
	}{
		{20, 0.20, 5, 0.30},
		{40, 0.25, 4, 0.40},
		{60, 0.35, 3, 0.50},
		{80, 0.35, 3, 0.60},
	}

	for _, tt := range tests {
		l := p.LimitsFor(tt.risk)
		assert.Equal(t, tt.maxSector, l.MaxSectorWeight, "risk %d", tt.risk)
		assert.Equal(t, tt.minSect, l.MinSectors, "risk %d", tt.risk)
		assert.Equal(t, tt.prefMin, l.PreferredMinimum, "risk %d", tt.risk)
	}
}

func TestCashTable(t *testing.T) {
	c := Default().Allocation.Cash

	assert.Equal(t, 0.25, c.For(6, TierVeryRiskAverse))
	assert.Equal(t, 0.12, c.For(12, TierRiskAverse))
	assert.Equal(t, 0.10, c.For(23, TierAggressive))
	assert.Equal(t, 0.07, c.For(24, TierRiskAverse))
	assert.Equal(t, 0.05, c.For(600, TierModerate))
}

func TestParseOverridesDefaults(t *testing.T) {
	p, err := Parse([]byte(`
min_cash: 0.08
sectors:
  preferred_ratio: 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, 0.08, p.MinCash)
	assert.Equal(t, 0.5, p.Sectors.PreferredRatio)
	// untouched values keep defaults
	assert.Equal(t, 0.20, p.Sectors.MaxWeight.VeryRiskAverse)
	assert.Equal(t, 35, p.Tiers.VeryRiskAverse)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("min_cahs: 0.05\n"))
	assert.Error(t, err)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"min cash zero", "min_cash: 0\n", "min_cash"},
		{"tiers out of order", "tiers: {very_risk_averse: 60, risk_averse: 50}\n", "tiers"},
		{"sector cap zero", "sectors: {max_weight: {very_risk_averse: 0}}\n", "sectors.max_weight.very_risk_averse"},
		{"preferred ratio", "sectors: {preferred_ratio: 1.5}\n", "sectors.preferred_ratio"},
		{"min holdings", "diversification: {min_holdings: 0}\n", "diversification.min_holdings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var ve *contracts.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestHash(t *testing.T) {
	h1, err := Hash(Default())
	require.NoError(t, err)
	h2, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	changed := Default()
	changed.MinCash = 0.06
	h3, err := Hash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestLoad(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)

	// 저장소의 예시 파일은 기본값과 동일해야 함
	p, err = Load(filepath.Join("..", "..", "configs", "policy.yaml"))
	require.NoError(t, err)
	want, _ := Hash(Default())
	got, _ := Hash(p)
	assert.Equal(t, want, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

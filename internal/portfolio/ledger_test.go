package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func vector(entries ...interface{}) *weightVector {
	v := newWeightVector(len(entries) / 3)
	for i := 0; i < len(entries); i += 3 {
		v.add(entries[i].(string), entries[i+1].(string), entries[i+2].(float64))
	}
	return v
}

func TestScaleInto_DownIsUniform(t *testing.T) {
	v := vector("A", "Tech", 0.6, "B", "Energy", 0.4)

	scale := scaleInto(v, 0.5, 0.25, 0.35)

	assert.InDelta(t, 0.5, scale, 1e-12)
	assert.InDelta(t, 0.3, v.weights[0], 1e-12)
	assert.InDelta(t, 0.2, v.weights[1], 1e-12)
}

func TestScaleInto_UpRespectsCaps(t *testing.T) {
	// Tech는 이미 한도, 나머지가 부족분을 흡수
	v := vector(
		"AAPL", "Technology", 0.25,
		"MSFT", "Technology", 0.10,
		"JNJ", "Healthcare", 0.05,
		"XOM", "Energy", 0.05,
	)

	scaleInto(v, 0.60, 0.25, 0.35)

	assert.InDelta(t, 0.25, v.weights[0], 1e-12)
	assert.InDelta(t, 0.10, v.weights[1], 1e-12)
	assert.InDelta(t, 0.125, v.weights[2], 1e-9)
	assert.InDelta(t, 0.125, v.weights[3], 1e-9)
	assert.InDelta(t, 0.60, v.sum(), 1e-9)
}

func TestScaleInto_ShortfallStaysUnallocated(t *testing.T) {
	v := vector("A", "Tech", 0.1, "B", "Tech", 0.1)

	scaleInto(v, 0.95, 0.25, 0.35)

	assert.InDelta(t, 0.35, v.sum(), 1e-9, "sector cap bounds the total")
	for _, w := range v.weights {
		assert.LessOrEqual(t, w, 0.25+1e-12)
	}
}

func TestScaleInto_WaterFillRespectsPositionCap(t *testing.T) {
	v := vector("A", "S1", 0.20, "B", "S2", 0.01, "C", "S3", 0.01)

	scaleInto(v, 0.60, 0.25, 1.0)

	assert.InDelta(t, 0.60, v.sum(), 1e-9)
	for _, w := range v.weights {
		assert.LessOrEqual(t, w, 0.25+1e-12)
	}
	assert.InDelta(t, 0.25, v.weights[0], 1e-12)
}

func TestScaleInto_ZeroVector(t *testing.T) {
	v := vector("A", "S1", 0.0)
	assert.Equal(t, 1.0, scaleInto(v, 0.9, 0.25, 0.35))
	assert.Equal(t, 0.0, v.weights[0])
}

func TestWeightVector_Remove(t *testing.T) {
	v := vector("A", "S1", 0.1, "B", "S2", 0.0005, "C", "S1", 0.2)

	v.remove(func(i int) bool { return v.weights[i] < 0.001 })

	assert.Equal(t, []string{"A", "C"}, v.tickers)
	assert.Equal(t, []string{"S1", "S1"}, v.sectors)
	assert.InDelta(t, 0.3, v.ledger()["S1"], 1e-12)
	assert.InDelta(t, 0.2, v.weightOf("C"), 1e-12)
	assert.Equal(t, 0.0, v.weightOf("B"))
}

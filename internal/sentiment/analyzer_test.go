package sentiment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyze_PositiveTextIsHappiness(t *testing.T) {
	r := New().Analyze("This is absolutely wonderful, amazing, and delightful news!")
	require.Greater(t, r.Compound, 0.6)
	require.Equal(t, LabelHappiness, r.Label)
}

func TestAnalyze_NeutralTextIsNeutral(t *testing.T) {
	r := New().Analyze("The report contains twelve pages of quarterly figures.")
	require.Equal(t, LabelNeutral, r.Label)
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	require.Same(t, Default(), Default())
}

func TestBoost_SameValenceBoostsAboveOne(t *testing.T) {
	require.Greater(t, Boost(LabelHappiness, LabelHappiness), 1.0)
}

func TestBoost_OppositeValencePenalizes(t *testing.T) {
	require.Less(t, Boost(LabelHappiness, LabelSadness), 1.0)
}

func TestBoost_NeutralEitherSideIsUnaffected(t *testing.T) {
	require.Equal(t, 1.0, Boost(LabelNeutral, LabelHappiness))
	require.Equal(t, 1.0, Boost(LabelHappiness, LabelNeutral))
}

func TestExtractLabel_FromStructValue(t *testing.T) {
	extra := map[string]any{"sentiment": Result{Label: LabelFear}}
	require.Equal(t, LabelFear, ExtractLabel(extra))
}

func TestExtractLabel_FromDecodedMapShape(t *testing.T) {
	extra := map[string]any{"sentiment": map[string]any{"label": "anger"}}
	require.Equal(t, LabelAnger, ExtractLabel(extra))
}

func TestExtractLabel_AbsentKeyIsNeutral(t *testing.T) {
	require.Equal(t, LabelNeutral, ExtractLabel(map[string]any{}))
}

package sentiment

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(label Label, conf float64) Record {
	return Record{Label: label, Confidence: conf}
}

func TestDetectSpikePositive(t *testing.T) {
	agg := NewAggregator()
	res := agg.DetectSpike([]Record{
		rec(LabelPositive, 0.9),
		rec(LabelPositive, 0.8),
		rec(LabelPositive, 0.95),
		rec(LabelPositive, 0.85),
		rec(LabelNeutral, 0.75),
		rec(LabelNegative, 0.4), // filtered out
	})

	assert.True(t, res.Detected)
	assert.True(t, res.PositiveSpike)
	assert.False(t, res.NegativeSpike)
	assert.Equal(t, 5, res.TotalHighConfidence)
	assert.InDelta(t, 0.8, res.PositiveRatio, 1e-9)
	assert.Empty(t, res.Reason)
}

func TestDetectSpikeInsufficientHighConfidence(t *testing.T) {
	agg := NewAggregator()
	res := agg.DetectSpike([]Record{
		rec(LabelNegative, 0.9),
		rec(LabelNegative, 0.7), // floor is exclusive
		rec(LabelNegative, 0.99),
		rec(LabelNegative, 0.2),
	})

	assert.False(t, res.Detected)
	assert.Equal(t, ReasonInsufficientData, res.Reason)
	assert.Equal(t, 2, res.TotalHighConfidence)
}

func TestDetectSpikeMixedNoSpike(t *testing.T) {
	agg := NewAggregator()
	res := agg.DetectSpike([]Record{
		rec(LabelNegative, 0.9),
		rec(LabelPositive, 0.9),
		rec(LabelNeutral, 0.9),
	})

	assert.False(t, res.Detected)
	assert.Empty(t, res.Reason)
	assert.InDelta(t, 1.0/3.0, res.NegativeRatio, 1e-9)
}

func TestAggregate(t *testing.T) {
	agg := NewAggregator()

	t.Run("empty batch is neutral", func(t *testing.T) {
		s := agg.Aggregate(nil)
		assert.Equal(t, LabelNeutral, s.Overall)
		assert.Zero(t, s.Confidence)
		assert.Zero(t, s.TotalMentions)
	})

	t.Run("majority includes low confidence records", func(t *testing.T) {
		s := agg.Aggregate([]Record{
			rec(LabelNegative, 0.1),
			rec(LabelNegative, 0.3),
			rec(LabelPositive, 0.9),
		})
		assert.Equal(t, LabelNegative, s.Overall)
		assert.InDelta(t, 13.0/30.0, s.Confidence, 1e-9)
		assert.Equal(t, 3, s.TotalMentions)
	})

	t.Run("tie is neutral", func(t *testing.T) {
		s := agg.Aggregate([]Record{
			rec(LabelNegative, 0.8),
			rec(LabelPositive, 0.8),
		})
		assert.Equal(t, LabelNeutral, s.Overall)
		assert.InDelta(t, 0.5, s.PositiveRatio, 1e-9)
	})
}

func TestKeywordClassifier(t *testing.T) {
	kc := KeywordClassifier{}
	ctx := context.Background()

	r, err := kc.Classify(ctx, "GME to the MOON, rocket squeeze incoming", "GME")
	require.NoError(t, err)
	assert.Equal(t, LabelPositive, r.Label)
	assert.Equal(t, 0.5, r.Confidence)
	assert.Contains(t, r.Keywords, "squeeze")
	assert.Contains(t, r.Keywords, "to the moon")

	r, err = kc.Classify(ctx, "looks like a crash, sell everything", "")
	require.NoError(t, err)
	assert.Equal(t, LabelNegative, r.Label)

	r, err = kc.Classify(ctx, "quarterly report tomorrow", "")
	require.NoError(t, err)
	assert.Equal(t, LabelNeutral, r.Label)
}

type failingClassifier struct{ calls int }

func (f *failingClassifier) Classify(context.Context, string, string) (Record, error) {
	f.calls++
	return Record{}, errors.Join(ErrClassification, errors.New("upstream 503"))
}

type fixedClassifier struct{ rec Record }

func (f fixedClassifier) Classify(_ context.Context, text string, _ string) (Record, error) {
	r := f.rec
	r.SourceText = text
	return r, nil
}

func TestFallbackClassifierUsesKeywordsOnError(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	primary := &failingClassifier{}
	fc := NewFallbackClassifier(primary, logrus.NewEntry(log))

	r, err := fc.Classify(context.Background(), "bearish dump", "DOGE")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, LabelNegative, r.Label)
	assert.Equal(t, 0.5, r.Confidence)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "DOGE", hook.LastEntry().Data["asset"])
}

func TestFallbackClassifierPrefersPrimary(t *testing.T) {
	fc := NewFallbackClassifier(fixedClassifier{rec: rec(LabelPositive, 0.93)}, nil)

	r, err := fc.Classify(context.Background(), "crash", "BTC")
	require.NoError(t, err)
	assert.Equal(t, LabelPositive, r.Label)
	assert.Equal(t, 0.93, r.Confidence)
	assert.Equal(t, "crash", r.SourceText)
}

func TestParseLabel(t *testing.T) {
	assert.Equal(t, LabelPositive, ParseLabel("positive"))
	assert.Equal(t, LabelNegative, ParseLabel("negative"))
	assert.Equal(t, LabelNeutral, ParseLabel("bullish"))
}

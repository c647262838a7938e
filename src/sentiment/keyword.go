package sentiment

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const keywordConfidence = 0.5

var (
	positiveWords = []string{"bullish", "moon", "rocket", "buy", "pump", "squeeze"}
	negativeWords = []string{"bearish", "dump", "crash", "sell", "drop"}

	financialKeywords = []string{
		"squeeze", "pump", "undervalued", "announcement", "moon", "rocket",
		"diamond hands", "hodl", "buy the dip", "to the moon", "bullish",
		"bearish", "dump", "crash", "rally", "breakout", "resistance",
		"support", "volume", "merger", "acquisition", "earnings", "ipo",
	}
)

// KeywordClassifier counts bullish and bearish words. It never fails and is used
// as the degraded mode when the primary classifier is unavailable.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string, _ string) (Record, error) {
	lower := strings.ToLower(text)

	pos := countContained(lower, positiveWords)
	neg := countContained(lower, negativeWords)

	label := LabelNeutral
	switch {
	case pos > neg:
		label = LabelPositive
	case neg > pos:
		label = LabelNegative
	}

	return Record{
		Label:      label,
		Confidence: keywordConfidence,
		SourceText: text,
		Keywords:   ExtractKeywords(text),
	}, nil
}

// ExtractKeywords returns the financial keywords found in text, in dictionary order.
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, k := range financialKeywords {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	return found
}

func countContained(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// FallbackClassifier delegates to Primary and falls back to Fallback on error.
type FallbackClassifier struct {
	Primary  Classifier
	Fallback Classifier
	Log      *logrus.Entry
}

func NewFallbackClassifier(primary Classifier, log *logrus.Entry) *FallbackClassifier {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FallbackClassifier{Primary: primary, Fallback: KeywordClassifier{}, Log: log}
}

func (f *FallbackClassifier) Classify(ctx context.Context, text string, assetHint string) (Record, error) {
	if f.Primary != nil {
		rec, err := f.Primary.Classify(ctx, text, assetHint)
		if err == nil {
			return rec, nil
		}
		f.Log.WithError(err).WithField("asset", assetHint).Warn("primary classifier failed, using keyword fallback")
	}
	return f.Fallback.Classify(ctx, text, assetHint)
}

package sentiment

import (
	"context"
	"errors"
)

type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// ParseLabel maps free-form classifier output to a Label, defaulting to neutral.
func ParseLabel(s string) Label {
	switch Label(s) {
	case LabelPositive:
		return LabelPositive
	case LabelNegative:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

var ErrClassification = errors.New("sentiment classification failed")

// Record is one classified mention.
type Record struct {
	Label      Label    `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	SourceText string   `json:"source_text"`
	Keywords   []string `json:"keywords,omitempty"`
}

// Classifier labels a piece of text, optionally focused on an asset.
type Classifier interface {
	Classify(ctx context.Context, text string, assetHint string) (Record, error)
}

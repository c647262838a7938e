package sentiment

const (
	ReasonInsufficientData = "insufficient high-confidence data"

	defaultConfidenceFloor = 0.7
	defaultSpikeRatio      = 0.7
	defaultMinMentions     = 3
)

type SpikeResult struct {
	Detected            bool    `json:"detected"`
	PositiveSpike       bool    `json:"positive_spike"`
	NegativeSpike       bool    `json:"negative_spike"`
	PositiveRatio       float64 `json:"positive_ratio"`
	NegativeRatio       float64 `json:"negative_ratio"`
	TotalHighConfidence int     `json:"total_mentions"`
	Reason              string  `json:"reason,omitempty"`
}

type Summary struct {
	Overall       Label   `json:"overall_sentiment"`
	Confidence    float64 `json:"confidence"`
	TotalMentions int     `json:"total_mentions"`
	PositiveRatio float64 `json:"positive_ratio"`
	NegativeRatio float64 `json:"negative_ratio"`
	NeutralRatio  float64 `json:"neutral_ratio"`
}

// Aggregator turns batches of classified records into ratios and spike flags.
type Aggregator struct {
	ConfidenceFloor float64
	SpikeRatio      float64
	MinMentions     int
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		ConfidenceFloor: defaultConfidenceFloor,
		SpikeRatio:      defaultSpikeRatio,
		MinMentions:     defaultMinMentions,
	}
}

// DetectSpike looks only at records classified with confidence above the floor.
func (a *Aggregator) DetectSpike(records []Record) SpikeResult {
	var positive, negative, total int
	for _, r := range records {
		if r.Confidence <= a.ConfidenceFloor {
			continue
		}
		total++
		switch r.Label {
		case LabelPositive:
			positive++
		case LabelNegative:
			negative++
		case LabelNeutral:
		}
	}

	if total < a.MinMentions {
		return SpikeResult{TotalHighConfidence: total, Reason: ReasonInsufficientData}
	}

	res := SpikeResult{
		PositiveRatio:       float64(positive) / float64(total),
		NegativeRatio:       float64(negative) / float64(total),
		TotalHighConfidence: total,
	}
	res.PositiveSpike = res.PositiveRatio > a.SpikeRatio
	res.NegativeSpike = res.NegativeRatio > a.SpikeRatio
	res.Detected = res.PositiveSpike || res.NegativeSpike
	return res
}

// Aggregate majority-votes over every record regardless of confidence.
// Without a strict majority the batch is neutral.
func (a *Aggregator) Aggregate(records []Record) Summary {
	if len(records) == 0 {
		return Summary{Overall: LabelNeutral}
	}

	var positive, negative, neutral int
	confSum := 0.0
	for _, r := range records {
		confSum += r.Confidence
		switch r.Label {
		case LabelPositive:
			positive++
		case LabelNegative:
			negative++
		default:
			neutral++
		}
	}

	total := float64(len(records))
	overall := LabelNeutral
	switch {
	case positive > negative && positive > neutral:
		overall = LabelPositive
	case negative > positive && negative > neutral:
		overall = LabelNegative
	}

	return Summary{
		Overall:       overall,
		Confidence:    confSum / total,
		TotalMentions: len(records),
		PositiveRatio: float64(positive) / total,
		NegativeRatio: float64(negative) / total,
		NeutralRatio:  float64(neutral) / total,
	}
}

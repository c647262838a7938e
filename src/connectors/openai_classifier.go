package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"wealthflow/src/sentiment"
)

const systemPrompt = "You are a financial sentiment analysis expert. Analyze text for market sentiment and trading signals."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type classification struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

// OpenAIClassifier labels mentions with a chat completion. Every failure,
// including an unparseable answer, is reported as sentiment.ErrClassification.
type OpenAIClassifier struct {
	http    *resty.Client
	model   string
	apiKey  string
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewOpenAIClassifier(cfg Config, limiter *rate.Limiter, log *logrus.Entry) *OpenAIClassifier {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &OpenAIClassifier{
		http:    newRestyClient(cfg.OpenAIBaseURL, cfg.HTTPTimeout, cfg.RetryCount),
		model:   cfg.OpenAIModel,
		apiKey:  cfg.OpenAIAPIKey,
		limiter: limiter,
		log:     log.WithField("source", "openai"),
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string, assetHint string) (sentiment.Record, error) {
	if c.apiKey == "" {
		return sentiment.Record{}, fmt.Errorf("%w: no api key configured", sentiment.ErrClassification)
	}
	if err := wait(ctx, c.limiter); err != nil {
		return sentiment.Record{}, fmt.Errorf("%w: %v", sentiment.ErrClassification, err)
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt(text, assetHint)},
			},
			MaxTokens:   500,
			Temperature: 0.1,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return sentiment.Record{}, fmt.Errorf("%w: %v", sentiment.ErrClassification, err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return sentiment.Record{}, fmt.Errorf("%w: %s", sentiment.ErrClassification, out.Error.Message)
		}
		return sentiment.Record{}, fmt.Errorf("%w: %v", sentiment.ErrClassification, statusError(resp))
	}
	if len(out.Choices) == 0 {
		return sentiment.Record{}, fmt.Errorf("%w: empty completion", sentiment.ErrClassification)
	}

	var parsed classification
	content := stripFence(out.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return sentiment.Record{}, fmt.Errorf("%w: decode answer: %v", sentiment.ErrClassification, err)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return sentiment.Record{}, fmt.Errorf("%w: confidence %v out of range", sentiment.ErrClassification, parsed.Confidence)
	}

	keywords := parsed.Keywords
	if len(keywords) == 0 {
		keywords = sentiment.ExtractKeywords(text)
	}
	return sentiment.Record{
		Label:      sentiment.ParseLabel(strings.ToLower(strings.TrimSpace(parsed.Sentiment))),
		Confidence: parsed.Confidence,
		SourceText: text,
		Keywords:   keywords,
	}, nil
}

func prompt(text, assetHint string) string {
	focus := assetHint
	if focus == "" {
		focus = "any financial assets"
	}
	return fmt.Sprintf(`Analyze the following text for financial sentiment.

Text: %q

Focus on: %s

Respond only with JSON with keys: sentiment (positive, negative or neutral), confidence (0-1), keywords (list of financial keywords found).`, text, focus)
}

// stripFence removes a markdown code fence around a JSON answer.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

package connectors

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type mentionsResponse struct {
	Mentions []string `json:"mentions"`
}

// HTTPMentionSource pulls recent social mentions from a crawler service
// exposing GET /mentions?asset=X.
type HTTPMentionSource struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewHTTPMentionSource(cfg Config, limiter *rate.Limiter, log *logrus.Entry) *HTTPMentionSource {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &HTTPMentionSource{
		http:    newRestyClient(cfg.MentionsBaseURL, cfg.HTTPTimeout, cfg.RetryCount),
		limiter: limiter,
		log:     log.WithField("source", "mentions"),
	}
}

func (m *HTTPMentionSource) Mentions(ctx context.Context, asset string) ([]string, error) {
	if err := wait(ctx, m.limiter); err != nil {
		return nil, err
	}

	var out mentionsResponse
	resp, err := m.http.R().
		SetContext(ctx).
		SetQueryParam("asset", asset).
		SetResult(&out).
		Get("/mentions")
	if err != nil {
		return nil, fmt.Errorf("mentions %s: %w", asset, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mentions %s: %w", asset, statusError(resp))
	}

	m.log.WithFields(logrus.Fields{"asset": asset, "count": len(out.Mentions)}).Debug("fetched mentions")
	return out.Mentions, nil
}

package alerts

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Type string

const (
	TypeVolumeAnomaly  Type = "volume_anomaly"
	TypePumpDump       Type = "pump_dump"
	TypeSentimentSpike Type = "sentiment_spike"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Payload is the detection data an alert was raised from.
type Payload map[string]any

// clone returns a shallow copy; payload values are scalars.
func (p Payload) clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

type Alert struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Asset     string    `json:"asset_name"`
	CreatedAt time.Time `json:"timestamp"`
	Urgency   Urgency   `json:"urgency"`
	Payload   Payload   `json:"data"`
	Message   string    `json:"message"`
}

type Summary struct {
	Total     int             `json:"total_alerts"`
	ByType    map[Type]int    `json:"alert_types"`
	ByUrgency map[Urgency]int `json:"urgency_levels"`
	Last24h   int             `json:"recent_alerts_24h"`
}

// Sink receives every alert after it has been recorded.
type Sink func(Alert)

// Generator creates alerts and keeps the append-only history.
type Generator struct {
	mu      sync.Mutex
	history []Alert
	sinks   []Sink
	entropy io.Reader
	now     func() time.Time
	logger  *logrus.Entry
}

func NewGenerator(logger *logrus.Entry) *Generator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Generator{
		entropy: newEntropy(),
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock swaps the time source, used by tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Subscribe registers a sink. Sinks run synchronously outside the history lock.
func (g *Generator) Subscribe(s Sink) {
	g.mu.Lock()
	g.sinks = append(g.sinks, s)
	g.mu.Unlock()
}

// Generate records a new alert. The payload is copied, so later changes to the
// caller's map do not reach the alert.
func (g *Generator) Generate(t Type, asset string, payload Payload, urgency Urgency) (Alert, error) {
	payload = payload.clone()
	g.mu.Lock()
	at := g.now()
	id, err := g.nextID(t, asset, at)
	if err != nil {
		g.mu.Unlock()
		return Alert{}, fmt.Errorf("alert id: %w", err)
	}
	a := Alert{
		ID:        id,
		Type:      t,
		Asset:     asset,
		CreatedAt: at,
		Urgency:   urgency,
		Payload:   payload,
		Message:   Message(t, asset, payload),
	}
	g.history = append(g.history, a)
	a.Payload = payload.clone()
	sinks := append([]Sink(nil), g.sinks...)
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"alert_id": a.ID,
		"type":     a.Type,
		"asset":    a.Asset,
		"urgency":  a.Urgency,
	}).Info(a.Message)

	for _, s := range sinks {
		s(a)
	}
	return a, nil
}

// Recent returns alerts created within window of now, oldest first.
func (g *Generator) Recent(window time.Duration) []Alert {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	out := make([]Alert, 0)
	for _, a := range g.history {
		if now.Sub(a.CreatedAt) <= window {
			a.Payload = a.Payload.clone()
			out = append(out, a)
		}
	}
	return out
}

func (g *Generator) Summary() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	s := Summary{
		Total:     len(g.history),
		ByType:    map[Type]int{},
		ByUrgency: map[Urgency]int{},
	}
	for _, a := range g.history {
		s.ByType[a.Type]++
		s.ByUrgency[a.Urgency]++
		if now.Sub(a.CreatedAt) <= 24*time.Hour {
			s.Last24h++
		}
	}
	return s
}

// Load seeds the history with previously persisted alerts, e.g. after a restart.
func (g *Generator) Load(history []Alert) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(append([]Alert(nil), history...), g.history...)
}

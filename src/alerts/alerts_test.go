package alerts

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthflow/src/anomaly"
	"wealthflow/src/sentiment"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestGenerator(t *testing.T) (*Generator, *fakeClock) {
	t.Helper()
	log, _ := logrustest.NewNullLogger()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	return NewGenerator(logrus.NewEntry(log)).WithClock(clock.Now), clock
}

func TestGenerateUniqueIDsWithinSameInstant(t *testing.T) {
	g, _ := newTestGenerator(t)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		a, err := g.Generate(TypeVolumeAnomaly, "AAPL", Payload{KeyVolumeMultiplier: 3.5}, UrgencyHigh)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(a.ID, "volume_anomaly_AAPL_"))
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
	assert.Equal(t, 50, g.Summary().Total)
}

func TestMessages(t *testing.T) {
	cases := []struct {
		name    string
		typ     Type
		payload Payload
		want    string
	}{
		{"volume", TypeVolumeAnomaly, Payload{KeyVolumeMultiplier: 3.5}, "VOLUME ALERT: AAPL trading volume is 3.5x normal levels!"},
		{"pump", TypePumpDump, Payload{KeyPumpDetected: true, KeyPriceChange: 0.35}, "PUMP ALERT: AAPL up 35.0% with high volume!"},
		{"dump", TypePumpDump, Payload{KeyDumpDetected: true, KeyDumpFromHigh: 0.125}, "DUMP ALERT: AAPL down 12.5% from recent high!"},
		{"pump dump without flags", TypePumpDump, Payload{}, "Alert for AAPL: pump_dump"},
		{"positive sentiment", TypeSentimentSpike, Payload{KeyPositiveSpike: true, KeyPositiveRatio: 0.8}, "SENTIMENT ALERT: AAPL has 80% positive mentions!"},
		{"negative sentiment", TypeSentimentSpike, Payload{KeyNegativeSpike: true, KeyNegativeRatio: 0.75}, "SENTIMENT ALERT: AAPL has 75% negative mentions!"},
		{"unknown type", Type("custom"), nil, "Alert for AAPL: custom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Message(tc.typ, "AAPL", tc.payload))
		})
	}
}

func TestPayloadHelpers(t *testing.T) {
	vp := VolumePayload(anomaly.VolumeAnomalyResult{Detected: true, Multiplier: 4.2})
	assert.Equal(t, "VOLUME ALERT: BTC trading volume is 4.2x normal levels!", Message(TypeVolumeAnomaly, "BTC", vp))

	pp := PumpDumpPayload(anomaly.PumpDumpResult{DumpDetected: true, DumpFromHigh: 0.2})
	assert.Equal(t, "DUMP ALERT: BTC down 20.0% from recent high!", Message(TypePumpDump, "BTC", pp))

	sp := SentimentPayload(sentiment.SpikeResult{Detected: true, PositiveSpike: true, PositiveRatio: 0.9, TotalHighConfidence: 10})
	assert.Equal(t, 10, sp[KeyTotalMentions])
	assert.Equal(t, "SENTIMENT ALERT: BTC has 90% positive mentions!", Message(TypeSentimentSpike, "BTC", sp))
}

func TestRecentKeepsChronologicalOrder(t *testing.T) {
	g, clock := newTestGenerator(t)

	first, err := g.Generate(TypePumpDump, "GME", Payload{KeyPumpDetected: true}, UrgencyHigh)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	second, err := g.Generate(TypeVolumeAnomaly, "GME", nil, UrgencyHigh)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	third, err := g.Generate(TypeSentimentSpike, "GME", nil, UrgencyMedium)
	require.NoError(t, err)

	recent := g.Recent(20 * time.Minute)
	require.Len(t, recent, 1)
	assert.Equal(t, third.ID, recent[0].ID)

	recent = g.Recent(3 * time.Hour)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{recent[0].ID, recent[1].ID, recent[2].ID})
}

func TestSummary(t *testing.T) {
	g, clock := newTestGenerator(t)

	_, err := g.Generate(TypeVolumeAnomaly, "AAPL", nil, UrgencyHigh)
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)
	_, err = g.Generate(TypeVolumeAnomaly, "TSLA", nil, UrgencyHigh)
	require.NoError(t, err)
	_, err = g.Generate(TypeSentimentSpike, "TSLA", nil, UrgencyMedium)
	require.NoError(t, err)

	s := g.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ByType[TypeVolumeAnomaly])
	assert.Equal(t, 1, s.ByType[TypeSentimentSpike])
	assert.Equal(t, 2, s.ByUrgency[UrgencyHigh])
	assert.Equal(t, 1, s.ByUrgency[UrgencyMedium])
	assert.Equal(t, 2, s.Last24h)
}

func TestSubscribeReceivesEveryAlert(t *testing.T) {
	g, _ := newTestGenerator(t)

	var got []Alert
	g.Subscribe(func(a Alert) { got = append(got, a) })

	a, err := g.Generate(TypeVolumeAnomaly, "NVDA", Payload{KeyVolumeMultiplier: 5.0}, UrgencyHigh)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, a.Message, got[0].Message)
}

func TestLoadPrependsPersistedHistory(t *testing.T) {
	g, clock := newTestGenerator(t)
	old := Alert{ID: "volume_anomaly_AAPL_old", Type: TypeVolumeAnomaly, Asset: "AAPL", CreatedAt: clock.Now().Add(-time.Hour), Urgency: UrgencyHigh}

	_, err := g.Generate(TypePumpDump, "AAPL", nil, UrgencyHigh)
	require.NoError(t, err)
	g.Load([]Alert{old})

	recent := g.Recent(2 * time.Hour)
	require.Len(t, recent, 2)
	assert.Equal(t, old.ID, recent[0].ID)
}

func TestAlertPayloadIsCopied(t *testing.T) {
	g, _ := newTestGenerator(t)

	payload := Payload{"multiplier": 3.5, "detected": true}
	a, err := g.Generate(TypeVolumeAnomaly, "AAPL", payload, UrgencyHigh)
	require.NoError(t, err)

	payload["multiplier"] = 9.0
	a.Payload["detected"] = false

	recent := g.Recent(time.Hour)
	require.Len(t, recent, 1)
	assert.Equal(t, 3.5, recent[0].Payload["multiplier"])
	assert.Equal(t, true, recent[0].Payload["detected"])

	recent[0].Payload["multiplier"] = 1.0
	assert.Equal(t, 3.5, g.Recent(time.Hour)[0].Payload["multiplier"])
}

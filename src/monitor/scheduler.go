package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"wealthflow/src/alerts"
	"wealthflow/src/anomaly"
	"wealthflow/src/execution"
	"wealthflow/src/model"
	"wealthflow/src/sentiment"
)

type Category string

const (
	CategoryStocks    Category = "stocks"
	CategoryCryptos   Category = "cryptos"
	CategorySentiment Category = "sentiment"
)

var categories = []Category{CategoryStocks, CategoryCryptos, CategorySentiment}

// Clock is the scheduler's time source.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// MarketDataSource returns the most recent samples for symbol, oldest first.
type MarketDataSource interface {
	GetSeries(ctx context.Context, symbol string, window int) ([]model.MarketSample, error)
}

// MentionSource returns recent social mentions of an asset.
type MentionSource interface {
	Mentions(ctx context.Context, asset string) ([]string, error)
}

type SampleStore interface {
	UpsertSamples(ctx context.Context, samples []model.MarketSample) error
}

// Trader lets the monitor mark prices and, when enabled, exit pumped positions.
type Trader interface {
	Position(symbol string) (model.Position, bool)
	ExecuteSignal(ctx context.Context, sig execution.Signal) (execution.Result, error)
	MarkPrice(ctx context.Context, symbol string, price float64) ([]model.Order, error)
}

type Metrics interface {
	RecordTick()
	RecordCheckFailure(category string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// Deps are the collaborators of the scheduler. Stocks, Cryptos, Alerts and
// Detector are required; the rest may be nil.
type Deps struct {
	Stocks     MarketDataSource
	Cryptos    MarketDataSource
	Mentions   MentionSource
	Classifier sentiment.Classifier
	Detector   *anomaly.Detector
	Aggregator *sentiment.Aggregator
	Alerts     *alerts.Generator
	Samples    SampleStore
	Exceptions ExceptionStore
	Trader     Trader
	Metrics    Metrics
}

// Scheduler runs a single cooperative polling loop. Each tick checks every
// category whose own interval has elapsed, one asset at a time.
type Scheduler struct {
	cfg    Config
	deps   Deps
	clock  Clock
	logger *logrus.Entry

	// tick source and back-off timer, replaceable in tests
	newTicks func() (<-chan time.Time, func())
	after    func(d time.Duration) <-chan time.Time

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	done      chan struct{}
	stocks    []string
	cryptos   []string
	lastCheck map[Category]time.Time
	ticks     int64
	failures  int64
}

func NewScheduler(cfg Config, deps Deps, logger *logrus.Entry) *Scheduler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if deps.Aggregator == nil {
		deps.Aggregator = sentiment.NewAggregator()
	}
	s := &Scheduler{
		cfg:       cfg,
		deps:      deps,
		clock:     realClock{},
		logger:    logger.WithField("component", "monitor"),
		after:     time.After,
		stocks:    append([]string(nil), cfg.Stocks...),
		cryptos:   append([]string(nil), cfg.Cryptos...),
		lastCheck: map[Category]time.Time{},
	}
	s.newTicks = func() (<-chan time.Time, func()) {
		t := time.NewTicker(cfg.TickPeriod)
		return t.C, t.Stop
	}
	return s
}

// WithClock swaps the time source.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// WithTicks makes the loop tick whenever ch yields, instead of on a timer.
func (s *Scheduler) WithTicks(ch <-chan time.Time) *Scheduler {
	s.newTicks = func() (<-chan time.Time, func()) { return ch, func() {} }
	return s
}

// WithAfter replaces the timer used for error back-off.
func (s *Scheduler) WithAfter(after func(time.Duration) <-chan time.Time) *Scheduler {
	s.after = after
	return s
}

// Start launches the loop. Calling it while running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info("monitor is already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	ticks, stopTicks := s.newTicks()
	go s.loop(s.stopCh, s.done, ticks, stopTicks)
	s.logger.Info("monitor started")
}

// Stop signals the loop and blocks until it has exited.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	done := s.done
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	if s.done == done {
		s.running = false
	}
	s.mu.Unlock()
	s.logger.Info("monitor stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}, ticks <-chan time.Time, stopTicks func()) {
	defer close(done)
	defer stopTicks()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.ErrorBackoff
	bo.MaxInterval = s.cfg.MaxErrorBackoff
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		if err := s.tick(stop); err != nil {
			wait := bo.NextBackOff()
			s.logger.WithError(err).WithField("backoff", wait).Error("monitor tick failed")
			select {
			case <-stop:
				return
			case <-s.after(wait):
			}
		} else {
			bo.Reset()
		}

		select {
		case <-stop:
			return
		case <-ticks:
		}
	}
}

// tick runs one sweep. Panics outside the per-asset checks become errors.
func (s *Scheduler) tick(stop <-chan struct{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()

	select {
	case <-stop:
		return nil
	default:
	}

	if s.deps.Detector == nil || s.deps.Alerts == nil {
		return fmt.Errorf("monitor is missing its detector or alert generator")
	}

	start := s.clock.Now()
	s.mu.Lock()
	s.ticks++
	due := make([]Category, 0, len(categories))
	for _, c := range categories {
		last, ok := s.lastCheck[c]
		if !ok || start.Sub(last) >= s.interval(c) {
			due = append(due, c)
		}
	}
	s.mu.Unlock()

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordTick()
	}

	ctx := context.Background()
	for _, c := range due {
		s.runCategory(ctx, c)
		s.mu.Lock()
		s.lastCheck[c] = start
		s.mu.Unlock()
	}
	return nil
}

func (s *Scheduler) interval(c Category) time.Duration {
	switch c {
	case CategoryStocks:
		return s.cfg.StockInterval
	case CategoryCryptos:
		return s.cfg.CryptoInterval
	case CategorySentiment:
		return s.cfg.SentimentInterval
	}
	return 0
}

func (s *Scheduler) runCategory(ctx context.Context, c Category) {
	started := s.clock.Now()
	s.mu.Lock()
	stocks := append([]string(nil), s.stocks...)
	cryptos := append([]string(nil), s.cryptos...)
	s.mu.Unlock()

	var assets []string
	switch c {
	case CategoryStocks:
		assets = stocks
	case CategoryCryptos:
		assets = cryptos
	case CategorySentiment:
		assets = append(stocks, cryptos...)
	}

	s.logger.WithFields(logrus.Fields{"category": c, "assets": len(assets)}).Debug("checking category")

	for _, asset := range assets {
		if err := s.checkAssetSafely(ctx, c, asset); err != nil {
			s.mu.Lock()
			s.failures++
			s.mu.Unlock()
			if s.deps.Metrics != nil {
				s.deps.Metrics.RecordCheckFailure(string(c))
			}
			s.capture(ctx, string(c), "checkAsset", err, map[string]interface{}{"asset": asset})
		}
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordLatency("check_"+string(c), s.clock.Now().Sub(started).Seconds())
	}
}

// checkAssetSafely isolates one asset so a failure or panic never reaches the others.
func (s *Scheduler) checkAssetSafely(ctx context.Context, c Category, asset string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check %s panic: %v", asset, r)
		}
	}()

	switch c {
	case CategoryStocks:
		return s.checkMarket(ctx, model.AssetKindStock, s.deps.Stocks, asset)
	case CategoryCryptos:
		return s.checkMarket(ctx, model.AssetKindCrypto, s.deps.Cryptos, asset)
	case CategorySentiment:
		return s.checkSentiment(ctx, asset)
	}
	return fmt.Errorf("unknown category %q", c)
}

// AddAsset adds a stock or crypto to the monitored set. kind is "stock" or "crypto".
func (s *Scheduler) AddAsset(kind model.AssetKind, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("asset name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listFor(kind)
	if err != nil {
		return err
	}
	for _, a := range *list {
		if a == name {
			return nil
		}
	}
	*list = append(*list, name)
	s.logger.WithFields(logrus.Fields{"kind": kind, "asset": name}).Info("asset added to monitoring")
	return nil
}

// RemoveAsset removes an asset. Removing an unknown asset is a no-op.
func (s *Scheduler) RemoveAsset(kind model.AssetKind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listFor(kind)
	if err != nil {
		return err
	}
	for i, a := range *list {
		if a == name {
			*list = append((*list)[:i], (*list)[i+1:]...)
			s.logger.WithFields(logrus.Fields{"kind": kind, "asset": name}).Info("asset removed from monitoring")
			return nil
		}
	}
	return nil
}

// listFor must be called with s.mu held.
func (s *Scheduler) listFor(kind model.AssetKind) (*[]string, error) {
	switch kind {
	case model.AssetKindStock:
		return &s.stocks, nil
	case model.AssetKindCrypto:
		return &s.cryptos, nil
	}
	return nil, fmt.Errorf("unknown asset kind %q", kind)
}

type Status struct {
	Running          bool                       `json:"running"`
	MonitoredStocks  []string                   `json:"monitored_stocks"`
	MonitoredCryptos []string                   `json:"monitored_cryptos"`
	LastChecks       map[Category]*time.Time    `json:"last_checks"`
	Intervals        map[Category]time.Duration `json:"-"`
	IntervalSeconds  map[Category]float64       `json:"intervals"`
	Ticks            int64                      `json:"ticks"`
	Failures         int64                      `json:"failures"`
	AutoTrade        bool                       `json:"auto_trade"`
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:          s.running,
		MonitoredStocks:  append([]string{}, s.stocks...),
		MonitoredCryptos: append([]string{}, s.cryptos...),
		LastChecks:       map[Category]*time.Time{},
		Intervals:        map[Category]time.Duration{},
		IntervalSeconds:  map[Category]float64{},
		Ticks:            s.ticks,
		Failures:         s.failures,
		AutoTrade:        s.cfg.AutoTrade,
	}
	for _, c := range categories {
		if t, ok := s.lastCheck[c]; ok {
			t := t
			st.LastChecks[c] = &t
		} else {
			st.LastChecks[c] = nil
		}
		st.Intervals[c] = s.interval(c)
		st.IntervalSeconds[c] = s.interval(c).Seconds()
	}
	return st
}

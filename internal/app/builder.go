package app

import (
	"fmt"
	"time"

	"mako/internal/config"
	"mako/internal/gateway/binance"
	"mako/internal/gateway/exchange"
	"mako/internal/gateway/notifier"
	"mako/internal/logger"
	"mako/internal/request"
	"mako/internal/store/journal"
	"mako/internal/store/signallog"
	"mako/internal/trader"
	statushttp "mako/internal/transport/http/status"
)

// Builder assembles the application. Constructor functions are fields so
// tests can swap in fakes without touching the wiring order.
type Builder struct {
	cfg     *config.Config
	cfgPath string

	pairsFn     func(string) ([]config.Pair, error)
	exchangeFn  func(*config.Config, *request.Client) (exchange.Exchange, error)
	notifierFn  func(*config.Config, *request.Client) notifier.TextNotifier
	journalFn   func(*config.Config) (*journal.Store, error)
	signalLogFn func(*config.Config) (*signallog.Store, error)
}

type BuilderOption func(*Builder)

func NewBuilder(cfg *config.Config, cfgPath string, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:         cfg,
		cfgPath:     cfgPath,
		pairsFn:     config.LoadPairs,
		exchangeFn:  buildExchange,
		notifierFn:  buildNotifier,
		journalFn:   buildJournal,
		signalLogFn: buildSignalLog,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func WithExchange(fn func(*config.Config, *request.Client) (exchange.Exchange, error)) BuilderOption {
	return func(b *Builder) { b.exchangeFn = fn }
}

func WithNotifier(fn func(*config.Config, *request.Client) notifier.TextNotifier) BuilderOption {
	return func(b *Builder) { b.notifierFn = fn }
}

func WithPairs(fn func(string) ([]config.Pair, error)) BuilderOption {
	return func(b *Builder) { b.pairsFn = fn }
}

func (b *Builder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	pairs, err := b.pairsFn(cfg.Trading.PairsFile)
	if err != nil {
		return nil, fmt.Errorf("loading pairs: %w", err)
	}

	req := request.New(request.Config{
		Intervals: mergedEndpointIntervals(),
	}, request.WithRetryable(binance.Retryable))

	exch, err := b.exchangeFn(cfg, req)
	if err != nil {
		return nil, fmt.Errorf("building exchange gateway: %w", err)
	}
	notify := b.notifierFn(cfg, req)

	journalStore, err := b.journalFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening trade journal: %w", err)
	}
	signalStore, err := b.signalLogFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening signal log: %w", err)
	}

	manager := trader.NewManager(
		trader.Config{
			SnapshotPath:    cfg.State.SnapshotPath,
			HistoryLimit:    cfg.State.HistoryLimit,
			InitialBalances: cfg.Trading.InitialBalances,
		},
		trader.Deps{
			Orders:  exch,
			Source:  exch,
			Account: exch,
			Notify:  notify,
			Journal: journalOrNil(journalStore),
		},
	)

	symbols := make([]string, 0, len(pairs))
	for _, p := range pairs {
		symbols = append(symbols, p.Symbol)
	}
	var statusSrv *statushttp.Server
	if cfg.App.HTTPAddr == "" {
		logger.Infof("status http server disabled (empty http_addr)")
	} else {
		statusSrv, err = statushttp.NewServer(statushttp.ServerConfig{
			Addr:    cfg.App.HTTPAddr,
			Manager: manager,
			Signals: signalStore,
			Trades:  journalStore,
			Symbols: symbols,
		})
		if err != nil {
			return nil, fmt.Errorf("building status server: %w", err)
		}
	}

	app := &App{
		cfg:      cfg,
		cfgPath:  b.cfgPath,
		pairs:    pairs,
		exch:     exch,
		notify:   notify,
		manager:  manager,
		journal:  journalStore,
		signals:  signalStore,
		http:     statusSrv,
		tunables: tunablesFrom(cfg),
	}
	return app, nil
}

func buildExchange(cfg *config.Config, req *request.Client) (exchange.Exchange, error) {
	return binance.New(binance.Config{
		RESTBaseURL: cfg.Exchange.RESTBaseURL,
		APIKey:      cfg.Exchange.APIKey,
		SecretKey:   cfg.Exchange.SecretKey,
		HTTPTimeout: time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
	}, req)
}

func buildNotifier(cfg *config.Config, req *request.Client) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		logger.Infof("telegram notifications disabled")
		return notifier.Noop{}
	}
	return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, req)
}

func buildJournal(cfg *config.Config) (*journal.Store, error) {
	if cfg.State.JournalPath == "" {
		return nil, nil
	}
	return journal.NewStore(cfg.State.JournalPath)
}

func buildSignalLog(cfg *config.Config) (*signallog.Store, error) {
	if cfg.State.SignalLogPath == "" {
		return nil, nil
	}
	return signallog.NewStore(cfg.State.SignalLogPath, cfg.State.SignalLogRetain)
}

// journalOrNil keeps a typed-nil *journal.Store out of the TradeJournal
// interface slot.
func journalOrNil(s *journal.Store) trader.TradeJournal {
	if s == nil {
		return nil
	}
	return s
}

func mergedEndpointIntervals() map[string]time.Duration {
	intervals := binance.EndpointIntervals()
	intervals[notifier.EndpointSend] = time.Second
	return intervals
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"padipay/core/events"
	"padipay/core/genesis"
	"padipay/core/state"
	"padipay/core/types"
	"padipay/native/bank"
	nativecommon "padipay/native/common"
	"padipay/native/escrow"
	"padipay/native/payments"
	"padipay/native/registry"
	"padipay/native/wallet"
	"padipay/observability"
	padiotel "padipay/observability/otel"
	"padipay/storage"
	"padipay/storage/trie"
)

var headKey = []byte("padipay/head")

// ErrChainIDMismatch is returned when the store was created for another chain.
var ErrChainIDMismatch = errors.New("ledger: chain id does not match stored head")

// EventSink receives the rendered events of every committed call.
type EventSink interface {
	Append(height uint64, evts []*types.Event) error
}

// Options configures a Ledger. Zero values fall back to working defaults.
type Options struct {
	ChainID     uint64
	Genesis     *genesis.GenesisSpec
	Emitter     events.Emitter
	Sinks       []EventSink
	Logger      *slog.Logger
	Metrics     *observability.LedgerMetrics
	Tracer      trace.Tracer
	Now         func() time.Time
	Sponsor     wallet.Sponsor
	SenderQuota nativecommon.Quota
}

// Status summarises the committed head.
type Status struct {
	ChainID   uint64      `json:"chainId"`
	Height    uint64      `json:"height"`
	StateRoot common.Hash `json:"stateRoot"`
}

type head struct {
	Root    common.Hash `json:"root"`
	Height  uint64      `json:"height"`
	ChainID uint64      `json:"chainId"`
}

// Ledger is the single-writer executor. Every mutating operation runs as one
// call under the ledger mutex: it either commits a new state root at the next
// height or leaves the previous root untouched.
type Ledger struct {
	mu sync.Mutex

	db      storage.Database
	trie    *trie.Trie
	state   *state.Manager
	height  uint64
	chainID uint64

	callTime uint64
	pending  []events.Event

	emitter events.Emitter
	sinks   []EventSink
	logger  *slog.Logger
	metrics *observability.LedgerMetrics
	tracer  trace.Tracer
	now     func() time.Time

	bank     *bank.Engine
	registry *registry.Engine
	escrow   *escrow.Engine
	payments *payments.Engine
	wallet   *wallet.Engine
}

// Open loads the ledger head from db, applying the genesis spec when the
// store is empty.
func Open(db storage.Database, opts Options) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: database must not be nil")
	}
	l := &Ledger{
		db:      db,
		chainID: opts.ChainID,
		emitter: opts.Emitter,
		sinks:   opts.Sinks,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		now:     opts.Now,
	}
	if l.emitter == nil {
		l.emitter = events.NoopEmitter{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.tracer == nil {
		l.tracer = padiotel.Tracer()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if opts.Genesis != nil {
		l.chainID = opts.Genesis.ChainIDValue(l.chainID)
	}

	stored, err := l.loadHead()
	if err != nil {
		return nil, err
	}
	var root []byte
	if stored != nil {
		if l.chainID != 0 && stored.ChainID != l.chainID {
			return nil, fmt.Errorf("%w: stored %d, configured %d", ErrChainIDMismatch, stored.ChainID, l.chainID)
		}
		l.chainID = stored.ChainID
		l.height = stored.Height
		root = stored.Root.Bytes()
	}
	tr, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("ledger: open state trie: %w", err)
	}
	l.trie = tr
	l.state = state.NewManager(tr)
	l.wire(opts)

	if stored == nil && opts.Genesis != nil {
		if err := l.applyGenesis(opts.Genesis); err != nil {
			return nil, err
		}
	}
	l.metrics.SetHeight(l.height)
	return l, nil
}

func (l *Ledger) wire(opts Options) {
	buffer := bufferEmitter{ledger: l}
	clock := func() uint64 { return l.callTime }

	l.bank = bank.NewEngine()
	l.bank.SetState(l.state)
	l.bank.SetEmitter(buffer)
	l.bank.SetNowFunc(clock)

	l.registry = registry.NewEngine()
	l.registry.SetState(l.state)
	l.registry.SetEmitter(buffer)
	l.registry.SetNowFunc(clock)

	l.escrow = escrow.NewEngine()
	l.escrow.SetState(l.state)
	l.escrow.SetLedger(l.bank)
	l.escrow.SetDirectory(l.registry)
	l.escrow.SetEmitter(buffer)
	l.escrow.SetNowFunc(clock)

	l.payments = payments.NewEngine()
	l.payments.SetState(l.state)
	l.payments.SetLedger(l.bank)
	l.payments.SetEscrow(l.escrow)
	l.payments.SetDirectory(l.registry)
	l.payments.SetQuota(opts.SenderQuota)
	l.payments.SetEmitter(buffer)
	l.payments.SetNowFunc(clock)
	l.escrow.SetDepositor(l.payments.ModuleAddress())

	l.wallet = wallet.NewEngine(l.chainID)
	l.wallet.SetState(l.state)
	l.wallet.SetDispatcher(dispatcher{ledger: l})
	l.wallet.SetSponsor(opts.Sponsor)
	l.wallet.SetEmitter(buffer)
	l.wallet.SetNowFunc(clock)
}

func (l *Ledger) applyGenesis(spec *genesis.GenesisSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("ledger: genesis: %w", err)
	}
	genesisTime := spec.GenesisTimestamp()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.execute(context.Background(), "genesis", func() error {
		l.callTime = uint64(genesisTime.Unix())
		return genesis.Apply(spec, l.state)
	})
}

func (l *Ledger) loadHead() (*head, error) {
	raw, err := l.db.Get(headKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read head: %w", err)
	}
	var h head
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("ledger: decode head: %w", err)
	}
	return &h, nil
}

func (l *Ledger) storeHead(h head) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return l.db.Put(headKey, raw)
}

// Execute runs fn as one ledger call. On success the trie is committed at the
// next height and the buffered events are flushed; on failure the trie is
// reset to the previous root and the buffered events are dropped.
func (l *Ledger) Execute(ctx context.Context, name string, fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.execute(ctx, name, fn)
}

func (l *Ledger) execute(ctx context.Context, name string, fn func() error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := l.tracer.Start(ctx, "ledger."+name, trace.WithAttributes(attribute.String("ledger.call", name)))
	started := time.Now()
	defer func() {
		l.metrics.ObserveCall(name, time.Since(started), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	parent := l.trie.Root()
	l.callTime = uint64(l.now().Unix())
	l.pending = l.pending[:0]

	if callErr := fn(); callErr != nil {
		return l.rollback(name, parent, callErr)
	}

	next := l.height + 1
	root, commitErr := l.trie.Commit(parent, next)
	if commitErr != nil {
		return l.rollback(name, parent, fmt.Errorf("ledger: commit: %w", commitErr))
	}
	if headErr := l.storeHead(head{Root: root, Height: next, ChainID: l.chainID}); headErr != nil {
		return l.rollback(name, parent, fmt.Errorf("ledger: store head: %w", headErr))
	}
	l.height = next
	span.SetAttributes(attribute.Int64("ledger.height", int64(next)))
	l.metrics.SetHeight(next)
	l.flush(next)
	l.logger.Debug("ledger call committed",
		slog.String("call", name),
		slog.Uint64("height", next),
		slog.String("root", root.Hex()))
	return nil
}

func (l *Ledger) rollback(name string, parent common.Hash, cause error) error {
	l.pending = l.pending[:0]
	if resetErr := l.trie.Reset(parent); resetErr != nil {
		l.logger.Error("ledger rollback failed",
			slog.String("call", name),
			slog.Any("error", resetErr))
		return errors.Join(cause, fmt.Errorf("ledger: rollback: %w", resetErr))
	}
	l.logger.Warn("ledger call rolled back",
		slog.String("call", name),
		slog.String("reason", cause.Error()))
	return cause
}

func (l *Ledger) flush(height uint64) {
	if len(l.pending) == 0 {
		return
	}
	rendered := make([]*types.Event, 0, len(l.pending))
	for _, evt := range l.pending {
		l.emitter.Emit(evt)
		observability.Events().RecordCommitted(evt.EventType())
		wire := events.Render(evt)
		if wire == nil {
			continue
		}
		rendered = append(rendered, wire.WithHeight(height))
	}
	l.pending = l.pending[:0]
	for _, sink := range l.sinks {
		if err := sink.Append(height, rendered); err != nil {
			l.logger.Error("event sink append failed",
				slog.Uint64("height", height),
				slog.Any("error", err))
		}
	}
}

// view runs a read-only query under the ledger mutex.
func (l *Ledger) view(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}

// bufferEmitter holds engine events until the enclosing call commits.
type bufferEmitter struct {
	ledger *Ledger
}

func (b bufferEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	b.ledger.pending = append(b.ledger.pending, evt)
}

// Status returns the committed head.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{ChainID: l.chainID, Height: l.height, StateRoot: l.trie.Root()}
}

// StateRoot returns the last committed state root.
func (l *Ledger) StateRoot() common.Hash { return l.Status().StateRoot }

// Height returns the height of the last committed call.
func (l *Ledger) Height() uint64 { return l.Status().Height }

// ChainID returns the chain id mixed into wallet operation hashes.
func (l *Ledger) ChainID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chainID
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/converter"
	"github.com/vocdoni/eerc-node/ledger"
	"github.com/vocdoni/eerc-node/log"
)

var reserveInconsistent = metrics.NewCounter("eerc_reserve_inconsistent_total")

// ReserveStatus is the result of the last reserve audit. Unconfirmed counts
// the records whose token movement still awaits reconciliation.
type ReserveStatus struct {
	Reserve     *uint256.Int
	Custody     *uint256.Int
	Consistent  bool
	Unconfirmed int
	CheckedAt   time.Time
}

// ReserveMonitor periodically audits the custody reserve of a converter
// ledger against the token balance actually held by the custodian. The
// custody may hold more than the reserve (direct transfers to the
// custodian), never less.
type ReserveMonitor struct {
	ledger   *ledger.Ledger
	custody  converter.Custody
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	status *ReserveStatus
	// shortfalls counts consecutive audits with custody below reserve
	shortfalls int
}

// NewReserveMonitor creates a monitor for the given converter ledger.
func NewReserveMonitor(l *ledger.Ledger, custody converter.Custody, interval time.Duration) (*ReserveMonitor, error) {
	if l == nil || custody == nil {
		return nil, fmt.Errorf("nil ledger or custody")
	}
	if !l.Info().Converter {
		return nil, ledger.ErrNotConverter
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval %s", interval)
	}
	return &ReserveMonitor{
		ledger:   l,
		custody:  custody,
		interval: interval,
	}, nil
}

// Start begins the periodic audit. It returns an error if the service is
// already running.
func (rm *ReserveMonitor) Start(ctx context.Context) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.cancel != nil {
		return fmt.Errorf("service already running")
	}
	ctx, rm.cancel = context.WithCancel(ctx)
	rm.done = make(chan struct{})
	go rm.monitor(ctx, rm.done)
	return nil
}

// Stop halts the audit and waits for the running check to finish.
func (rm *ReserveMonitor) Stop() {
	rm.mu.Lock()
	cancel, done := rm.cancel, rm.done
	rm.cancel, rm.done = nil, nil
	rm.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Status returns the result of the last audit, nil before the first one.
func (rm *ReserveMonitor) Status() *ReserveStatus {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.status
}

func (rm *ReserveMonitor) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()
	for {
		if _, err := rm.Check(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("reserve audit failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check runs one audit. A withdrawal pays out before its commit, so a single
// shortfall may be transient: it is only reported as an inconsistency when
// the next audit still sees it.
func (rm *ReserveMonitor) Check(ctx context.Context) (*ReserveStatus, error) {
	custody, err := rm.custody.CustodyBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("custody balance: %w", err)
	}
	reserve, err := rm.ledger.Reserve()
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}
	pending, err := rm.ledger.Unconfirmed()
	if err != nil {
		return nil, fmt.Errorf("unconfirmed records: %w", err)
	}
	status := &ReserveStatus{
		Reserve:     reserve,
		Custody:     custody,
		Consistent:  !custody.Lt(reserve),
		Unconfirmed: len(pending),
		CheckedAt:   time.Now(),
	}
	if len(pending) > 0 {
		log.Warnw("token movements awaiting reconciliation", "count", len(pending),
			"first", pending[0].Index)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if status.Consistent {
		rm.shortfalls = 0
	} else {
		rm.shortfalls++
		if rm.shortfalls == 1 {
			status.Consistent = true
			log.Debugw("custody below reserve, rechecking", "reserve", reserve.Dec(), "custody", custody.Dec())
		} else {
			reserveInconsistent.Inc()
			log.Errorw(converter.ErrInsufficientReserve, "custody below reserve",
				"reserve", reserve.Dec(), "custody", custody.Dec())
		}
	}
	rm.status = status
	return status, nil
}

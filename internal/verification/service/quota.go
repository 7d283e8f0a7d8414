package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
)

// QuotaLedger tracks how much of each delegation grant has been consumed.
// Entries are keyed by grant ID and created on first use.
type QuotaLedger struct {
	entries sync.Map
}

type quotaEntry struct {
	mu      sync.Mutex
	uses    uint64
	limiter *rate.Limiter
}

// NewQuotaLedger creates an empty ledger.
func NewQuotaLedger() *QuotaLedger {
	return &QuotaLedger{}
}

// Consume records one use of the grant at now. It fails with
// ErrDelegationQuotaExceeded when MaxUses has been reached or the
// requests-per-kilosecond budget is exhausted. Zero limits are unlimited.
func (q *QuotaLedger) Consume(grantID string, scope delegationDomain.Scope, now time.Time) error {
	entry := q.entry(grantID, scope)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if scope.MaxUses > 0 && entry.uses >= scope.MaxUses {
		return delegationDomain.ErrDelegationQuotaExceeded
	}
	if entry.limiter != nil && !entry.limiter.AllowN(now, 1) {
		return delegationDomain.ErrDelegationQuotaExceeded
	}
	entry.uses++
	return nil
}

// Uses returns how many times grantID has been consumed.
func (q *QuotaLedger) Uses(grantID string) uint64 {
	value, ok := q.entries.Load(grantID)
	if !ok {
		return 0
	}
	entry := value.(*quotaEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.uses
}

func (q *QuotaLedger) entry(grantID string, scope delegationDomain.Scope) *quotaEntry {
	if value, ok := q.entries.Load(grantID); ok {
		return value.(*quotaEntry)
	}

	entry := &quotaEntry{}
	if scope.RequestsPerKilosecond > 0 {
		perSecond := rate.Limit(float64(scope.RequestsPerKilosecond) / 1000)
		burst := max(1, int(scope.RequestsPerKilosecond/1000))
		entry.limiter = rate.NewLimiter(perSecond, burst)
	}
	value, _ := q.entries.LoadOrStore(grantID, entry)
	return value.(*quotaEntry)
}

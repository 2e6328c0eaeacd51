// Package journal keeps the append-only history of balance mutations and
// serves the per-account outgoing view.
package journal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"account-ledger/internal/domain"
)

// Journal stores every TransferRecord in append order, indexed by the
// debited account. Entries are never mutated or removed.
type Journal struct {
	mu      sync.RWMutex
	records []domain.TransferRecord
	byFrom  map[uuid.UUID][]domain.TransferRecord
	// lastTS keeps per-account timestamps monotonic even when the clock
	// hands out the same millisecond twice in a row.
	lastTS  map[uuid.UUID]int64
	sink    chan<- domain.TransferRecord
	dropped atomic.Uint64
}

func New() *Journal {
	return &Journal{
		byFrom: make(map[uuid.UUID][]domain.TransferRecord),
		lastTS: make(map[uuid.UUID]int64),
	}
}

// Subscribe returns a buffered channel fed with every record appended from
// now on. Sends never block the appender; records that do not fit are
// dropped and counted.
func (j *Journal) Subscribe(buffer int) <-chan domain.TransferRecord {
	ch := make(chan domain.TransferRecord, buffer)
	j.mu.Lock()
	j.sink = ch
	j.mu.Unlock()
	return ch
}

// Append stamps the record and stores it. The caller holds the debited
// account's lock, so append order per account is that account's operation
// order.
func (j *Journal) Append(rec *domain.TransferRecord) {
	j.mu.Lock()

	ts := time.Now().UnixMilli()
	if last := j.lastTS[rec.FromAccountID]; ts < last {
		ts = last
	}
	rec.TimestampMillis = ts
	j.lastTS[rec.FromAccountID] = ts

	j.store(*rec)
	if j.sink != nil {
		// Non-blocking send under the lock: the buffered channel either
		// takes the record immediately or it is dropped and counted.
		select {
		case j.sink <- *rec:
		default:
			j.dropped.Add(1)
		}
	}
	j.mu.Unlock()
}

// Unsubscribe closes the subscriber channel so a draining consumer can
// finish. Appends after this simply stop feeding a sink.
func (j *Journal) Unsubscribe() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sink != nil {
		close(j.sink)
		j.sink = nil
	}
}

// Restore re-inserts a record with its original timestamp, used when
// replaying the write-ahead log at startup. Restored records are not fed to
// the subscriber.
func (j *Journal) Restore(rec domain.TransferRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if rec.TimestampMillis > j.lastTS[rec.FromAccountID] {
		j.lastTS[rec.FromAccountID] = rec.TimestampMillis
	}
	j.store(rec)
}

func (j *Journal) store(rec domain.TransferRecord) {
	j.records = append(j.records, rec)
	j.byFrom[rec.FromAccountID] = append(j.byFrom[rec.FromAccountID], rec)
}

// OutgoingFor returns copies of the records debiting the account, oldest
// first. Safe to call repeatedly; each call sees the latest state.
func (j *Journal) OutgoingFor(accountID uuid.UUID) []domain.TransferRecord {
	j.mu.RLock()
	defer j.mu.RUnlock()
	recs := j.byFrom[accountID]
	out := make([]domain.TransferRecord, len(recs))
	copy(out, recs)
	return out
}

// Len reports the total number of journaled records.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.records)
}

// Dropped reports how many records the subscriber was too slow to receive.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

var _ domain.Journal = (*Journal)(nil)

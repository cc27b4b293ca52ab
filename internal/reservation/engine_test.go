package reservation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-reservation-api/internal/catalog"
)

// fakeLedger is an in-memory Ledger. Transactions are serialized by a mutex
// and roll back by restoring a snapshot, which gives the engine the same
// all-or-nothing semantics the SQL implementation provides.
type fakeLedger struct {
	mu           sync.Mutex
	stock        map[catalog.StockScope]*StockRow
	reservations map[string]*Reservation
	idempotency  map[string]Action
	audit        []AuditEntry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		stock:        make(map[catalog.StockScope]*StockRow),
		reservations: make(map[string]*Reservation),
		idempotency:  make(map[string]Action),
	}
}

func (f *fakeLedger) addStock(userID, productID, variantID, size string, qty int) {
	scope := catalog.StockScope{ProductID: productID, VariantID: variantID, Size: size}
	f.stock[scope] = &StockRow{UserID: userID, Scope: scope, Quantity: qty, IsAvailable: true}
}

type ledgerSnapshot struct {
	stock        map[catalog.StockScope]*StockRow
	reservations map[string]*Reservation
	idempotency  map[string]Action
	auditLen     int
}

func (f *fakeLedger) snapshot() ledgerSnapshot {
	s := ledgerSnapshot{
		stock:        make(map[catalog.StockScope]*StockRow, len(f.stock)),
		reservations: make(map[string]*Reservation, len(f.reservations)),
		idempotency:  make(map[string]Action, len(f.idempotency)),
		auditLen:     len(f.audit),
	}
	for k, v := range f.stock {
		row := *v
		s.stock[k] = &row
	}
	for k, v := range f.reservations {
		r := *v
		s.reservations[k] = &r
	}
	for k, v := range f.idempotency {
		s.idempotency[k] = v
	}
	return s
}

func (f *fakeLedger) restore(s ledgerSnapshot) {
	f.stock = s.stock
	f.reservations = s.reservations
	f.idempotency = s.idempotency
	f.audit = f.audit[:s.auditLen]
}

func (f *fakeLedger) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(&fakeTx{l: f}); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

type fakeTx struct {
	l *fakeLedger
}

func (t *fakeTx) LockStock(ctx context.Context, userID string, scope catalog.StockScope) (*StockRow, error) {
	row, ok := t.l.stock[scope]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (t *fakeTx) GetStock(ctx context.Context, userID string, scope catalog.StockScope) (*StockRow, error) {
	return t.LockStock(ctx, userID, scope)
}

func (t *fakeTx) ActiveReservedQuantity(ctx context.Context, userID string, scope catalog.StockScope, now time.Time) (int, error) {
	total := 0
	for _, r := range t.l.reservations {
		if r.UserID == userID && r.Status == StatusReserved && r.Scope() == scope && now.Before(r.ExpiresAt) {
			total += r.Quantity
		}
	}
	return total, nil
}

func (t *fakeTx) InsertReservation(ctx context.Context, r *Reservation) error {
	for _, existing := range t.l.reservations {
		if existing.Status == StatusReserved &&
			existing.UserID == r.UserID &&
			existing.SessionID == r.SessionID &&
			existing.ProductID == r.ProductID &&
			existing.VariantID == r.VariantID &&
			existing.Size == r.Size {
			return ErrDuplicateActiveHold
		}
	}
	copied := *r
	t.l.reservations[r.ID] = &copied
	return nil
}

func (t *fakeTx) ReservationForUpdate(ctx context.Context, id string) (*Reservation, error) {
	r, ok := t.l.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (t *fakeTx) UpdateReservation(ctx context.Context, r *Reservation) error {
	copied := *r
	t.l.reservations[r.ID] = &copied
	return nil
}

func (t *fakeTx) DeductStock(ctx context.Context, userID string, scope catalog.StockScope, qty int) (bool, error) {
	row, ok := t.l.stock[scope]
	if !ok || row.Quantity < qty {
		return false, nil
	}
	row.Quantity -= qty
	return true, nil
}

func (t *fakeTx) IdempotencyExists(ctx context.Context, key string, action Action) (bool, error) {
	recorded, ok := t.l.idempotency[key]
	return ok && recorded == action, nil
}

func (t *fakeTx) RecordIdempotency(ctx context.Context, ev *IdempotencyEvent) (bool, error) {
	if _, ok := t.l.idempotency[ev.IdempotencyKey]; ok {
		return false, nil
	}
	t.l.idempotency[ev.IdempotencyKey] = ev.Action
	return true, nil
}

func (t *fakeTx) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	t.l.audit = append(t.l.audit, *entry)
	return nil
}

func (t *fakeTx) ExpireDueReservations(ctx context.Context, now time.Time, reason string) (int64, error) {
	var n int64
	for _, r := range t.l.reservations {
		if r.Status == StatusReserved && !now.Before(r.ExpiresAt) {
			r.Status = StatusExpired
			r.ReleaseReason = reason
			released := now
			r.ReleasedAt = &released
			n++
		}
	}
	return n, nil
}

func (f *fakeLedger) stockQuantity(scope catalog.StockScope) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.stock[scope]; ok {
		return row.Quantity
	}
	return 0
}

func (f *fakeLedger) reservation(id string) *Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reservations[id]; ok {
		copied := *r
		return &copied
	}
	return nil
}

func (f *fakeLedger) auditActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]string, 0, len(f.audit))
	for _, e := range f.audit {
		actions = append(actions, e.Action)
	}
	return actions
}

func newTestEngine(ledger *fakeLedger) *Engine {
	return NewEngine(ledger, DefaultTTLTable(), nil, nil)
}

func item(productID string, qty int) StockItem {
	return StockItem{ProductID: productID, Quantity: qty}
}

func TestValidateStockReportsShortfall(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 3)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateStock(context.Background(), "merchant-1", []StockItem{item("prod-1", 5)})
	require.NoError(t, err)
	assert.False(t, result.Available)
	require.Len(t, result.Short, 1)
	assert.Equal(t, "prod-1", result.Short[0].ProductID)
	assert.Equal(t, 5, result.Short[0].Requested)
	assert.Equal(t, 3, result.Short[0].Available)

	result, err = engine.ValidateStock(context.Background(), "merchant-1", []StockItem{item("prod-1", 3)})
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Empty(t, result.Short)
}

func TestValidateStockRejectsBadInput(t *testing.T) {
	engine := newTestEngine(newFakeLedger())

	_, err := engine.ValidateStock(context.Background(), "merchant-1", nil)
	var resErr *ReservationError
	require.ErrorAs(t, err, &resErr)

	_, err = engine.ValidateStock(context.Background(), "merchant-1", []StockItem{item("prod-1", 0)})
	require.ErrorAs(t, err, &resErr)
}

func TestReserveCreatesHoldsWithoutDeducting(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 4)}, "whatsapp", "sess-1")
	require.NoError(t, err)
	require.True(t, result.Reserved)
	require.Len(t, result.ReservationIDs, 1)
	assert.Equal(t, ChannelWhatsApp, result.Channel)

	// Reserving holds quantity but does not mutate stock.
	scope := catalog.StockScope{ProductID: "prod-1"}
	assert.Equal(t, 10, ledger.stockQuantity(scope))

	r := ledger.reservation(result.ReservationIDs[0])
	require.NotNil(t, r)
	assert.Equal(t, StatusReserved, r.Status)
	assert.Equal(t, 4, r.Quantity)
	assert.WithinDuration(t, time.Now().UTC().Add(DefaultWhatsAppTTL), r.ExpiresAt, 5*time.Second)

	assert.Equal(t, []string{AuditActionCreated}, ledger.auditActions())
}

func TestReserveAccountsForActiveHolds(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	first, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 7)}, "website", "sess-1")
	require.NoError(t, err)
	require.True(t, first.Reserved)

	// 3 effective remain; a request for 4 from another session must be short.
	second, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 4)}, "website", "sess-2")
	require.NoError(t, err)
	assert.False(t, second.Reserved)
	require.Len(t, second.Short, 1)
	assert.Equal(t, 3, second.Short[0].Available)
}

func TestReserveBatchIsAllOrNothing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	ledger.addStock("merchant-1", "prod-2", "", "", 1)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 2), item("prod-2", 5)}, "website", "sess-1")
	require.NoError(t, err)
	assert.False(t, result.Reserved)
	require.Len(t, result.Short, 1)
	assert.Equal(t, "prod-2", result.Short[0].ProductID)

	// No hold may exist for the satisfiable line either.
	scope := catalog.StockScope{ProductID: "prod-1"}
	tx := &fakeTx{l: ledger}
	reserved, err := tx.ActiveReservedQuantity(context.Background(), "merchant-1", scope, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, reserved)
	assert.Empty(t, ledger.auditActions())
}

func TestReserveRejectsDuplicateActiveHold(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	_, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 2)}, "website", "sess-1")
	require.NoError(t, err)

	_, err = engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 2)}, "website", "sess-1")
	var dup *DuplicateReservationError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "prod-1", dup.ProductID)
	assert.Equal(t, "sess-1", dup.SessionID)
}

func TestScopeIsolationBetweenBaseAndVariant(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 5)
	ledger.addStock("merchant-1", "prod-1", "var-red", "", 2)
	engine := newTestEngine(ledger)

	// Variant stock is exhausted; base stock must not satisfy the request.
	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{{ProductID: "prod-1", VariantID: "var-red", Quantity: 3}}, "website", "sess-1")
	require.NoError(t, err)
	assert.False(t, result.Reserved)
	require.Len(t, result.Short, 1)
	assert.Equal(t, 2, result.Short[0].Available)

	// BaseOnly pins to base stock even with a variant id present.
	result, err = engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{{ProductID: "prod-1", VariantID: "var-red", Quantity: 3, BaseOnly: true}}, "website", "sess-1")
	require.NoError(t, err)
	assert.True(t, result.Reserved)

	r := ledger.reservation(result.ReservationIDs[0])
	require.NotNil(t, r)
	assert.Empty(t, r.VariantID)
}

// contendedLedger simulates a peer transaction holding the row lock for one
// scope: LockStock reports ErrRowContended instead of waiting.
type contendedLedger struct {
	*fakeLedger
	contended catalog.StockScope
}

func (l *contendedLedger) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.snapshot()
	if err := fn(&contendedTx{fakeTx: fakeTx{l: l.fakeLedger}, contended: l.contended}); err != nil {
		l.restore(snap)
		return err
	}
	return nil
}

type contendedTx struct {
	fakeTx
	contended catalog.StockScope
}

func (t *contendedTx) LockStock(ctx context.Context, userID string, scope catalog.StockScope) (*StockRow, error) {
	if scope == t.contended {
		return nil, ErrRowContended
	}
	return t.fakeTx.LockStock(ctx, userID, scope)
}

func TestReserveContendedRowFailsFast(t *testing.T) {
	inner := newFakeLedger()
	inner.addStock("merchant-1", "prod-1", "", "", 5)
	inner.addStock("merchant-1", "prod-2", "", "", 5)
	ledger := &contendedLedger{fakeLedger: inner, contended: catalog.StockScope{ProductID: "prod-1"}}
	engine := NewEngine(ledger, DefaultTTLTable(), nil, nil)

	// A locked row is a structured shortfall with nothing available, never an
	// error and never a wait.
	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 1), item("prod-2", 1)}, "website", "sess-1")
	require.NoError(t, err)
	assert.False(t, result.Reserved)
	require.Len(t, result.Short, 1)
	assert.Equal(t, "prod-1", result.Short[0].ProductID)
	assert.Equal(t, 1, result.Short[0].Requested)
	assert.Zero(t, result.Short[0].Available)

	// The contended batch must leave no holds behind, including for the
	// uncontended line.
	tx := &fakeTx{l: inner}
	reserved, err := tx.ActiveReservedQuantity(context.Background(), "merchant-1",
		catalog.StockScope{ProductID: "prod-2"}, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, reserved)
	assert.Empty(t, inner.auditActions())
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 5)
	engine := newTestEngine(ledger)

	const attempts = 20
	results := make(chan *ReserveResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
				[]StockItem{item("prod-1", 1)}, "website", "sess-"+strings.Repeat("x", n+1))
			if err == nil {
				results <- result
			}
		}(i)
	}
	wg.Wait()
	close(results)

	reserved := 0
	for result := range results {
		if result.Reserved {
			reserved++
		}
	}
	assert.Equal(t, 5, reserved, "exactly the available quantity may be held")
}

func TestConfirmDeductsStockOnce(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 4)}, "website", "sess-1")
	require.NoError(t, err)
	require.True(t, result.Reserved)

	require.NoError(t, engine.ConfirmReservation(context.Background(), result.ReservationIDs, "order-1", "key-1"))

	scope := catalog.StockScope{ProductID: "prod-1"}
	assert.Equal(t, 6, ledger.stockQuantity(scope))

	r := ledger.reservation(result.ReservationIDs[0])
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Equal(t, "order-1", r.OrderID)
	require.NotNil(t, r.ConfirmedAt)

	// Replaying the same key must not deduct again.
	require.NoError(t, engine.ConfirmReservation(context.Background(), result.ReservationIDs, "order-1", "key-1"))
	assert.Equal(t, 6, ledger.stockQuantity(scope))
}

func TestConfirmRequiresIdempotencyKey(t *testing.T) {
	engine := newTestEngine(newFakeLedger())

	err := engine.ConfirmReservation(context.Background(), []string{"res-1"}, "order-1", "")
	var resErr *ReservationError
	require.ErrorAs(t, err, &resErr)
}

func TestConfirmUnknownReservation(t *testing.T) {
	engine := newTestEngine(newFakeLedger())

	err := engine.ConfirmReservation(context.Background(), []string{"missing"}, "order-1", "key-1")
	var resErr *ReservationError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "missing", resErr.ReservationID)
}

func TestConfirmExpiredReservationFails(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 2)}, "website", "sess-1")
	require.NoError(t, err)

	// Force the hold past its TTL.
	ledger.mu.Lock()
	held := ledger.reservations[result.ReservationIDs[0]]
	held.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	ledger.mu.Unlock()

	err = engine.ConfirmReservation(context.Background(), result.ReservationIDs, "order-1", "key-1")
	var expired *ReservationExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, result.ReservationIDs[0], expired.ReservationID)

	// Stock untouched, reservation not confirmed.
	assert.Equal(t, 10, ledger.stockQuantity(catalog.StockScope{ProductID: "prod-1"}))
	assert.Equal(t, StatusReserved, ledger.reservation(result.ReservationIDs[0]).Status)
}

func TestConfirmBatchRollsBackOnFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	ledger.addStock("merchant-1", "prod-2", "", "", 10)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 3), item("prod-2", 3)}, "website", "sess-1")
	require.NoError(t, err)

	// Sabotage the second line's stock after reserving.
	ledger.mu.Lock()
	ledger.stock[catalog.StockScope{ProductID: "prod-2"}].Quantity = 1
	ledger.mu.Unlock()

	err = engine.ConfirmReservation(context.Background(), result.ReservationIDs, "order-1", "key-1")
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	// The first line's deduction must have rolled back with the batch.
	assert.Equal(t, 10, ledger.stockQuantity(catalog.StockScope{ProductID: "prod-1"}))
	assert.Equal(t, StatusReserved, ledger.reservation(result.ReservationIDs[0]).Status)

	// A later retry with restored stock and a fresh key succeeds.
	ledger.mu.Lock()
	ledger.stock[catalog.StockScope{ProductID: "prod-2"}].Quantity = 5
	ledger.mu.Unlock()
	require.NoError(t, engine.ConfirmReservation(context.Background(), result.ReservationIDs, "order-1", "key-2"))
	assert.Equal(t, 7, ledger.stockQuantity(catalog.StockScope{ProductID: "prod-1"}))
	assert.Equal(t, 2, ledger.stockQuantity(catalog.StockScope{ProductID: "prod-2"}))
}

func TestReleaseReturnsHoldWithoutTouchingStock(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 4)}, "website", "sess-1")
	require.NoError(t, err)

	require.NoError(t, engine.ReleaseReservation(context.Background(), result.ReservationIDs, "user_cancelled", "rel-1"))

	assert.Equal(t, 10, ledger.stockQuantity(catalog.StockScope{ProductID: "prod-1"}))
	r := ledger.reservation(result.ReservationIDs[0])
	assert.Equal(t, StatusReleased, r.Status)
	assert.Equal(t, "user_cancelled", r.ReleaseReason)
	require.NotNil(t, r.ReleasedAt)

	// The quantity becomes reservable again for another session.
	again, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 10)}, "website", "sess-2")
	require.NoError(t, err)
	assert.True(t, again.Reserved)
}

func TestReleaseIsFailSoftAndIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 2)}, "website", "sess-1")
	require.NoError(t, err)

	// Unknown ids and repeated releases both succeed.
	require.NoError(t, engine.ReleaseReservation(context.Background(), []string{"missing"}, "cleanup", ""))
	require.NoError(t, engine.ReleaseReservation(context.Background(), result.ReservationIDs, "user_cancelled", "rel-1"))
	require.NoError(t, engine.ReleaseReservation(context.Background(), result.ReservationIDs, "user_cancelled", "rel-1"))
	require.NoError(t, engine.ReleaseReservation(context.Background(), result.ReservationIDs, "user_cancelled", ""))

	assert.Equal(t, StatusReleased, ledger.reservation(result.ReservationIDs[0]).Status)
}

func TestCleanupExpiredReclaimsOnlyDueHolds(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 10)
	engine := newTestEngine(ledger)

	fresh, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 2)}, "website", "sess-1")
	require.NoError(t, err)
	stale, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 2)}, "website", "sess-2")
	require.NoError(t, err)

	ledger.mu.Lock()
	ledger.reservations[stale.ReservationIDs[0]].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	ledger.mu.Unlock()

	count, err := engine.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, StatusExpired, ledger.reservation(stale.ReservationIDs[0]).Status)
	assert.Equal(t, ReleaseReasonTimeout, ledger.reservation(stale.ReservationIDs[0]).ReleaseReason)
	assert.Equal(t, StatusReserved, ledger.reservation(fresh.ReservationIDs[0]).Status)

	// A second sweep finds nothing.
	count, err = engine.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExpiredHoldsDoNotCountAgainstEffectiveStock(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addStock("merchant-1", "prod-1", "", "", 5)
	engine := newTestEngine(ledger)

	held, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 5)}, "website", "sess-1")
	require.NoError(t, err)
	require.True(t, held.Reserved)

	// Push the hold past its TTL without sweeping; effective stock must
	// already ignore it.
	ledger.mu.Lock()
	ledger.reservations[held.ReservationIDs[0]].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	ledger.mu.Unlock()

	result, err := engine.ValidateAndReserve(context.Background(), "merchant-1",
		[]StockItem{item("prod-1", 5)}, "website", "sess-2")
	require.NoError(t, err)
	assert.True(t, result.Reserved)
}

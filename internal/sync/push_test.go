package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	userA = "8c9f2b6e-0000-4000-8000-000000000aaa"
	userB = "8c9f2b6e-0000-4000-8000-000000000bbb"
)

func mutID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

func entID(n int) string {
	return fmt.Sprintf("11111111-0000-4000-8000-%012d", n)
}

func mut(mutationID, typ, entityID, data string, clientUpdatedAt time.Time) Mutation {
	m := Mutation{
		MutationID:      mutationID,
		EntityType:      "clients",
		Type:            typ,
		EntityID:        entityID,
		ClientUpdatedAt: clientUpdatedAt,
	}
	if data != "" {
		m.Data = json.RawMessage(data)
	}
	return m
}

func pushOne(t *testing.T, e *Engine, userID string, m Mutation) PushResult {
	t.Helper()
	results, err := e.Push(context.Background(), userID, "clients", []Mutation{m})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	return results[0]
}

func entityUpdatedAt(t *testing.T, payload json.RawMessage) time.Time {
	t.Helper()
	var doc struct {
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("bad entity payload: %v", err)
	}
	return doc.UpdatedAt
}

func entityField(t *testing.T, payload json.RawMessage, key string) any {
	t.Helper()
	doc := map[string]any{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("bad entity payload: %v", err)
	}
	return doc[key]
}

func TestPushCreateThenStaleUpdateThenReplay(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, ledger := newTestEngine(adapter)

	t0 := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	e1 := entID(1)

	// Create applies and stamps a server updatedAt newer than t0.
	r1 := pushOne(t, e, userA, mut(mutID(1), MutationCreate, e1, `{"name":"Acme"}`, t0))
	if r1.Status != StatusApplied {
		t.Fatalf("create: expected applied, got %s (%s)", r1.Status, r1.Reason)
	}
	tS := entityUpdatedAt(t, r1.ServerEntity)
	if !tS.After(t0) {
		t.Fatalf("server updatedAt %v should be after client %v", tS, t0)
	}

	// A stale update loses and gets the authoritative record back.
	m2 := mut(mutID(2), MutationUpdate, e1, `{"name":"X"}`, t0)
	r2 := pushOne(t, e, userA, m2)
	if r2.Status != StatusConflict {
		t.Fatalf("stale update: expected conflict, got %s (%s)", r2.Status, r2.Reason)
	}
	if got := entityUpdatedAt(t, r2.ServerEntity); !got.Equal(tS) {
		t.Errorf("conflict serverEntity.updatedAt = %v, want %v", got, tS)
	}
	if name := entityField(t, r2.ServerEntity, "name"); name != "Acme" {
		t.Errorf("conflict serverEntity.name = %v, want Acme", name)
	}

	// Replaying the stale mutation is not reprocessed.
	putsBefore := ledger.puts
	r3 := pushOne(t, e, userA, m2)
	if r3.Status != StatusDuplicate {
		t.Fatalf("replay: expected duplicate, got %s", r3.Status)
	}
	if r3.OriginalStatus != StatusConflict {
		t.Errorf("replay originalStatus = %s, want conflict", r3.OriginalStatus)
	}
	if got := entityUpdatedAt(t, r3.ServerEntity); !got.Equal(tS) {
		t.Errorf("replay serverEntity.updatedAt = %v, want %v", got, tS)
	}
	if ledger.puts != putsBefore {
		t.Errorf("replay wrote %d new ledger entries", ledger.puts-putsBefore)
	}
	if name := entityField(t, mustGet(t, adapter, e1), "name"); name != "Acme" {
		t.Errorf("store changed by replay: name = %v", name)
	}
}

func mustGet(t *testing.T, a *fakeAdapter, id string) json.RawMessage {
	t.Helper()
	payload, err := a.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return payload
}

func TestPushBatchIdempotent(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	future := clock.at().Add(time.Hour)
	batch := []Mutation{
		mut(mutID(10), MutationCreate, entID(10), `{"name":"North"}`, future),
		mut(mutID(11), MutationCreate, entID(11), `{"name":"South"}`, future),
		mut(mutID(12), MutationUpdate, entID(10), `{"name":"North Ridge"}`, future.Add(time.Minute)),
		mut(mutID(13), MutationDelete, entID(11), "", future.Add(time.Minute)),
	}

	first, err := e.Push(context.Background(), userA, "clients", batch)
	if err != nil {
		t.Fatalf("first push: %v", err)
	}
	for i, r := range first {
		if r.Status != StatusApplied {
			t.Fatalf("first push [%d]: expected applied, got %s (%s)", i, r.Status, r.Reason)
		}
	}

	stateBefore := fingerprint(adapter)

	second, err := e.Push(context.Background(), userA, "clients", batch)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	for i, r := range second {
		if r.Status != StatusDuplicate {
			t.Errorf("second push [%d]: expected duplicate, got %s", i, r.Status)
		}
		if r.OriginalStatus != first[i].Status {
			t.Errorf("second push [%d]: originalStatus = %s, want %s", i, r.OriginalStatus, first[i].Status)
		}
		if string(r.ServerEntity) != string(first[i].ServerEntity) {
			t.Errorf("second push [%d]: serverEntity drifted", i)
		}
		if r.MutationID != batch[i].MutationID {
			t.Errorf("second push [%d]: result order broken", i)
		}
	}

	if stateBefore != fingerprint(adapter) {
		t.Error("second submission changed the entity store")
	}
}

func fingerprint(a *fakeAdapter) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sb strings.Builder
	ids := make([]string, 0, len(a.records))
	for id := range a.records {
		ids = append(ids, id)
	}
	for _, id := range ids {
		rec := a.records[id]
		fmt.Fprintf(&sb, "%s|%s|%v|%v;", id, rec.updatedAt.Format(time.RFC3339Nano), rec.deleted, rec.fields)
	}
	return sb.String()
}

func TestPushLWWConvergence(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	e1 := entID(20)
	base := clock.at()

	r := pushOne(t, e, userA, mut(mutID(20), MutationCreate, e1, `{"name":"v0"}`, base.Add(time.Hour)))
	if r.Status != StatusApplied {
		t.Fatalf("seed create: %s (%s)", r.Status, r.Reason)
	}

	// Device A edits with the later wall clock, device B with the
	// earlier one. A wins, B conflicts and refetches.
	winner := pushOne(t, e, userA, mut(mutID(21), MutationUpdate, e1, `{"name":"from-a"}`, base.Add(2*time.Hour)))
	if winner.Status != StatusApplied {
		t.Fatalf("winner update: %s (%s)", winner.Status, winner.Reason)
	}
	serverNow := entityUpdatedAt(t, winner.ServerEntity)

	loser := pushOne(t, e, userA, mut(mutID(22), MutationUpdate, e1, `{"name":"from-b"}`, serverNow.Add(-time.Minute)))
	if loser.Status != StatusConflict {
		t.Fatalf("loser update: expected conflict, got %s", loser.Status)
	}
	if name := entityField(t, loser.ServerEntity, "name"); name != "from-a" {
		t.Errorf("losing device should see winning record, got name=%v", name)
	}

	// B retries its edit with a timestamp newer than the server state.
	retry := pushOne(t, e, userA, mut(mutID(23), MutationUpdate, e1, `{"name":"from-b"}`, serverNow.Add(time.Hour)))
	if retry.Status != StatusApplied {
		t.Fatalf("retry after refetch: expected applied, got %s (%s)", retry.Status, retry.Reason)
	}
	if name := entityField(t, mustGet(t, adapter, e1), "name"); name != "from-b" {
		t.Errorf("final state = %v, want from-b", name)
	}
}

func TestPushTieBreakIsConflict(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	e1 := entID(30)
	r := pushOne(t, e, userA, mut(mutID(30), MutationCreate, e1, `{"name":"tie"}`, clock.at().Add(time.Hour)))
	if r.Status != StatusApplied {
		t.Fatalf("seed: %s", r.Status)
	}
	serverTS := entityUpdatedAt(t, r.ServerEntity)

	for i := 0; i < 3; i++ {
		res := pushOne(t, e, userA, mut(mutID(31+i), MutationUpdate, e1, `{"name":"mine"}`, serverTS))
		if res.Status != StatusConflict {
			t.Fatalf("tie run %d: expected conflict, got %s", i, res.Status)
		}
	}
}

func TestPushCrossTenantRejected(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	e1 := entID(40)
	r := pushOne(t, e, userB, mut(mutID(40), MutationCreate, e1, `{"name":"theirs"}`, clock.at().Add(time.Hour)))
	if r.Status != StatusApplied {
		t.Fatalf("seed as userB: %s", r.Status)
	}
	before := fingerprint(adapter)

	for _, m := range []Mutation{
		mut(mutID(41), MutationUpdate, e1, `{"name":"stolen"}`, clock.at().Add(2*time.Hour)),
		mut(mutID(42), MutationDelete, e1, "", clock.at().Add(2*time.Hour)),
		mut(mutID(43), MutationCreate, e1, `{"name":"squat"}`, clock.at().Add(2*time.Hour)),
	} {
		res := pushOne(t, e, userA, m)
		if res.Status != StatusRejected || res.Reason != ReasonOwnership {
			t.Errorf("%s by wrong tenant: got %s (%q), want rejected (ownership)", m.Type, res.Status, res.Reason)
		}
	}

	if before != fingerprint(adapter) {
		t.Error("cross-tenant mutations changed the store")
	}
}

func TestPushMutationIDReusedAcrossTenants(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	shared := mutID(130)
	future := clock.at().Add(time.Hour)

	first := pushOne(t, e, userA, mut(shared, MutationCreate, entID(130), `{"name":"A Confidential"}`, future))
	if first.Status != StatusApplied {
		t.Fatalf("tenant A create: %s (%s)", first.Status, first.Reason)
	}

	// The same mutationId from tenant B is B's first submission, not a
	// replay of A's, and must never surface A's stored result.
	second := pushOne(t, e, userB, mut(shared, MutationCreate, entID(131), `{"name":"B Own Record"}`, future))
	if second.Status != StatusApplied {
		t.Fatalf("tenant B create: got %s (%s), want applied", second.Status, second.Reason)
	}
	if second.OriginalStatus != "" {
		t.Errorf("tenant B originalStatus = %q, want none", second.OriginalStatus)
	}
	if owner := entityField(t, second.ServerEntity, "userId"); owner != userB {
		t.Errorf("tenant B serverEntity.userId = %v, want %s", owner, userB)
	}
	if name := entityField(t, second.ServerEntity, "name"); name != "B Own Record" {
		t.Errorf("tenant B serverEntity.name = %v, want its own record", name)
	}

	// Each tenant's replay returns its own outcome.
	replayA := pushOne(t, e, userA, mut(shared, MutationCreate, entID(130), `{"name":"A Confidential"}`, future))
	if replayA.Status != StatusDuplicate || replayA.OriginalStatus != StatusApplied {
		t.Fatalf("tenant A replay = %s/%s, want duplicate/applied", replayA.Status, replayA.OriginalStatus)
	}
	if name := entityField(t, replayA.ServerEntity, "name"); name != "A Confidential" {
		t.Errorf("tenant A replay serverEntity.name = %v", name)
	}
	replayB := pushOne(t, e, userB, mut(shared, MutationCreate, entID(131), `{"name":"B Own Record"}`, future))
	if replayB.Status != StatusDuplicate || replayB.OriginalStatus != StatusApplied {
		t.Fatalf("tenant B replay = %s/%s, want duplicate/applied", replayB.Status, replayB.OriginalStatus)
	}
	if name := entityField(t, replayB.ServerEntity, "name"); name != "B Own Record" {
		t.Errorf("tenant B replay serverEntity.name = %v", name)
	}

	if len(adapter.records) != 2 {
		t.Errorf("store has %d records, want one per tenant", len(adapter.records))
	}
}

func TestPushForeignKeyOwnership(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	adapter.refCheck = func(userID string, data json.RawMessage) error {
		var doc struct {
			ClientID string `json:"clientId"`
		}
		_ = json.Unmarshal(data, &doc)
		switch doc.ClientID {
		case "foreign":
			return fmt.Errorf("client %s: %w", doc.ClientID, ErrOwnership)
		case "ghost":
			return fmt.Errorf("client %s: %w", doc.ClientID, ErrRefNotFound)
		}
		return nil
	}
	e, _ := newTestEngine(adapter)

	res := pushOne(t, e, userA, mut(mutID(50), MutationCreate, entID(50), `{"clientId":"foreign"}`, clock.at().Add(time.Hour)))
	if res.Status != StatusRejected || res.Reason != ReasonOwnership {
		t.Errorf("foreign ref: got %s (%q), want rejected (ownership)", res.Status, res.Reason)
	}

	res = pushOne(t, e, userA, mut(mutID(51), MutationCreate, entID(51), `{"clientId":"ghost"}`, clock.at().Add(time.Hour)))
	if res.Status != StatusRejected || !strings.Contains(res.Reason, "not found") {
		t.Errorf("missing ref: got %s (%q), want rejected with readable reason", res.Status, res.Reason)
	}
}

func TestPushValidationRejects(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	future := clock.at().Add(time.Hour)

	tests := []struct {
		name   string
		m      Mutation
		reason string
	}{
		{"missing mutationId", mut("", MutationCreate, entID(60), `{"name":"x"}`, future), "mutationId is required"},
		{"bad mutationId", mut("not-a-uuid", MutationCreate, entID(60), `{"name":"x"}`, future), "mutationId must be a UUID"},
		{"unknown type", mut(mutID(60), "upsert", entID(60), `{"name":"x"}`, future), "type must be one of create, update, delete"},
		{"bad entityId", mut(mutID(61), MutationCreate, "e-60", `{"name":"x"}`, future), "entityId must be a UUID"},
		{"missing clientUpdatedAt", mut(mutID(62), MutationCreate, entID(60), `{"name":"x"}`, time.Time{}), "clientUpdatedAt is required"},
		{"missing data on create", mut(mutID(63), MutationCreate, entID(60), "", future), "data is required for create"},
		{"missing data on update", mut(mutID(64), MutationUpdate, entID(60), "", future), "data is required for update"},
		{"malformed data", mut(mutID(65), MutationCreate, entID(60), `{"name":`, future), "data is not valid JSON"},
	}
	for _, tc := range tests {
		res := pushOne(t, e, userA, tc.m)
		if res.Status != StatusRejected {
			t.Errorf("%s: expected rejected, got %s", tc.name, res.Status)
			continue
		}
		if res.Reason != tc.reason {
			t.Errorf("%s: reason = %q, want %q", tc.name, res.Reason, tc.reason)
		}
	}

	// Deterministic rejects are replayable like any other outcome.
	bad := mut(mutID(60), "upsert", entID(60), `{"name":"x"}`, future)
	replay := pushOne(t, e, userA, bad)
	if replay.Status != StatusDuplicate || replay.OriginalStatus != StatusRejected {
		t.Errorf("replayed reject: got %s/%s, want duplicate/rejected", replay.Status, replay.OriginalStatus)
	}
	if len(adapter.records) != 0 {
		t.Error("rejected mutations must not touch the store")
	}
}

func TestPushUpdateAndDeleteOfMissingRecord(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	future := clock.at().Add(time.Hour)

	res := pushOne(t, e, userA, mut(mutID(70), MutationUpdate, entID(70), `{"name":"x"}`, future))
	if res.Status != StatusRejected || res.Reason != "record not found" {
		t.Errorf("update missing: got %s (%q)", res.Status, res.Reason)
	}

	res = pushOne(t, e, userA, mut(mutID(71), MutationDelete, entID(70), "", future))
	if res.Status != StatusRejected || res.Reason != "record not found" {
		t.Errorf("delete missing: got %s (%q)", res.Status, res.Reason)
	}
}

func TestPushDeleteAndRevive(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	e1 := entID(80)
	base := clock.at()

	pushOne(t, e, userA, mut(mutID(80), MutationCreate, e1, `{"name":"doomed"}`, base.Add(time.Hour)))

	del := pushOne(t, e, userA, mut(mutID(81), MutationDelete, e1, "", base.Add(2*time.Hour)))
	if del.Status != StatusApplied {
		t.Fatalf("delete: %s (%s)", del.Status, del.Reason)
	}
	if entityField(t, del.ServerEntity, "deletedAt") == nil {
		t.Error("delete result should carry the tombstone")
	}
	delTS := entityUpdatedAt(t, del.ServerEntity)

	// An edit staler than the deletion conflicts; the tombstone wins.
	stale := pushOne(t, e, userA, mut(mutID(82), MutationUpdate, e1, `{"name":"late"}`, delTS.Add(-time.Minute)))
	if stale.Status != StatusConflict {
		t.Fatalf("stale update on tombstone: got %s", stale.Status)
	}

	// A newer edit revives the record.
	revive := pushOne(t, e, userA, mut(mutID(83), MutationUpdate, e1, `{"name":"back"}`, delTS.Add(time.Hour)))
	if revive.Status != StatusApplied {
		t.Fatalf("revive: %s (%s)", revive.Status, revive.Reason)
	}
	if entityField(t, revive.ServerEntity, "deletedAt") != nil {
		t.Error("revived record should not be a tombstone")
	}
}

func TestPushCreateOverExistingActsAsOverwrite(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, _ := newTestEngine(adapter)

	e1 := entID(90)
	base := clock.at()

	seed := pushOne(t, e, userA, mut(mutID(90), MutationCreate, e1, `{"name":"first","phone":"1"}`, base.Add(time.Hour)))
	seedTS := entityUpdatedAt(t, seed.ServerEntity)

	// Same id created again from another device: goes through the
	// conflict gate like an update.
	stale := pushOne(t, e, userA, mut(mutID(91), MutationCreate, e1, `{"name":"second"}`, seedTS.Add(-time.Second)))
	if stale.Status != StatusConflict {
		t.Fatalf("stale re-create: got %s", stale.Status)
	}

	fresh := pushOne(t, e, userA, mut(mutID(92), MutationCreate, e1, `{"name":"second"}`, seedTS.Add(2*time.Hour)))
	if fresh.Status != StatusApplied {
		t.Fatalf("fresh re-create: %s (%s)", fresh.Status, fresh.Reason)
	}
	if name := entityField(t, mustGet(t, adapter, e1), "name"); name != "second" {
		t.Errorf("overwrite lost: name = %v", name)
	}
}

func TestPushStorageFaultIsRetryable(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, ledger := newTestEngine(adapter)

	m := mut(mutID(100), MutationCreate, entID(100), `{"name":"flaky"}`, clock.at().Add(time.Hour))

	adapter.applyErr = errors.New("connection reset")
	res := pushOne(t, e, userA, m)
	if res.Status != StatusRejected || res.Reason != ReasonStorage {
		t.Fatalf("fault: got %s (%q), want rejected (%q)", res.Status, res.Reason, ReasonStorage)
	}
	if got, _ := ledger.Get(context.Background(), userA, m.MutationID); got != nil {
		t.Fatal("transient faults must not be ledgered")
	}

	adapter.applyErr = nil
	retry := pushOne(t, e, userA, m)
	if retry.Status != StatusApplied {
		t.Fatalf("retry after fault: got %s (%s)", retry.Status, retry.Reason)
	}
}

func TestPushLedgerFaultDowngradesOutcome(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, ledger := newTestEngine(adapter)

	ledger.putErr = errors.New("disk full")
	res := pushOne(t, e, userA, mut(mutID(110), MutationCreate, entID(110), `{"name":"x"}`, clock.at().Add(time.Hour)))
	if res.Status != StatusRejected || res.Reason != ReasonStorage {
		t.Fatalf("ledger fault: got %s (%q), want retryable rejection", res.Status, res.Reason)
	}
}

func TestPushSameEntitySerialized(t *testing.T) {
	clock := newFakeClock()
	adapter := newFakeAdapter("clients", clock)
	e, ledger := newTestEngine(adapter)

	e1 := entID(120)
	pushOne(t, e, userA, mut(mutID(120), MutationCreate, e1, `{"name":"seed","n":0}`, clock.at().Add(time.Hour)))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := fmt.Sprintf(`{"n":%d}`, i+1)
			m := mut(mutID(121+i), MutationUpdate, e1, data, clock.at().Add(time.Duration(i+2)*time.Hour))
			_, err := e.Push(context.Background(), userA, "clients", []Mutation{m})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	ledger.mu.Lock()
	entries := len(ledger.entries)
	ledger.mu.Unlock()
	if entries != workers+1 {
		t.Errorf("ledger has %d entries, want %d", entries, workers+1)
	}

	adapter.mu.Lock()
	rec := adapter.records[e1]
	adapter.mu.Unlock()
	if rec == nil || rec.deleted {
		t.Fatal("record lost under concurrency")
	}
}

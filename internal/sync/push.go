package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Push processes a batch of mutations for one entity type and returns a
// result per mutation in input order. A failing mutation never aborts
// the batch; every input gets an explicit terminal result.
func (e *Engine) Push(ctx context.Context, userID, entityType string, mutations []Mutation) ([]PushResult, error) {
	adapter, err := e.registry.Adapter(entityType)
	if err != nil {
		return nil, err
	}

	results := make([]PushResult, 0, len(mutations))
	for _, m := range mutations {
		results = append(results, e.process(ctx, adapter, userID, m))
	}
	return results, nil
}

// process runs one mutation through the pipeline: replay check, shape
// validation, ownership, conflict gate, apply. The per-entity lock spans
// the whole pipeline so two in-flight pushes cannot both pass the
// conflict check against the same stale updatedAt.
func (e *Engine) process(ctx context.Context, adapter Adapter, userID string, m Mutation) PushResult {
	// The ledger key is the caller's account plus mutationId, so that
	// field has to hold up before anything else can.
	if m.MutationID == "" {
		return rejected(m, "mutationId is required")
	}
	if _, err := uuid.Parse(m.MutationID); err != nil {
		return rejected(m, "mutationId must be a UUID")
	}

	key := adapter.EntityType() + ":" + m.EntityID
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	prev, err := e.ledger.Get(ctx, userID, m.MutationID)
	if err != nil {
		return storageRejected(m, err)
	}
	if prev != nil {
		res := *prev
		res.MutationID = m.MutationID
		res.OriginalStatus = prev.Status
		res.Status = StatusDuplicate
		return res
	}

	return e.evaluate(ctx, adapter, userID, m)
}

// evaluate decides and persists the terminal outcome of a first-seen
// mutation. Deterministic outcomes (applied, conflict, and rejects the
// mutation itself caused) are written to the ledger so replays return
// them; transient storage faults are not, keeping retries live.
func (e *Engine) evaluate(ctx context.Context, adapter Adapter, userID string, m Mutation) PushResult {
	if err := e.validateShape(m); err != nil {
		return e.record(ctx, userID, m, rejected(m, err.Error()))
	}

	meta, err := adapter.Meta(ctx, m.EntityID)
	if err != nil {
		return storageRejected(m, err)
	}

	if meta != nil && meta.UserID != userID {
		return e.record(ctx, userID, m, rejected(m, ReasonOwnership))
	}

	if m.Type == MutationCreate || m.Type == MutationUpdate {
		if err := adapter.ValidateRefs(ctx, userID, m.Data); err != nil {
			switch {
			case errors.Is(err, ErrOwnership):
				return e.record(ctx, userID, m, rejected(m, ReasonOwnership))
			case errors.Is(err, ErrRefNotFound), errors.Is(err, ErrBadPayload):
				return e.record(ctx, userID, m, rejected(m, err.Error()))
			default:
				return storageRejected(m, err)
			}
		}
	}

	if (m.Type == MutationUpdate || m.Type == MutationDelete) && meta == nil {
		return e.record(ctx, userID, m, rejected(m, "record not found"))
	}

	// Conflict gate. Skipped only for a create of an id the server has
	// never seen; a create against an existing record competes like any
	// other write and degrades to a full overwrite if it wins.
	if meta != nil {
		if Resolve(meta.UpdatedAt, m.ClientUpdatedAt) == StatusConflict {
			current, err := adapter.Get(ctx, m.EntityID)
			if err != nil {
				return storageRejected(m, err)
			}
			return e.record(ctx, userID, m, PushResult{
				MutationID:   m.MutationID,
				Status:       StatusConflict,
				ServerEntity: current,
			})
		}
	}

	var res PushResult
	err = e.runner.InTx(ctx, func(ctx context.Context) error {
		var entity json.RawMessage
		var err error
		switch m.Type {
		case MutationCreate:
			if meta == nil {
				entity, err = adapter.Create(ctx, userID, m.EntityID, m.Data)
			} else {
				entity, err = adapter.Update(ctx, userID, m.EntityID, m.Data)
			}
		case MutationUpdate:
			entity, err = adapter.Update(ctx, userID, m.EntityID, m.Data)
		case MutationDelete:
			entity, err = adapter.SoftDelete(ctx, userID, m.EntityID)
		}
		if err != nil {
			return err
		}
		res = PushResult{
			MutationID:   m.MutationID,
			Status:       StatusApplied,
			ServerEntity: entity,
		}
		return e.ledger.Put(ctx, userID, m, res)
	})
	if err != nil {
		if errors.Is(err, ErrBadPayload) {
			return e.record(ctx, userID, m, rejected(m, err.Error()))
		}
		return storageRejected(m, err)
	}
	return res
}

// record persists a deterministic outcome. If the ledger write cannot
// commit the outcome is downgraded to a retryable rejection, because a
// result the ledger never saw must not be presented as terminal.
func (e *Engine) record(ctx context.Context, userID string, m Mutation, res PushResult) PushResult {
	err := e.runner.InTx(ctx, func(ctx context.Context) error {
		return e.ledger.Put(ctx, userID, m, res)
	})
	if err != nil {
		return storageRejected(m, err)
	}
	return res
}

// validateShape checks the mutation envelope and payload presence, with
// violations phrased for the client developer reading the reason.
func (e *Engine) validateShape(m Mutation) error {
	if err := e.validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New(readableViolation(verrs[0]))
		}
		return err
	}
	switch m.Type {
	case MutationCreate, MutationUpdate:
		if len(m.Data) == 0 || string(m.Data) == "null" {
			return fmt.Errorf("data is required for %s", m.Type)
		}
		if !json.Valid(m.Data) {
			return errors.New("data is not valid JSON")
		}
	}
	return nil
}

func readableViolation(f validator.FieldError) string {
	switch f.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", f.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", f.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of create, update, delete", f.Field())
	}
	return fmt.Sprintf("%s is invalid", f.Field())
}

func rejected(m Mutation, reason string) PushResult {
	return PushResult{
		MutationID: m.MutationID,
		Status:     StatusRejected,
		Reason:     reason,
	}
}

func storageRejected(m Mutation, err error) PushResult {
	log.Printf("⚠️  sync: mutation %s hit storage fault: %v", m.MutationID, err)
	return PushResult{
		MutationID: m.MutationID,
		Status:     StatusRejected,
		Reason:     ReasonStorage,
	}
}

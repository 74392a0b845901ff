package entity

// ChangeFunc receives one change batch: the entities added or changed and the
// ids deleted.
type ChangeFunc func(updated map[string]Raw, removed []string)

// Model is a raw entity model consumed by the engine.
type Model interface {
	// ID identifies the model. Provenance colors derive from it.
	ID() string
	// Alias is a display name, empty when the model has none.
	Alias() string
	// BaseIRI is used to absolutize relative entity IRIs, empty when unset.
	BaseIRI() string
	// Entities returns the current raw entities keyed by id.
	Entities() map[string]Raw
	// Subscribe registers fn for every later change batch.
	Subscribe(fn ChangeFunc) (unsubscribe func())
}

// WritableModel is a Model that accepts mutating operations.
type WritableModel interface {
	Model
	Execute(op Operation) Result
}

// Operation is a mutating request. Implemented by CreateEntity, ModifyEntity
// and DeleteEntity only.
type Operation interface {
	isOperation()
}

// CreateEntity adds a new entity. An empty id is filled in by the model.
type CreateEntity struct {
	Entity Raw
}

// ModifyEntity replaces an existing entity with the same id.
type ModifyEntity struct {
	Entity Raw
}

// DeleteEntity removes an entity.
type DeleteEntity struct {
	ID string
}

func (CreateEntity) isOperation() {}
func (ModifyEntity) isOperation() {}
func (DeleteEntity) isOperation() {}

// IsCreation reports whether op adds a new entity.
func IsCreation(op Operation) bool {
	_, ok := op.(CreateEntity)
	return ok
}

// RejectReason explains why an operation was not applied.
type RejectReason string

// Reject reasons.
const (
	ReasonNotWritable      RejectReason = "not-writable"
	ReasonAddDisabled      RejectReason = "add-disabled"
	ReasonModifyDisabled   RejectReason = "modify-disabled"
	ReasonUnknownEntity    RejectReason = "unknown-entity"
	ReasonDuplicateEntity  RejectReason = "duplicate-entity"
	ReasonInvalidOperation RejectReason = "invalid-operation"
)

// Result is the outcome of an operation. Rejections are values, not errors.
type Result struct {
	Success bool         `json:"success"`
	Reason  RejectReason `json:"reason,omitempty"`
	// Created holds the id assigned by a successful CreateEntity.
	Created string `json:"created,omitempty"`
}

// Rejected builds a failed Result.
func Rejected(reason RejectReason) Result {
	return Result{Success: false, Reason: reason}
}

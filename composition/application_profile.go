package composition

import (
	"log/slog"

	"github.com/c360studio/semagg/entity"
)

// ApplicationProfile overlays a profiles child on a base model child. Both
// children's raw entities form one table; on an id collision the profile
// entity wins. Writes go to profiles only, gated by CanAddEntities and
// CanModify.
type ApplicationProfile struct {
	core

	model    Node
	profiles Node

	canAddEntities bool
	canModify      bool

	unsubModel    Unsubscribe
	unsubProfiles Unsubscribe
}

// ApplicationProfileOption configures an ApplicationProfile.
type ApplicationProfileOption func(*ApplicationProfile)

// CanAddEntities allows create operations to reach the profiles child.
func CanAddEntities(allowed bool) ApplicationProfileOption {
	return func(a *ApplicationProfile) { a.canAddEntities = allowed }
}

// CanModify allows modify and delete operations to reach the profiles child.
func CanModify(allowed bool) ApplicationProfileOption {
	return func(a *ApplicationProfile) { a.canModify = allowed }
}

// NewApplicationProfile creates an application profile node.
func NewApplicationProfile(logger *slog.Logger, model, profiles Node, opts ...ApplicationProfileOption) *ApplicationProfile {
	a := &ApplicationProfile{
		core:     newCore("application-profile", logger),
		model:    model,
		profiles: profiles,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.combine = a.contribution
	a.unsubModel = model.Subscribe(a.onChildChange)
	a.unsubProfiles = profiles.Subscribe(a.onChildChange)

	ids := entityIDs(model.Entities())
	ids = append(ids, entityIDs(profiles.Entities())...)
	a.recompute(ids)
	return a
}

// Model returns the base child.
func (a *ApplicationProfile) Model() Node { return a.model }

// Profiles returns the overlay child.
func (a *ApplicationProfile) Profiles() Node { return a.profiles }

// ExecOperation forwards permitted operations to the profiles child and
// rejects the rest with a reason.
func (a *ApplicationProfile) ExecOperation(op entity.Operation) entity.Result {
	switch op.(type) {
	case entity.CreateEntity:
		if !a.canAddEntities {
			return entity.Rejected(entity.ReasonAddDisabled)
		}
	case entity.ModifyEntity, entity.DeleteEntity:
		if !a.canModify {
			return entity.Rejected(entity.ReasonModifyDisabled)
		}
	default:
		return entity.Rejected(entity.ReasonInvalidOperation)
	}
	return a.profiles.ExecOperation(op)
}

// ExternalEntityToLocal maps an entity of the base model to something the
// profile can hold. An id the profiles child already defines is returned as
// is. For a base class or relationship a draft profile is synthesized that
// profiles it and takes every attribute from it; the draft has no id and is
// not stored until a CreateEntity operation adds it.
func (a *ApplicationProfile) ExternalEntityToLocal(id string) (*Wrapper, bool) {
	if w, ok := a.profiles.LocalEntity(id); ok {
		return w, true
	}
	base, ok := a.model.LocalEntity(id)
	if !ok || base.Raw == nil {
		return nil, false
	}

	draft := DraftProfile(base.Raw)
	if draft == nil {
		return nil, false
	}
	table := make(map[string]entity.Raw, len(a.raws)+1)
	for k, v := range a.raws {
		table[k] = v
	}
	table[""] = draft
	return &Wrapper{
		Entity:   Resolve("", table, a.logger),
		Raw:      draft,
		Sources:  append([]Descriptor(nil), base.Sources...),
		ReadOnly: !a.canAddEntities,
	}, true
}

// DraftProfile returns an unsaved profile of raw inheriting every attribute,
// or nil if raw cannot be profiled.
func DraftProfile(raw entity.Raw) entity.Raw {
	id := raw.EntityID()
	switch v := raw.(type) {
	case *entity.Class, *entity.ClassProfile:
		return &entity.ClassProfile{
			Profiling:               []string{id},
			NameFromProfiled:        id,
			DescriptionFromProfiled: id,
			UsageNoteFromProfiled:   id,
		}
	case *entity.Relationship:
		return &entity.RelationshipProfile{Ends: [2]entity.RelationshipEndProfile{
			{Concept: v.Ends[0].Concept, Cardinality: v.Ends[0].Cardinality},
			{
				Concept:                 v.Ends[1].Concept,
				Cardinality:             v.Ends[1].Cardinality,
				Profiling:               []string{id},
				NameFromProfiled:        id,
				DescriptionFromProfiled: id,
				UsageNoteFromProfiled:   id,
			},
		}}
	case *entity.RelationshipProfile:
		return &entity.RelationshipProfile{Ends: [2]entity.RelationshipEndProfile{
			{Concept: v.Ends[0].Concept},
			{
				Concept:                 v.Ends[1].Concept,
				Profiling:               []string{id},
				NameFromProfiled:        id,
				DescriptionFromProfiled: id,
				UsageNoteFromProfiled:   id,
			},
		}}
	case *entity.Generalization:
	}
	return nil
}

// Close detaches from and closes both children.
func (a *ApplicationProfile) Close() {
	if a.unsubModel != nil {
		a.unsubModel()
		a.unsubProfiles()
		a.unsubModel, a.unsubProfiles = nil, nil
		a.model.Close()
		a.profiles.Close()
	}
}

func (a *ApplicationProfile) contribution(id string) (contribution, bool) {
	base, inModel := a.model.LocalEntity(id)
	profile, inProfiles := a.profiles.LocalEntity(id)

	switch {
	case inProfiles && profile.Raw != nil:
		sources := append([]Descriptor(nil), profile.Sources...)
		if inModel {
			sources = append(sources, base.Sources...)
		}
		return contribution{raw: profile.Raw, sources: sources, readOnly: !a.canModify}, true
	case inModel && base.Raw != nil:
		return contribution{raw: base.Raw, sources: base.Sources, readOnly: true}, true
	case inProfiles:
		return placeholder(profile)
	case inModel:
		return placeholder(base)
	}
	return contribution{}, false
}

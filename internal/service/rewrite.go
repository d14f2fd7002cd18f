package service

import (
	"github.com/MKhiriev/farm-sync/models"
)

// ReferenceRewriter walks arbitrarily nested payloads and substitutes
// temporary identifiers with resolved real identifiers. It is used on
// outgoing batch payloads and to patch already-queued operations once a
// create resolves.
//
// Rewriting is side-effect-free on its input, idempotent, and leaves
// unresolvable temporary identifiers untouched so the operation keeps its
// original reference until a later cycle can resolve it.
type ReferenceRewriter struct{}

func NewReferenceRewriter() *ReferenceRewriter {
	return &ReferenceRewriter{}
}

// Rewrite returns a copy of v with every resolvable temporary-identifier
// string replaced through resolver. Map keys are never rewritten; scalars of
// other kinds pass through unchanged.
func (r *ReferenceRewriter) Rewrite(v models.Value, resolver Resolver) models.Value {
	switch v.Kind() {
	case models.KindString:
		raw := v.StringVal()
		if !models.IsTempID(raw) {
			return v
		}
		if real, ok := resolver.Resolve(raw); ok {
			return models.String(real)
		}
		// Unresolved: keep the temp reference, never a sentinel.
		return v
	case models.KindList:
		elems := v.ListVal()
		out := make([]models.Value, len(elems))
		for i, e := range elems {
			out[i] = r.Rewrite(e, resolver)
		}
		return models.List(out...)
	case models.KindMap:
		fields := v.MapVal()
		out := make(map[string]models.Value, len(fields))
		for k, f := range fields {
			out[k] = r.Rewrite(f, resolver)
		}
		return models.Map(out)
	default:
		return v
	}
}

// RewriteOne substitutes only the given temporary identifier, leaving all
// other temp references untouched. Used to propagate a just-resolved create's
// identifier into still-pending operations without consulting the full map.
func (r *ReferenceRewriter) RewriteOne(v models.Value, tempID models.TempID, realID string) models.Value {
	return r.Rewrite(v, singleResolver{tempID: tempID, realID: realID})
}

type singleResolver struct {
	tempID models.TempID
	realID string
}

func (s singleResolver) Resolve(id string) (string, bool) {
	if id == s.tempID.String() {
		return s.realID, true
	}
	return "", false
}

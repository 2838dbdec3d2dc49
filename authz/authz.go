package authz

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// OwnershipEvaluator answers "does this principal own resource R of type T".
// Each resource-owning service implements it against its own storage; the
// generic decision point below consumes it after token verification has
// already accepted the request.
type OwnershipEvaluator interface {
	Owns(ctx context.Context, resourceType, resourceID, principalID string) bool
}

// Authorizer is the generic authorization decision point. Unknown resource
// types, missing resources and evaluator faults all deny; it never panics.
type Authorizer struct {
	mu         sync.RWMutex
	evaluators map[string]OwnershipEvaluator
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{
		evaluators: make(map[string]OwnershipEvaluator),
	}
}

// RegisterEvaluator binds an evaluator to a resource type, replacing any
// previous binding
func (a *Authorizer) RegisterEvaluator(resourceType string, evaluator OwnershipEvaluator) {
	if resourceType == "" || evaluator == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evaluators[resourceType] = evaluator
}

// Owns reports whether the principal owns the resource. Deny by default.
func (a *Authorizer) Owns(ctx context.Context, resourceType, resourceID, principalID string) (owns bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("resource_type", resourceType).
				Msg("ownership evaluator fault")
			owns = false
		}
	}()

	if resourceType == "" || resourceID == "" || principalID == "" {
		return false
	}

	a.mu.RLock()
	evaluator, ok := a.evaluators[resourceType]
	a.mu.RUnlock()

	if !ok {
		return false
	}
	return evaluator.Owns(ctx, resourceType, resourceID, principalID)
}

// HasAuthority checks a granted-authority list for one required entry
func HasAuthority(authorities []string, required string) bool {
	for _, authority := range authorities {
		if authority == required {
			return true
		}
	}
	return false
}

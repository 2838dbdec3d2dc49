package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andresl123/food-rescue-live-sub000/authz"
)

type mapEvaluator struct {
	owners map[string]string // resourceID -> principalID
}

func (e *mapEvaluator) Owns(_ context.Context, _, resourceID, principalID string) bool {
	owner, ok := e.owners[resourceID]
	return ok && owner == principalID
}

type panickyEvaluator struct{}

func (panickyEvaluator) Owns(context.Context, string, string, string) bool {
	panic("storage unreachable")
}

func TestAuthorizerOwns(t *testing.T) {
	authorizer := authz.NewAuthorizer()
	authorizer.RegisterEvaluator("donation", &mapEvaluator{
		owners: map[string]string{"donation-1": "user-1"},
	})

	ctx := context.Background()
	require.True(t, authorizer.Owns(ctx, "donation", "donation-1", "user-1"))
	require.False(t, authorizer.Owns(ctx, "donation", "donation-1", "user-2"))
	require.False(t, authorizer.Owns(ctx, "donation", "donation-9", "user-1"))
}

func TestAuthorizerDeniesUnknownResourceType(t *testing.T) {
	authorizer := authz.NewAuthorizer()
	require.False(t, authorizer.Owns(context.Background(), "delivery", "delivery-1", "user-1"))
}

func TestAuthorizerDeniesEmptyArguments(t *testing.T) {
	authorizer := authz.NewAuthorizer()
	authorizer.RegisterEvaluator("donation", &mapEvaluator{owners: map[string]string{}})

	ctx := context.Background()
	require.False(t, authorizer.Owns(ctx, "", "donation-1", "user-1"))
	require.False(t, authorizer.Owns(ctx, "donation", "", "user-1"))
	require.False(t, authorizer.Owns(ctx, "donation", "donation-1", ""))
}

func TestAuthorizerDeniesOnEvaluatorFault(t *testing.T) {
	authorizer := authz.NewAuthorizer()
	authorizer.RegisterEvaluator("donation", panickyEvaluator{})

	require.NotPanics(t, func() {
		require.False(t, authorizer.Owns(context.Background(), "donation", "donation-1", "user-1"))
	})
}

func TestRegisterEvaluatorIgnoresInvalidBindings(t *testing.T) {
	authorizer := authz.NewAuthorizer()
	authorizer.RegisterEvaluator("", &mapEvaluator{})
	authorizer.RegisterEvaluator("donation", nil)

	require.False(t, authorizer.Owns(context.Background(), "donation", "donation-1", "user-1"))
}

func TestHasAuthority(t *testing.T) {
	authorities := []string{"ROLE_DONOR", "ROLE_COURIER"}
	require.True(t, authz.HasAuthority(authorities, "ROLE_DONOR"))
	require.False(t, authz.HasAuthority(authorities, "ROLE_ADMIN"))
	require.False(t, authz.HasAuthority(nil, "ROLE_DONOR"))
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ClaimStatus
		allowed  bool
	}{
		{ClaimStatusPending, ClaimStatusInProgress, true},
		{ClaimStatusPending, ClaimStatusCancelled, true},
		{ClaimStatusPending, ClaimStatusCompleted, false},
		{ClaimStatusInProgress, ClaimStatusCompleted, true},
		{ClaimStatusInProgress, ClaimStatusPending, true},
		{ClaimStatusInProgress, ClaimStatusCancelled, true},
		{ClaimStatusCompleted, ClaimStatusPending, false},
		{ClaimStatusCompleted, ClaimStatusInProgress, false},
		{ClaimStatusCancelled, ClaimStatusPending, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestClaimStatusTerminal(t *testing.T) {
	assert.False(t, ClaimStatusPending.Terminal())
	assert.False(t, ClaimStatusInProgress.Terminal())
	assert.True(t, ClaimStatusCompleted.Terminal())
	assert.True(t, ClaimStatusCancelled.Terminal())
}

func TestClaimStatusValid(t *testing.T) {
	assert.True(t, ClaimStatusPending.Valid())
	assert.False(t, ClaimStatus("RESUELTO").Valid())
	assert.False(t, ClaimStatus("").Valid())
}

package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusApproved}:   true,
		{StatusPending, StatusCancelled}:  true,
		{StatusApproved, StatusCancelled}: true,
		{StatusApproved, StatusCompleted}: true,
	}

	statuses := []Status{StatusPending, StatusApproved, StatusCompleted, StatusCancelled}
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]Status{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		assert.True(t, terminal.Terminal())
		for _, to := range []Status{StatusPending, StatusApproved, StatusCompleted, StatusCancelled} {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusApproved.Active())
	assert.False(t, StatusCompleted.Active())
	assert.False(t, StatusCancelled.Active())

	assert.True(t, Status("PENDING").Known())
	assert.False(t, Status("EXPIRED").Known())
	assert.False(t, Status("").Known())
}

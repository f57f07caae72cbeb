package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusFulfilled, true},
		{StatusPending, StatusCancelled, true},
		{StatusFulfilled, StatusCancelled, false},
		{StatusFulfilled, StatusPending, false},
		{StatusCancelled, StatusFulfilled, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusPending, false},
		{Status("bogus"), StatusFulfilled, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

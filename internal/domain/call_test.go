package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCallIsTerminal(t *testing.T) {
	terminal := []string{CallStatusEnded, CallStatusRejected, CallStatusMissed, CallStatusFailed}
	for _, status := range terminal {
		call := &Call{Status: status}
		assert.True(t, call.IsTerminal(), "status %s should be terminal", status)
	}

	assert.False(t, (&Call{Status: CallStatusCalling}).IsTerminal())
	assert.False(t, (&Call{Status: CallStatusConnected}).IsTerminal())
}

func TestCallParticipants(t *testing.T) {
	caller := uuid.New()
	recipient := uuid.New()
	outsider := uuid.New()

	call := &Call{CallerID: caller, RecipientID: recipient}

	assert.True(t, call.IsParticipant(caller))
	assert.True(t, call.IsParticipant(recipient))
	assert.False(t, call.IsParticipant(outsider))

	assert.Equal(t, recipient, call.OtherParticipant(caller))
	assert.Equal(t, caller, call.OtherParticipant(recipient))
}

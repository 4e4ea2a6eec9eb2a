package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeySymmetric(t *testing.T) {
	assert.Equal(t, PairKey("alice", "bob"), PairKey("bob", "alice"))
	assert.Equal(t, "alice:bob", PairKey("bob", "alice"))
	assert.NotEqual(t, PairKey("alice", "bob"), PairKey("alice", "carol"))
}

func TestOpponent(t *testing.T) {
	c := &Conversation{Participants: []string{"alice", "bob"}}

	assert.Equal(t, "bob", c.Opponent("alice"))
	assert.Equal(t, "alice", c.Opponent("bob"))
	assert.Equal(t, "alice", c.Opponent("carol"), "non-participant sees the first participant")
}

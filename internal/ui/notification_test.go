package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const whoOutput = `root     tty1         2026-10-18 08:01
alice    tty2         2026-10-18 08:02 (:0)
bob      pts/1        2026-10-18 09:14 (:10)
`

func TestSessionUser(t *testing.T) {
	// WHEN
	user, found := sessionUser(whoOutput, ":0")

	// THEN
	assert.True(t, found)
	assert.Equal(t, "alice", user)
}

func TestSessionUser_DoesNotMatchPrefix(t *testing.T) {
	// WHEN
	user, found := sessionUser(whoOutput, ":1")

	// THEN
	assert.False(t, found)
	assert.Empty(t, user)
}

func TestSessionUser_Empty(t *testing.T) {
	// WHEN
	_, found := sessionUser("", ":0")

	// THEN
	assert.False(t, found)
}

package xid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUsesPrefix(t *testing.T) {
	id := New("pay")
	assert.True(t, Valid("pay", id), id)
	assert.False(t, Valid("audit", id))
	assert.NotEqual(t, id, New("pay"))
}

func TestValidRejectsForeignIDs(t *testing.T) {
	assert.False(t, Valid("pay", "pay-missing"))
	assert.False(t, Valid("pay", ""))
}

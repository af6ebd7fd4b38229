package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_ReflectsIncrements(t *testing.T) {
	c := New()
	c.WebhooksReceived.Add(3)
	c.LLMErrors.Add(1)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.WebhooksReceived)
	assert.Equal(t, int64(1), snap.LLMErrors)
	assert.Equal(t, int64(0), snap.ChatPosts)
}

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorDrain(t *testing.T) {
	var c Collector
	c.Notify(Success("saved"))
	c.Notify(Failure("failed"))

	assert.Equal(t, []Notice{Success("saved"), Failure("failed")}, c.Notices())
	assert.Len(t, c.Drain(), 2)
	assert.Empty(t, c.Drain())
}

func TestNoticePredicates(t *testing.T) {
	assert.True(t, Notice{}.IsZero())
	assert.True(t, Notice{}.OK())
	assert.True(t, Success("x").OK())
	assert.False(t, Failure("x").OK())
}

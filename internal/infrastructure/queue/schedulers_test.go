package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"library-backend/internal/infrastructure/queue"
)

func Test_ValidateCron(t *testing.T) {
	assert.NoError(t, queue.ValidateCron("*/15 * * * *"))
	assert.NoError(t, queue.ValidateCron("@hourly"))
	assert.Error(t, queue.ValidateCron("every fifteen minutes"))
	assert.Error(t, queue.ValidateCron("* * *"))
}

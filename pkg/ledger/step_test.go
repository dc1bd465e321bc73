package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentStep(t *testing.T) {
	genesis := int64(1603366002)

	step, err := CurrentStep(genesis, DefaultSecondsPerStep, time.Unix(genesis+150, 0))
	require.Nil(t, err)
	assert.Equal(t, int64(10), step)

	// same step until the next boundary
	again, err := CurrentStep(genesis, DefaultSecondsPerStep, time.Unix(genesis+164, 0))
	require.Nil(t, err)
	assert.Equal(t, step, again)

	_, err = CurrentStep(genesis, DefaultSecondsPerStep, time.Unix(genesis, 0))
	assert.NotNil(t, err)

	_, err = CurrentStep(genesis, 0, time.Unix(genesis+150, 0))
	assert.NotNil(t, err)
}

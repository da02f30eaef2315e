package retry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Delay_Bounds(t *testing.T) {
	config := DefaultConfig()

	// Jittered delay must stay within [base, base*1.3] for every
	// attempt, where base is capped at MaxDelay.
	for attempt := 0; attempt < 10; attempt++ {
		base := float64(config.InitialDelay) * math.Pow(config.BackoffMultiplier, float64(attempt))
		if max := float64(config.MaxDelay); base > max {
			base = max
		}

		for i := 0; i < 50; i++ {
			delay := config.Delay(attempt)
			assert.GreaterOrEqual(t, float64(delay), base,
				"attempt %d: delay below undithered base", attempt)
			assert.LessOrEqual(t, float64(delay), base*1.3+1,
				"attempt %d: delay above base*1.3", attempt)
		}
	}
}

func TestConfig_Delay_CappedAtMaxDelay(t *testing.T) {
	config := Config{
		InitialDelay:      1 * time.Second,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}

	// Attempt 10 would be 1024s uncapped.
	for i := 0; i < 50; i++ {
		delay := config.Delay(10)
		assert.LessOrEqual(t, delay, time.Duration(float64(5*time.Second)*1.3)+1)
		assert.GreaterOrEqual(t, delay, 5*time.Second)
	}
}

func TestConfig_Delay_Growth(t *testing.T) {
	config := Config{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Minute,
		BackoffMultiplier: 2.0,
	}

	// Lower bounds grow exponentially: attempt 0 >= 100ms, 1 >= 200ms,
	// 2 >= 400ms.
	assert.GreaterOrEqual(t, config.Delay(0), 100*time.Millisecond)
	assert.GreaterOrEqual(t, config.Delay(1), 200*time.Millisecond)
	assert.GreaterOrEqual(t, config.Delay(2), 400*time.Millisecond)
}

func TestConfig_Delay_NegativeAttempt(t *testing.T) {
	config := DefaultConfig()
	delay := config.Delay(-1)
	assert.GreaterOrEqual(t, delay, config.InitialDelay)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 1*time.Second, config.InitialDelay)
	assert.Equal(t, 30*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.BackoffMultiplier)
	assert.Equal(t, []int{408, 429, 500, 502, 503, 504}, config.RetryableStatusCodes)
	assert.NotEmpty(t, config.RetryableErrors)
}

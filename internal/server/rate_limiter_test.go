package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsBurstThenDenies(t *testing.T) {
	bucket := newTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, bucket.allow(), "call %d within burst", i)
	}
	assert.False(t, bucket.allow(), "burst exhausted")
}

func TestTokenBucketRefills(t *testing.T) {
	bucket := newTokenBucket(2, 100*time.Millisecond)

	assert.True(t, bucket.allow())
	assert.True(t, bucket.allow())
	assert.False(t, bucket.allow())

	time.Sleep(150 * time.Millisecond)
	assert.True(t, bucket.allow(), "tokens refill over time")
}

func TestTokenBucketSanitizesArguments(t *testing.T) {
	bucket := newTokenBucket(0, 0)
	assert.True(t, bucket.allow(), "a zero burst still permits one message")
}

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 5, OrDefault(0, 5))
	assert.Equal(t, 3, OrDefault(3, 5))
	assert.Equal(t, "default", OrDefault("", "default"))
	assert.Equal(t, "value", OrDefault("value", "default"))
}

func TestMust(t *testing.T) {
	assert.Equal(t, 42, Must(42, nil))
	assert.Panics(t, func() {
		Must(0, errors.New("nope"))
	})
	assert.NotPanics(t, func() {
		Must1(nil)
	})
	assert.Panics(t, func() {
		Must1(errors.New("nope"))
	})
}

func TestRecoverPanicAsError(t *testing.T) {
	fails := func() (err error) {
		defer RecoverPanicAsError(&err)
		panic(errors.New("oh no"))
	}
	err := fails()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "oh no")

	failsWithValue := func() (err error) {
		defer RecoverPanicAsError(&err)
		panic("string panic")
	}
	err = failsWithValue()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "string panic")
}

func TestSleepContext(t *testing.T) {
	err := SleepContext(context.Background(), time.Millisecond)
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = SleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, ErrSleepInterrupted)
}

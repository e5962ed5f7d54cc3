package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeAlreadyDecided, "request already decided")
		assert.True(t, HasCode(err, CodeAlreadyDecided))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("process: %w", New(CodeNoEligibleVendor, "no vendors"))
		assert.True(t, HasCode(err, CodeNoEligibleVendor))
	})

	t.Run("matches inner code of nested domain errors", func(t *testing.T) {
		inner := New(CodeNotFound, "client missing")
		err := Wrap(inner, CodeInternal, "load snapshot")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	sentinel := errors.New("not found")
	err := Wrap(sentinel, CodeNotFound, "verification request not found")
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "verification request not found", MessageOf(err))
}

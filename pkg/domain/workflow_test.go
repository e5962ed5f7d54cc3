package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veriflow/pkg/domain-errors"
)

func TestParseWorkflowMode(t *testing.T) {
	for _, in := range []string{"Primary", "fallback", " PARALLEL "} {
		mode, err := ParseWorkflowMode(in)
		require.NoError(t, err, in)
		assert.True(t, mode.IsValid())
	}

	_, err := ParseWorkflowMode("RoundRobin")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseWorkflowMode("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseCheckKind(t *testing.T) {
	kind, err := ParseCheckKind("aml")
	require.NoError(t, err)
	assert.Equal(t, CheckAML, kind)

	_, err = ParseCheckKind("Credit")
	assert.Error(t, err)
}

func TestParseVerificationStatus(t *testing.T) {
	s, err := ParseVerificationStatus(" Review ")
	require.NoError(t, err)
	assert.Equal(t, StatusReview, s)

	_, err = ParseVerificationStatus("approved")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.False(t, VerificationStatus("approved").IsValid())
}

package nmterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap_PreservesErrorsIsMatching(t *testing.T) {
	err := Wrap(ErrNotFound, "neuron %s not found", "abc")
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrDuplicate)
	require.Equal(t, "neuron abc not found: nmt: not found", err.Error())
}

func TestWrap_DistinctSentinelsStayDistinguishable(t *testing.T) {
	err := Wrap(ErrConflict, "replica mismatch")
	var target error = ErrConflict
	require.True(t, errors.Is(err, target))
}

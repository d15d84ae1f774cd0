package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorErrorIncludesInternal(t *testing.T) {
	base := New("STOCK_INVALID", "invalid stock operation", http.StatusBadRequest)
	wrapped := base.WithInternal(errors.New("boom"))

	require.Equal(t, "invalid stock operation: boom", wrapped.Error())
	require.Equal(t, "invalid stock operation", base.Error())
}

func TestFromErrorPassesThroughAppError(t *testing.T) {
	err := FromError(ErrForbidden)
	require.Same(t, ErrForbidden, err)
}

func TestFromErrorWrapsGenericError(t *testing.T) {
	cause := errors.New("db down")
	err := FromError(cause)

	require.Equal(t, ErrInternalServer.Code, err.Code)
	require.ErrorIs(t, err, cause)
}

func TestAccessCheckFailedDistinctFromForbidden(t *testing.T) {
	require.NotEqual(t, ErrForbidden.StatusCode, ErrAccessCheckFailed.StatusCode)
	require.Equal(t, http.StatusInternalServerError, ErrAccessCheckFailed.StatusCode)
}

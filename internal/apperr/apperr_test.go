package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("blocks must be positive"), http.StatusBadRequest},
		{NotFound("task not found"), http.StatusNotFound},
		{Conflict(CodePIDAlreadyAssigned, "taken"), http.StatusConflict},
		{Forbidden("role not permitted"), http.StatusForbidden},
		{Persistence(errors.New("tx aborted"), "failed to assign"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("item")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestGRPCCode(t *testing.T) {
	assert.Equal(t, codes.AlreadyExists, GRPCCode(Conflict(CodePIDAlreadyAssigned, "x")))
	assert.Equal(t, codes.FailedPrecondition, GRPCCode(Conflict(CodeItemAlreadyFinal, "x")))
	assert.Equal(t, codes.InvalidArgument, GRPCCode(Validation("x")))
	assert.Equal(t, codes.PermissionDenied, GRPCCode(Forbidden("x")))
	assert.Equal(t, codes.Internal, GRPCCode(errors.New("boom")))
}

func TestPersistenceHidesCause(t *testing.T) {
	cause := errors.New("pq: duplicate key value violates unique constraint")
	err := Persistence(cause, "failed to save task")

	assert.Equal(t, "failed to save task", PublicMessage(err))
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "pq:")
}

func TestUnknownErrorGetsGenericMessage(t *testing.T) {
	assert.Equal(t, internalMessage, PublicMessage(errors.New("dial tcp: refused")))
}

func TestCodesAndDetails(t *testing.T) {
	err := Conflict(CodePIDAlreadyAssigned, "pid already assigned").WithDetail("assigneeName", "Ivan")

	assert.True(t, HasCode(err, CodePIDAlreadyAssigned))
	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindValidation))
	assert.Equal(t, "Ivan", err.Details["assigneeName"])
}

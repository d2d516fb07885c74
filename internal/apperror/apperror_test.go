package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublic_MapsKindsToStatus(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{Validation("No image provided"), http.StatusBadRequest, "No image provided"},
		{Wrap(KindDecode, errors.New("png: invalid format")), http.StatusBadRequest, "Uploaded file is not a valid image"},
		{Wrap(KindTooLarge, errors.New("http: request body too large")), http.StatusRequestEntityTooLarge, "Uploaded file is too large"},
		{NotFound("Recognition not found"), http.StatusNotFound, "Recognition not found"},
		{Wrap(KindRateLimited, nil), http.StatusTooManyRequests, "Too many requests"},
		{Wrap(KindUnavailable, errors.New("context deadline exceeded")), http.StatusServiceUnavailable, "Inference engine busy, retry later"},
		{Wrap(KindInference, errors.New("forward: cv exception")), http.StatusInternalServerError, "Inference failed"},
		{Wrap(KindIO, errors.New("open /tmp/x: permission denied")), http.StatusInternalServerError, "Storage failure"},
		{errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		status, message := Public(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.message, message, tt.err.Error())
	}
}

func TestPublic_ServerErrorsHideCustomMessages(t *testing.T) {
	err := New(KindIO, "open /var/secret/db: denied")

	status, message := Public(err)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Storage failure", message)
}

func TestKindOf_FollowsWrappedChain(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("save upload: %w", Wrap(KindIO, cause))

	assert.Equal(t, KindIO, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUnknown, KindOf(cause))
}

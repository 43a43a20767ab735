package firestoredb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/csi-attendance-api/internal/repository"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "op"))
	assert.ErrorIs(t, translate(status.Error(codes.NotFound, "gone"), "get"), repository.ErrNotFound)

	conflict := translate(fmt.Errorf("wrapped: %w", status.Error(codes.AlreadyExists, "dup")), "create")
	assert.ErrorIs(t, conflict, repository.ErrConflict)
	assert.True(t, isConflict(conflict))

	other := translate(errors.New("boom"), "list")
	assert.EqualError(t, other, "list: boom")
	assert.False(t, isNotFound(other))
}

func TestDocID(t *testing.T) {
	assert.Equal(t, "sess_1__stu_9", DocID("sess_1", "stu_9"))
}

func TestChunk(t *testing.T) {
	ids := make([]string, 65)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	parts := chunk(ids)
	assert.Len(t, parts, 3)
	assert.Len(t, parts[0], maxInValues)
	assert.Len(t, parts[2], 5)
	assert.Nil(t, chunk(nil))
}

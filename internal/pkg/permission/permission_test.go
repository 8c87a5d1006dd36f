package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CheckAndRequest(t *testing.T) {
	ctx := context.Background()
	var requested []Kind
	r := NewRegistry(func(k Kind) { requested = append(requested, k) })

	status, err := r.Check(ctx, KindLocation)
	require.NoError(t, err)
	assert.Equal(t, StatusUndetermined, status)

	r.Set(KindLocation, true)
	status, err = r.Request(ctx, KindLocation)
	require.NoError(t, err)
	assert.Equal(t, StatusGranted, status)
	assert.Equal(t, []Kind{KindLocation}, requested)

	r.Set(KindLocation, false)
	status, _ = r.Check(ctx, KindLocation)
	assert.Equal(t, StatusDenied, status)
}

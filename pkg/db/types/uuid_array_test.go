package dbtypes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDArrayRoundTripsPostgresLiteral(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	arr := NewUUIDArray(a, b, a)
	require.Len(t, arr, 2)

	value, err := arr.Value()
	require.NoError(t, err)

	var scanned UUIDArray
	require.NoError(t, scanned.Scan([]byte(value.(string))))
	assert.Equal(t, arr, scanned)
	assert.True(t, scanned.Contains(b))
	assert.False(t, scanned.Contains(uuid.New()))
}

func TestUUIDArrayScanEdgeCases(t *testing.T) {
	var arr UUIDArray
	require.NoError(t, arr.Scan(nil))
	assert.Empty(t, arr)

	require.NoError(t, arr.Scan("{}"))
	assert.Empty(t, arr)

	assert.Error(t, arr.Scan("{not-a-uuid}"))
	assert.Error(t, arr.Scan(42))
}

package composables

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestUseLogger(t *testing.T) {
	_, ok := UseLogger(context.Background())
	require.False(t, ok)

	entry := logrus.NewEntry(logrus.New()).WithField("entity_code", "1000001")
	got, ok := UseLogger(WithLogger(context.Background(), entry))
	require.True(t, ok)
	require.Equal(t, "1000001", got.Data["entity_code"])
}

func TestUseRequestID(t *testing.T) {
	require.Equal(t, "req-1", UseRequestID(WithRequestID(context.Background(), "req-1")))

	generated := UseRequestID(context.Background())
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
}

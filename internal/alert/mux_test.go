package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMuxFansOutToAllTransports(t *testing.T) {
	t.Parallel()

	a := NewMemory()
	b := NewMemory()
	mux := NewMux(zap.NewNop(), a, b)

	require.NoError(t, mux.Send(context.Background(), "hello"))

	assert.Equal(t, []string{"hello"}, a.Messages())
	assert.Equal(t, []string{"hello"}, b.Messages())
	assert.Equal(t, 2, mux.Len())
}

func TestMuxSwallowsTransportFailures(t *testing.T) {
	t.Parallel()

	broken := NewMemory()
	broken.FailWith = errors.New("bot token revoked")
	healthy := NewMemory()
	mux := NewMux(zap.NewNop(), broken, healthy)

	require.NoError(t, mux.Send(context.Background(), "still delivered"), "a broken transport must not surface an error")
	assert.Empty(t, broken.Messages())
	assert.Equal(t, []string{"still delivered"}, healthy.Messages())
}

func TestPubSubRequiresProjectAndTopic(t *testing.T) {
	t.Parallel()

	_, err := NewPubSub(context.Background(), "", "alerts")
	require.Error(t, err)

	_, err = NewPubSub(context.Background(), "project", "")
	require.Error(t, err)
}

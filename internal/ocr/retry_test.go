package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arigen-tech/docsearch/pkg/logger"
)

type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) ExtractText(ctx context.Context, data []byte) (string, float64, error) {
	c.calls++
	if c.calls <= c.failures {
		return "", 0, errors.New("engine hiccup")
	}
	return "recognized text", 0.92, nil
}

func TestRetryingRecovers(t *testing.T) {
	client := &flakyClient{failures: 2}
	r := WithRetries(client, 2, logger.NewTestLogger())

	text, confidence, err := r.ExtractText(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "recognized text", text)
	assert.InDelta(t, 0.92, confidence, 1e-9)
	assert.Equal(t, 3, client.calls)
}

func TestRetryingExhausts(t *testing.T) {
	client := &flakyClient{failures: 10}
	r := WithRetries(client, 2, logger.NewTestLogger())

	_, _, err := r.ExtractText(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Equal(t, 3, client.calls, "one initial try plus two retries")
}

func TestRetryingStopsOnCancel(t *testing.T) {
	client := &flakyClient{failures: 10}
	r := WithRetries(client, 5, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.ExtractText(ctx, []byte("img"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.calls)
}

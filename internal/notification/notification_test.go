package notification

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.Send(context.Background(), Message{
		Kind:        KindTransferReceived,
		Destination: "user-1",
		Body:        "You received 10.00",
	}))
	assert.Contains(t, buf.String(), `"kind":"transfer_received"`)
	assert.Contains(t, buf.String(), `"destination":"user-1"`)

	var nilNotifier *LoggerNotifier
	assert.NoError(t, nilNotifier.Send(context.Background(), Message{}))
}

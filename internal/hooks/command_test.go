package hooks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soyeahso/attachkit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandHandler_ReceivesPayload(t *testing.T) {
	out := filepath.Join(t.TempDir(), "event.json")
	h := CommandHandler("cat > "+out+"; echo $ATTACHKIT_EVENT >> "+out+".name", time.Second)

	err := h(context.Background(), Payload{
		Event: EventPayloadEmitted,
		Data:  map[string]any{"image": "https://storage/x/a.jpg"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var p Payload
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, EventPayloadEmitted, p.Event)
	assert.Equal(t, "https://storage/x/a.jpg", p.Data["image"])

	name, err := os.ReadFile(out + ".name")
	require.NoError(t, err)
	assert.Equal(t, "payload_emitted\n", string(name))
}

func TestCommandHandler_Failure(t *testing.T) {
	h := CommandHandler("echo broken >&2; exit 3", time.Second)

	err := h(context.Background(), Payload{Event: EventFlowFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestCommandHandler_Timeout(t *testing.T) {
	h := CommandHandler("exec sleep 5", 50*time.Millisecond)

	start := time.Now()
	err := h(context.Background(), Payload{Event: EventUploadStarted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRegisterCommands(t *testing.T) {
	m := testManager()

	n := m.RegisterCommands(config.HooksConfig{
		PayloadEmitted: []config.HookEntry{{Command: "true"}, {Command: "  "}},
		FlowFailed:     []config.HookEntry{{Command: "true", Timeout: 500}},
		GatewayStop:    []config.HookEntry{{Command: "true"}},
	})

	assert.Equal(t, 3, n)
	assert.Equal(t, 1, m.Count(EventPayloadEmitted))
	assert.Equal(t, 1, m.Count(EventFlowFailed))
	assert.Equal(t, 1, m.Count(EventGatewayStop))
	assert.Zero(t, m.Count(EventUploadCompleted))
}

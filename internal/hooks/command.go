package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/soyeahso/attachkit/internal/config"
)

const defaultCommandTimeout = 10 * time.Second

// CommandHandler returns a handler that runs command through "sh -c" with the
// event payload as JSON on stdin. ATTACHKIT_EVENT holds the event name.
func CommandHandler(command string, timeout time.Duration) Handler {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return func(ctx context.Context, p Payload) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		input, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding hook payload: %w", err)
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = bytes.NewReader(input)
		cmd.Env = append(os.Environ(), "ATTACHKIT_EVENT="+p.Event)
		cmd.WaitDelay = time.Second

		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("hook command timed out after %s", timeout)
			}
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return fmt.Errorf("hook command failed: %w: %s", err, msg)
			}
			return fmt.Errorf("hook command failed: %w", err)
		}
		return nil
	}
}

// RegisterCommands registers every configured shell hook. It returns the
// number of hooks registered.
func (m *Manager) RegisterCommands(cfg config.HooksConfig) int {
	byEvent := map[string][]config.HookEntry{
		EventPermissionDenied: cfg.PermissionDenied,
		EventPickerCancelled:  cfg.PickerCancelled,
		EventUploadStarted:    cfg.UploadStarted,
		EventUploadCompleted:  cfg.UploadCompleted,
		EventPayloadEmitted:   cfg.PayloadEmitted,
		EventFlowFailed:       cfg.FlowFailed,
		EventGatewayStart:     cfg.GatewayStart,
		EventGatewayStop:      cfg.GatewayStop,
	}

	n := 0
	for _, event := range AllEvents {
		for i, entry := range byEvent[event] {
			if strings.TrimSpace(entry.Command) == "" {
				continue
			}
			timeout := time.Duration(entry.Timeout) * time.Millisecond
			m.On(event, fmt.Sprintf("command:%d", i), CommandHandler(entry.Command, timeout))
			n++
		}
	}
	return n
}

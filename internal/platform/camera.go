package platform

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/logging"
)

// OutputPlaceholder is replaced with the capture path in camera commands.
const OutputPlaceholder = "{output}"

// CommandCamera captures photos by running a shell command such as
// "fswebcam --no-banner {output}". A command that exits 0 without writing
// the file is treated as a cancel.
type CommandCamera struct {
	command string
	dir     string
	log     *logging.Logger
	now     func() time.Time
}

// NewCommandCamera creates a camera writing captures into dir.
func NewCommandCamera(command, dir string, log *logging.Logger) *CommandCamera {
	return &CommandCamera{
		command: command,
		dir:     dir,
		log:     log.Sub("camera"),
		now:     time.Now,
	}
}

// Capture runs the capture command and returns the captured file.
func (c *CommandCamera) Capture(ctx context.Context, _ domain.PickOptions) (domain.PickResult, error) {
	if strings.TrimSpace(c.command) == "" {
		return domain.PickResult{}, fmt.Errorf("%w: platform.cameraCommand is not set", domain.ErrUnavailable)
	}
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return domain.PickResult{}, fmt.Errorf("creating capture directory: %w", err)
	}

	out := filepath.Join(c.dir, "photo-"+c.now().Format("20060102-150405.000")+".jpg")
	command := c.command
	if strings.Contains(command, OutputPlaceholder) {
		command = strings.ReplaceAll(command, OutputPlaceholder, shellQuote(out))
	} else {
		command += " " + shellQuote(out)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.log.Debug().Str("command", command).Msg("capturing photo")
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return domain.PickResult{}, fmt.Errorf("camera command failed: %w: %s", err, msg)
		}
		return domain.PickResult{}, fmt.Errorf("camera command failed: %w", err)
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		os.Remove(out)
		return domain.PickResult{Cancelled: true}, nil
	}
	return domain.PickResult{URI: FileURI(out)}, nil
}

// Release removes a capture once it has been uploaded. References outside
// the capture directory are left alone.
func (c *CommandCamera) Release(uri string) error {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return nil
	}
	path := filepath.Clean(filepath.FromSlash(u.Path))
	dir, err := filepath.Abs(c.dir)
	if err != nil || filepath.Dir(path) != dir {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing capture: %w", err)
	}
	c.log.Debug().Str("path", path).Msg("capture released")
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

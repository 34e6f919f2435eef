package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/soyeahso/attachkit/internal/blob"
	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/gateway"
	"github.com/spf13/cobra"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the attachkit gateway server",
	}

	cmd.AddCommand(newGatewayRunCmd())
	cmd.AddCommand(newGatewayCallCmd())
	return cmd
}

// gatewayBase is the scheme and authority a local client reaches the gateway
// at. secure and plain are the schemes with and without TLS.
func gatewayBase(cfg config.GatewayConfig, plain, secure string) string {
	scheme := plain
	if cfg.TLS.Enabled {
		scheme = secure
	}
	host := "127.0.0.1"
	if cfg.Bind == "custom" && cfg.CustomBindHost != "" {
		host = cfg.CustomBindHost
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, cfg.Port)
}

// mediaBaseURL is where the gateway serves the disk store.
func mediaBaseURL(cfg config.GatewayConfig) string {
	return gatewayBase(cfg, "http", "https") + "/media"
}

// gatewayWSURL is the WebSocket endpoint of the gateway.
func gatewayWSURL(cfg config.GatewayConfig) string {
	return gatewayBase(cfg, "ws", "wss") + "/ws"
}

func newGatewayRunCmd() *cobra.Command {
	var (
		port    int
		bind    string
		deliver bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			configure := func(cfg *config.Config) {
				if port != 0 {
					cfg.Gateway.Port = port
				}
				if bind != "" {
					cfg.Gateway.Bind = bind
				}
				if cfg.Storage.Backend == "disk" && cfg.Storage.Disk.BaseURL == "" {
					cfg.Storage.Disk.BaseURL = mediaBaseURL(cfg.Gateway)
				}
			}

			a, err := newApp(ctx, appOptions{channels: deliver, configure: configure})
			if err != nil {
				return err
			}
			defer a.Close()

			// Load raw config for RPC access
			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				raw = make(map[string]any)
			}

			opts := []gateway.ServerOption{
				gateway.WithConfigRaw(raw),
				gateway.WithHooks(a.hooks),
				gateway.WithChannels(a.channels),
				// Requests carry the image reference and cannot prompt, so
				// "ask" scopes use remembered answers only.
				gateway.WithControls(a.control),
				gateway.WithOutbox(a.outbox),
				gateway.WithUploads(a.uploads),
			}
			if disk, ok := a.blobs.(*blob.DiskStore); ok {
				opts = append(opts, gateway.WithMedia(disk))
			}

			srv := gateway.New(a.cfg, a.log, opts...)
			a.router.SetPublisher(srv)

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().BoolVar(&deliver, "deliver", false, "also deliver payloads to configured chat channels")

	return cmd
}

// callTimeout covers an actions.run round trip including its upload.
const callTimeout = 3 * time.Minute

func newGatewayCallCmd() *cobra.Command {
	var (
		url      string
		token    string
		password string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "call <method> [params-json]",
		Short: "Call an RPC method on a running gateway",
		Example: `  attachkit gateway call health
  attachkit gateway call uploads.list '{"limit":5}'
  attachkit gateway call actions.run '{"choice":"library","uri":"file:///home/me/Pictures/cat.jpg"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			params, err := callParams(args[1:])
			if err != nil {
				return err
			}
			if url == "" {
				url = gatewayWSURL(cfg.Gateway)
			}
			auth := &gateway.ConnectAuth{Token: cfg.Gateway.Auth.Token, Password: cfg.Gateway.Auth.Password}
			if token != "" {
				auth.Token = token
			}
			if password != "" {
				auth.Password = password
			}

			ctx, stop := signalContext()
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			conn, err := gateway.Dial(ctx, url, gateway.DialOptions{Auth: auth})
			if err != nil {
				return err
			}
			defer conn.Close()

			raw, err := conn.Call(ctx, args[0], params)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), raw)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "gateway WebSocket URL (default from config)")
	cmd.Flags().StringVar(&token, "token", "", "auth token (default gateway.auth.token)")
	cmd.Flags().StringVar(&password, "password", "", "auth password (default gateway.auth.password)")
	cmd.Flags().DurationVar(&timeout, "timeout", callTimeout, "overall call timeout")

	return cmd
}

// callParams parses the optional JSON params argument.
func callParams(args []string) (any, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	if !json.Valid([]byte(args[0])) {
		return nil, fmt.Errorf("params must be valid JSON: %s", args[0])
	}
	return json.RawMessage(args[0]), nil
}

func writeIndented(w io.Writer, raw json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		_, err = w.Write(raw)
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

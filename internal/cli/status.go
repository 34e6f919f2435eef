package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/store"
	"github.com/soyeahso/attachkit/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show attachkit status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("attachkit %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Media:   %s\n", paths.Media)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}
			paths.ApplyTo(&cfg)

			fmt.Printf("Gateway: port=%d bind=%s auth=%s\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Auth.Mode)

			st := cfg.Storage
			switch st.Backend {
			case "s3", "spaces":
				fmt.Printf("Storage: backend=%s bucket=%s naming=%s\n", st.Backend, st.S3.Bucket, st.Naming)
			case "firebase":
				fmt.Printf("Storage: backend=firebase bucket=%s naming=%s\n", st.Firebase.Bucket, st.Naming)
			default:
				fmt.Printf("Storage: backend=disk dir=%s naming=%s\n", st.Disk.Dir, st.Naming)
			}

			fmt.Printf("Perms:   library=%s camera=%s location=%s\n",
				cfg.Permissions.MediaLibrary, cfg.Permissions.Camera, cfg.Permissions.Location)

			camera := cfg.Platform.CameraCommand
			if camera == "" {
				camera = "(not configured)"
			}
			fmt.Printf("Library: %s\n", cfg.Platform.LibraryDir)
			fmt.Printf("Camera:  %s\n", camera)
			fmt.Printf("Locator: %s\n", cfg.Platform.Locator.Mode)

			if cfg.Channels.IRC != nil {
				irc := cfg.Channels.IRC
				fmt.Printf("IRC:     server=%s nick=%s channels=%s tls=%v\n",
					irc.Server, irc.Nick, strings.Join(irc.Channels, ","), irc.UseTLS)
			} else {
				fmt.Println("IRC:     (not configured)")
			}

			if db, err := store.Open(cfg.Store.Path, log); err == nil {
				if n, err := store.NewOutboxStore(db).Count(context.Background()); err == nil {
					fmt.Printf("Outbox:  %d payload(s) sent\n", n)
				}
				db.Close()
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

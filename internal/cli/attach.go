package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/soyeahso/attachkit/internal/actions"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/platform"
	"github.com/spf13/cobra"
)

// channelWait bounds how long flows wait for chat channels to connect.
const channelWait = 15 * time.Second

type attachFlags struct {
	deliver bool
	file    string
}

func (f *attachFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.deliver, "deliver", false, "also deliver the payload to configured chat channels")
}

// runFlow opens the app, runs one flow and prints its result as JSON.
func runFlow(flags attachFlags, run func(ctx context.Context, a *app) actions.Result) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, appOptions{interactive: true, channels: flags.deliver})
	if err != nil {
		return err
	}
	defer a.Close()
	a.waitChannels(ctx, channelWait)

	res := run(ctx, a)
	if err := printResult(res); err != nil {
		return err
	}
	if res.Outcome == actions.Failed {
		return fmt.Errorf("%s failed: %w", res.Choice, res.Err)
	}
	return nil
}

func printResult(res actions.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func newAttachCmd() *cobra.Command {
	var flags attachFlags
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Show the attach action sheet and run the chosen action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(flags, func(ctx context.Context, a *app) actions.Result {
				return a.control(nil).Press(ctx)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newPickCmd() *cobra.Command {
	var flags attachFlags
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick an image from the library and send it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(flags, func(ctx context.Context, a *app) actions.Result {
				var picker domain.ImagePicker
				if flags.file != "" {
					picker = platform.StaticPicker{URI: platform.FileURI(flags.file)}
				}
				return a.control(picker).PickImage(ctx)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.file, "file", "", "pick this file instead of choosing from the library")
	return cmd
}

func newPhotoCmd() *cobra.Command {
	var flags attachFlags
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Take a picture with the camera command and send it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(flags, func(ctx context.Context, a *app) actions.Result {
				return a.control(nil).TakePhoto(ctx)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newLocateCmd() *cobra.Command {
	var flags attachFlags
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Send the current location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(flags, func(ctx context.Context, a *app) actions.Result {
				return a.control(nil).GetLocation(ctx)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <uri>",
		Short: "Upload a file or URL to the configured storage and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ref := args[0]
			if !strings.Contains(ref, "://") {
				ref = platform.FileURI(ref)
			}
			up, err := a.uploader.Upload(ctx, ref)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(up)
		},
	}
}

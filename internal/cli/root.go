package cli

import (
	"github.com/soyeahso/attachkit/internal/config"
	"github.com/soyeahso/attachkit/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachkit",
		Short: "Attach images and locations to chat messages",
		Long: "attachkit picks an image from a library or camera, or reads the current location,\n" +
			"uploads images to blob storage and hands one message payload to the chat.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.attachkit/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAttachCmd())
	cmd.AddCommand(newPickCmd())
	cmd.AddCommand(newPhotoCmd())
	cmd.AddCommand(newLocateCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newOutboxCmd())
	cmd.AddCommand(newUploadsCmd())
	cmd.AddCommand(newPermissionsCmd())
	cmd.AddCommand(newGatewayCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

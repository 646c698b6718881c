package cmd

import (
	"github.com/spf13/cobra"

	"acfgen/internal/logger"
	"acfgen/internal/pipeline"
	"acfgen/internal/provisioner"
)

// newProvisionCmd installs the generator without running it.
func newProvisionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Download SKSAppManifestGenerator if it is not installed and print its path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			path, err := provisioner.New(cfg, pipeline.NewRetriever(cfg)).Provision(cmd.Context())
			if err != nil {
				return err
			}
			logger.Plain("%s\n", path)
			return nil
		},
	}
}

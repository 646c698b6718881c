package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"acfgen/internal/appid"
	"acfgen/internal/config"
	"acfgen/internal/pipeline"
	"acfgen/internal/verifier"
)

// newVerifyCmd reports which App IDs already have a manifest under the working
// directory. It exits nonzero when any id is missing.
func newVerifyCmd(opts *options) *cobra.Command {
	var rawIDs string

	cmd := &cobra.Command{
		Use:   "verify [app ids...]",
		Short: "Check the working directory for generated ACF files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			ids := appid.Normalize(strings.Join(append([]string{rawIDs}, args...), " "))
			if len(ids) == 0 {
				return pipeline.ErrNoIdentifiers
			}
			wd, err := config.ResolveWorkingDir(cfg.WorkingDir)
			if err != nil {
				return err
			}

			rep := verifier.Verify(wd, ids)
			rep.Log()
			if !rep.Complete() {
				return reportedError{errors.New(rep.Summary())}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&rawIDs, "app-ids", "a", "", "App IDs to look for")
	return cmd
}

package stxgen

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/manifest-network/stxgen/internal/utils"
)

func newWorkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workdir",
		Short:   "Create an isolated scratch directory and print it with its replay log path",
		Args:    cobra.NoArgs,
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workingDir, tsvPath, err := utils.CreateTmpWorkingDir(viper.GetString("tmp-base"), newRandomSource())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), workingDir)
			fmt.Fprintln(cmd.OutOrStdout(), tsvPath)
			return nil
		},
	}

	cmd.Flags().String("tmp-base", utils.DefaultWorkingDirBase, "Base directory of scratch directories")

	return cmd
}

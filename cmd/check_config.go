package cmd

import (
	"fmt"

	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/spf13/cobra"
)

var checkConfigCMD = &cobra.Command{
	Use:    "check-config",
	Short:  "check-config",
	Long:   `load and validate the config file, then exit`,
	Args:   gcmd.NoExtraArgs,
	PreRun: preRunInitialize,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("config ok")
	},
}

func init() {
	rootCMD.AddCommand(checkConfigCMD)
}

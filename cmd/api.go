package cmd

import (
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-forum/internal/global"
	"github.com/Laisky/laisky-forum/internal/web"
)

var apiCMD = &cobra.Command{
	Use:    "api",
	Short:  "api",
	Long:   `http API service of the forum`,
	Args:   gcmd.NoExtraArgs,
	PreRun: preRunInitialize,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		global.SetupDB(ctx)
		defer global.CloseDB(ctx)
		global.SetupServices(ctx)

		web.RunServer(gconfig.Shared.GetString("listen"))
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

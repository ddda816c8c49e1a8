package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
	mongoLib "go.mongodb.org/mongo-driver/mongo"

	"github.com/Laisky/laisky-forum/internal/global"
	"github.com/Laisky/laisky-forum/internal/web/albums"
	"github.com/Laisky/laisky-forum/internal/web/dialogs"
	"github.com/Laisky/laisky-forum/internal/web/usergroups"
	"github.com/Laisky/laisky-forum/internal/web/users"
	"github.com/Laisky/laisky-forum/library/log"
)

var migrateCMD = &cobra.Command{
	Use:    "migrate",
	Short:  "migrate",
	Long:   `create indexes, the files bucket and the protected usergroups`,
	Args:   gcmd.NoExtraArgs,
	PreRun: preRunInitialize,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		global.SetupDB(ctx)
		defer global.CloseDB(ctx)

		if err := migrate(ctx, gconfig.Shared.GetBool("dry")); err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}
	},
}

func migrate(ctx context.Context, dry bool) error {
	for _, indexes := range []map[string][]mongoLib.IndexModel{
		users.Indexes(),
		dialogs.Indexes(),
		albums.Indexes(),
		usergroups.Indexes(),
	} {
		for col, models := range indexes {
			log.Logger.Info("ensure indexes", zap.String("col", col), zap.Int("n", len(models)))
			if dry {
				continue
			}

			if err := global.ForumDB.EnsureIndexes(ctx, col, models); err != nil {
				return errors.Wrapf(err, "ensure indexes of %q", col)
			}
		}
	}

	if dry {
		return nil
	}

	if err := global.Files.EnsureBucket(ctx); err != nil {
		return errors.Wrap(err, "ensure files bucket")
	}

	global.SetupUsergroups()
	if err := global.UsergroupsSvc.Seed(ctx); err != nil {
		return errors.Wrap(err, "seed usergroups")
	}

	return nil
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-forum/internal/library/imaging"
	"github.com/Laisky/laisky-forum/internal/library/uploads"
	"github.com/Laisky/laisky-forum/internal/uploader"
	"github.com/Laisky/laisky-forum/library/log"
)

var uploadCMD = &cobra.Command{
	Use:   "upload FILE...",
	Short: "upload",
	Long:  `upload local files into the default album of the token owner`,
	Args:  cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		if err := gconfig.Shared.BindPFlags(cmd.Flags()); err != nil {
			log.Logger.Panic("bind pflags", zap.Error(err))
		}
		setupLogger(cmd.Context())
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runUpload(cmd.Context(), args); err != nil {
			log.Logger.Panic("upload", zap.Error(err))
		}
	},
}

// imageResizer adapts imaging.Processor to uploader.Resizer
type imageResizer struct {
	processor *imaging.Processor
}

func (r *imageResizer) Resize(ctx context.Context, srcPath, dstPath string, opts uploads.ResizeOptions) error {
	info, err := r.processor.Identify(ctx, srcPath)
	if err != nil {
		return errors.Wrap(err, "identify")
	}

	_, err = r.processor.Resize(ctx, srcPath, dstPath, info, opts)
	return err
}

// confirmOnStdin asks a yes/no question on the terminal, only `y` means yes
func confirmOnStdin(ctx context.Context, question string) error {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a := <-answer:
		if a != "y" && a != "yes" {
			return errors.New("no")
		}
		return nil
	}
}

func runUpload(ctx context.Context, paths []string) error {
	opt := uploader.Options{
		BaseURL: gconfig.Shared.GetString("server"),
		Token:   gconfig.Shared.GetString("token"),
		Limit:   gconfig.Shared.GetInt("limit"),
		Notify: func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		},
		Confirm: confirmOnStdin,
		Progress: func(ev uploader.Event) {
			log.Logger.Debug("upload progress",
				zap.String("file", ev.Name),
				zap.String("status", ev.Status),
				zap.Int("percent", ev.Percent))
		},
	}

	if processor, err := imaging.Detect(ctx); err != nil {
		log.Logger.Warn("no image processor, send images as is", zap.Error(err))
	} else {
		opt.Resizer = &imageResizer{processor: processor}
	}

	up, err := uploader.New(opt)
	if err != nil {
		return errors.Wrap(err, "new uploader")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if err := up.Close(ctx); err != nil {
				log.Logger.Info("continue uploading", zap.Error(err))
			}
		}
	}()

	files := make([]uploader.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, uploader.File{Path: p})
	}

	medias, err := up.Add(ctx, files)
	for _, m := range medias {
		fmt.Printf("%s\t%s\t%d\n", m.ID, m.FileName, m.FileSize)
	}
	if errors.Is(err, uploader.ErrAborted) {
		log.Logger.Warn("upload aborted", zap.Int("uploaded", len(medias)))
		return nil
	}

	return err
}

func init() {
	uploadCMD.Flags().String("server", "http://localhost:8080", "forum base url")
	uploadCMD.Flags().String("token", "", "access token of the uploading user")
	uploadCMD.Flags().Int("limit", 4, "files uploaded in parallel")
	rootCMD.AddCommand(uploadCMD)
}

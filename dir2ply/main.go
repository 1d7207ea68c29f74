package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"text2ply/pkg/convert"
	"text2ply/pkg/logging"
)

var cfg struct {
	in       string
	out      string
	opts     convert.Options
	logLevel string
}

var cmd = &cobra.Command{
	Use:          "dir2ply",
	Short:        "Convert every point cloud of a directory or zip archive to PLY",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg.opts.Log, err = logging.New(cfg.logLevel, os.Stderr)
		if err != nil {
			return err
		}
		if strings.HasSuffix(cfg.in, ".zip") {
			return convertZip(cmd.Context())
		}
		return convertDir(cmd.Context())
	},
}

func init() {
	fs := cmd.PersistentFlags()
	fs.StringVarP(&cfg.in, "in", "i", "", "input zip file or dir")
	fs.StringVarP(&cfg.out, "out", "o", "", "output zip file or dir")
	cfg.opts.BindFlags(fs)
	fs.StringVar(&cfg.logLevel, "log_level", "info", "debug, info, warn or error")

	cmd.MarkPersistentFlagRequired("in")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func convertDir(ctx context.Context) error {
	if cfg.out == "" {
		cfg.out = cfg.in
	}
	n, err := convert.ConvertDir(ctx, cfg.in, cfg.out, cfg.opts)
	fmt.Printf("%s => %s: %d files converted\n", cfg.in, cfg.out, n)
	return err
}

func convertZip(ctx context.Context) error {
	if cfg.out == "" {
		ext := filepath.Ext(cfg.in)
		cfg.out = strings.TrimSuffix(cfg.in, ext) + "-ply" + ext
	}
	n, err := convert.ConvertZip(ctx, cfg.in, cfg.out, cfg.opts)
	fmt.Printf("%s => %s: %d entries converted\n", cfg.in, cfg.out, n)
	return err
}

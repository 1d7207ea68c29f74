package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"text2ply/pkg/convert"
	"text2ply/pkg/logging"
)

var cfg struct {
	opts       convert.Options
	profile    bool
	profileOut string
	logLevel   string
}

var cmd = &cobra.Command{
	Use:          "text2ply",
	Short:        "Convert a PTS, XYZ, PCD or KITTI bin point cloud to PLY",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg.profile {
			stop, err := startProfile(cfg.profileOut)
			if err != nil {
				return err
			}
			defer stop()
		}
		return run(cmd.Context())
	},
}

func init() {
	fs := cmd.PersistentFlags()
	fs.StringVarP(&cfg.opts.Input, "input_file", "i", "", "input .pts, .xyz, .pcd or .bin file")
	fs.StringVarP(&cfg.opts.Output, "output_file", "o", "", "output ply file")
	fs.StringVar(&cfg.opts.Dialect, "dialect", "", "input dialect, detected from the extension when empty")
	cfg.opts.BindFlags(fs)
	fs.BoolVarP(&cfg.profile, "profile", "p", false, "write a cpu profile")
	fs.StringVar(&cfg.profileOut, "profile_out", "text2ply.pprof", "cpu profile path")
	fs.StringVar(&cfg.logLevel, "log_level", "info", "debug, info, warn or error")

	cmd.MarkPersistentFlagRequired("input_file")
	cmd.MarkPersistentFlagRequired("output_file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) (err error) {
	cfg.opts.Log, err = logging.New(cfg.logLevel, os.Stderr)
	if err != nil {
		return err
	}
	st, err := convert.Convert(ctx, cfg.opts)
	if err != nil {
		return err
	}
	fmt.Printf("Conversion completed in %.3f seconds (%d vertices)\n", st.Elapsed.Seconds(), st.Vertices)
	return nil
}

func startProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

// Package main provides the CLI entry point for godec.
package main

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ugparu/godec"
	"github.com/ugparu/godec/decoder"
	"github.com/ugparu/godec/engine/openh264"
	"github.com/ugparu/godec/frame/yuv"
	"github.com/ugparu/godec/reader"
	"github.com/ugparu/godec/utils/logger"
)

// fileConfig mirrors the CLI flags that make sense to pin in a YAML
// file checked alongside test assets.
type fileConfig struct {
	TargetLayer  *int   `yaml:"target_layer"`
	Concealment  string `yaml:"concealment"`
	Bitstream    string `yaml:"bitstream"`
	SnapshotDir  string `yaml:"snapshot_dir"`
	SnapshotSize int    `yaml:"snapshot_size"`
}

func main() {
	app := &cli.App{
		Name:      "godec",
		Usage:     "decode an H.264 elementary stream into raw pictures",
		ArgsUsage: "<input.h264|input.mp4>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "trace, debug, info, warning or error",
			},
			&cli.StringFlag{
				Name:  "snapshot-dir",
				Usage: "write one JPEG per decoded picture into this directory",
			},
			&cli.IntFlag{
				Name:  "snapshot-size",
				Usage: "bound snapshot dimensions in pixels (0 = full size)",
			},
			&cli.DurationFlag{
				Name:  "deadline",
				Usage: "wall-clock budget for the whole stream (0 = unbounded)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "godec:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	lvl, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logger.Init(lvl)

	if c.NArg() != 1 {
		return cli.Exit("expected exactly one input file", 2)
	}

	var fc fileConfig
	if path := c.String("config"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	if c.IsSet("snapshot-dir") {
		fc.SnapshotDir = c.String("snapshot-dir")
	}
	if c.IsSet("snapshot-size") {
		fc.SnapshotSize = c.Int("snapshot-size")
	}

	cfg, err := sessionConfig(&fc)
	if err != nil {
		return err
	}

	stream, err := reader.ReadSource(c.Args().First())
	if err != nil {
		return err
	}

	var opts []decoder.Option
	if d := c.Duration("deadline"); d > 0 {
		opts = append(opts, decoder.WithDeadline(d))
	}

	if fc.SnapshotDir != "" {
		if err := os.MkdirAll(fc.SnapshotDir, 0o755); err != nil {
			return err
		}
	}

	n := 0
	onPicture := func(pic *godec.Picture) {
		n++
		fmt.Printf("picture %d: %dx%d ok\n", n, pic.Width, pic.Height)
		if fc.SnapshotDir == "" {
			return
		}
		if err := writeSnapshot(fc.SnapshotDir, n, pic, fc.SnapshotSize); err != nil {
			logger.Warningf("SNAPSHOT", "Failed to write picture %d: %v", n, err)
		}
	}

	dec := decoder.New(cfg, openh264.New, opts...)
	res, err := dec.Decode(stream, onPicture)
	if err != nil {
		return err
	}

	fmt.Printf("%d pictures, %d units, %d errors\n", res.Pictures, res.Submissions, res.DecodeErrors)
	if res.Truncated {
		fmt.Println("warning: stream ends with a truncated unit")
	}
	return nil
}

// sessionConfig maps the file/flag values onto engine parameters,
// falling back to the defaults for anything unset.
func sessionConfig(fc *fileConfig) (godec.Config, error) {
	cfg := godec.DefaultConfig()

	if fc.TargetLayer != nil {
		cfg.TargetLayer = uint8(*fc.TargetLayer)
	}

	switch fc.Concealment {
	case "", "slice-copy":
		cfg.Concealment = godec.ConcealSliceCopy
	case "frame-copy":
		cfg.Concealment = godec.ConcealFrameCopy
	case "disable":
		cfg.Concealment = godec.ConcealDisable
	default:
		return cfg, fmt.Errorf("unknown concealment mode %q", fc.Concealment)
	}

	switch fc.Bitstream {
	case "", "default":
		cfg.Bitstream = godec.BitstreamDefault
	case "avc":
		cfg.Bitstream = godec.BitstreamAVC
	case "svc":
		cfg.Bitstream = godec.BitstreamSVC
	default:
		return cfg, fmt.Errorf("unknown bitstream type %q", fc.Bitstream)
	}

	return cfg, nil
}

func writeSnapshot(dir string, n int, pic *godec.Picture, maxDim int) error {
	img := yuv.FromPicture(pic)

	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("picture_%05d.jpg", n)))
	if err != nil {
		return err
	}
	defer f.Close()

	if maxDim > 0 {
		return jpeg.Encode(f, yuv.Thumbnail(img, maxDim, maxDim), nil)
	}
	return jpeg.Encode(f, img, nil)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fastpack/internal/bundler"
	"github.com/standardbeagle/fastpack/internal/config"
	"github.com/standardbeagle/fastpack/internal/debug"
	"github.com/standardbeagle/fastpack/internal/version"
	"github.com/standardbeagle/fastpack/internal/watcher"
)

// loadOptionsWithOverrides loads the project config and applies CLI
// flag overrides on top.
func loadOptionsWithOverrides(c *cli.Context) (config.Options, error) {
	root := c.String("root")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.Options{}, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
	}

	opts, err := config.Load(root)
	if err != nil {
		return config.Options{}, err
	}
	if opts.Cwd == "" {
		opts.Cwd = root
	}

	if inputs := c.Args().Slice(); len(inputs) > 0 {
		opts.Input = inputs
	}
	if inputs := c.StringSlice("input"); len(inputs) > 0 {
		opts.Input = inputs
	}
	if outDir := c.String("outdir"); outDir != "" {
		opts.OutDir = outDir
	}
	if format := c.String("format"); format != "" {
		opts.Format = config.OutputFormat(format)
	}
	if platform := c.String("platform"); platform != "" {
		opts.Platform = config.Platform(platform)
	}
	if externals := c.StringSlice("external"); len(externals) > 0 {
		opts.External = append(opts.External, externals...)
	}
	if name := c.String("global-name"); name != "" {
		opts.GlobalName = name
	}
	if c.Bool("watch") {
		opts.Watch = true
	}
	if c.Bool("sourcemap") {
		opts.Sourcemap = true
	}
	return opts, nil
}

func main() {
	app := &cli.App{
		Name:                   "fastpack",
		Usage:                  "Fast JavaScript bundler",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root (config lookup and path anchor)",
			},
			&cli.StringSliceFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Entry module (repeatable)",
			},
			&cli.StringFlag{
				Name:    "outdir",
				Aliases: []string{"o"},
				Usage:   "Output directory",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: esm, cjs, iife, umd",
			},
			&cli.StringFlag{
				Name:  "platform",
				Usage: "Target platform: browser, node",
			},
			&cli.StringSliceFlag{
				Name:    "external",
				Aliases: []string{"e"},
				Usage:   "External specifier glob (repeatable)",
			},
			&cli.StringFlag{
				Name:  "global-name",
				Usage: "Global variable name for iife/umd output",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Rebuild on file changes",
			},
			&cli.BoolFlag{
				Name:  "sourcemap",
				Usage: "Record sourcemap intent (reserved)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logs to a temp file",
			},
		},
		Action: runBuild,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fastpack: %v\n", err)
		os.Exit(1)
	}
}

func runBuild(c *cli.Context) error {
	if c.Bool("debug") {
		if logPath, err := debug.InitDebugLogFile(); err == nil {
			defer debug.CloseDebugLog()
			fmt.Fprintf(os.Stderr, "debug log: %s\n", logPath)
		}
	}

	opts, err := loadOptionsWithOverrides(c)
	if err != nil {
		return err
	}

	b, err := bundler.New(opts)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.Watch {
		w, err := watcher.New(b)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "watching for changes...")
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	}

	result, err := b.Write(ctx)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", warning)
	}
	for _, chunk := range result.Chunks {
		fmt.Printf("%s (%d bytes)\n", chunk.FileName, len(chunk.Code))
	}
	return nil
}

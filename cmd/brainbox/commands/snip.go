package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gasburger/BrainBox/internal/snipper"
)

var (
	flagSnipInput     string
	flagSnipOutput    string
	flagSnipSize      float64
	flagSnipRight     float64
	flagSnipOverrides string
	flagSnipNoise     bool
)

var snipCmd = &cobra.Command{
	Use:   "snip",
	Short: "Cut annotated recordings into labelled snippet files",
	Long: `Cut every annotated recording in the input directory into snippet files.

Each .wav recording is paired with a .txt annotation file listing
"tag timestamp" lines. One snippet is cut around every annotated event;
with --noise the quiet gaps between events are cut as noise snippets too.
Recordings without an annotation file are skipped.`,
	RunE: runSnip,
}

func init() {
	snipCmd.Flags().StringVar(&flagSnipInput, "input", "", "directory with recordings and annotations")
	snipCmd.Flags().StringVar(&flagSnipOutput, "output", "", "directory for the cut snippets")
	snipCmd.Flags().Float64Var(&flagSnipSize, "size", 0, "snippet length in seconds")
	snipCmd.Flags().Float64Var(&flagSnipRight, "right", 0, "share of the cut after the annotated timestamp, in [0,1]")
	snipCmd.Flags().StringVar(&flagSnipOverrides, "overrides", "", "JSON file with per-tag geometry overrides")
	snipCmd.Flags().BoolVar(&flagSnipNoise, "noise", false, "also cut inter-event gaps as noise snippets")
	rootCmd.AddCommand(snipCmd)
}

func runSnip(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg.Server.LogLevel)

	opts := snipper.Options{
		InputDir:        cfg.Snipper.InputDir,
		OutputDir:       cfg.Snipper.OutputDir,
		SnippetSize:     cfg.Snipper.SnippetSize,
		RightProportion: cfg.Snipper.RightProportion,
		Noise:           cfg.Snipper.Noise,
	}
	overridesPath := cfg.Snipper.OverridesPath

	if flagSnipInput != "" {
		opts.InputDir = flagSnipInput
	}
	if flagSnipOutput != "" {
		opts.OutputDir = flagSnipOutput
	}
	if cmd.Flags().Changed("size") {
		opts.SnippetSize = flagSnipSize
	}
	if cmd.Flags().Changed("right") {
		opts.RightProportion = flagSnipRight
	}
	if cmd.Flags().Changed("noise") {
		opts.Noise = flagSnipNoise
	}
	if flagSnipOverrides != "" {
		overridesPath = flagSnipOverrides
	}
	if opts.InputDir == "" {
		return fmt.Errorf("no input directory: set snipper.input_dir or pass --input")
	}
	if opts.OutputDir == "" {
		return fmt.Errorf("no output directory: set snipper.output_dir or pass --output")
	}

	if overridesPath != "" {
		overrides, err := snipper.LoadOverrides(overridesPath)
		if err != nil {
			return err
		}
		opts.Overrides = overrides
	}

	res, err := snipper.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	fmt.Printf("cut %d snippets from %d recordings (%d skipped)\n",
		res.Snippets, len(res.Processed), len(res.Skipped))
	for _, name := range res.Skipped {
		fmt.Printf("  skipped %s: no annotation file\n", name)
	}
	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gasburger/BrainBox/pkg/classify"
	"github.com/Gasburger/BrainBox/pkg/classify/postgres"
	"github.com/Gasburger/BrainBox/pkg/features"
)

var (
	flagTrainModel string
	flagTrainIndex bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a classifier on the snippet corpus and save the model",
	Long: `Fit the configured classifier on the full snippet corpus.

Feature vectors are extracted from every snippet under corpus.snippet_dirs
and the fitted model is written to train.model_path. With --index the
samples are also upserted into the PostgreSQL feature index so they can be
queried with pgvector nearest-neighbour search.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&flagTrainModel, "model", "", "output path for the fitted model")
	trainCmd.Flags().BoolVar(&flagTrainIndex, "index", false, "also upsert the corpus into the PostgreSQL feature index")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg.Server.LogLevel)
	ctx := cmd.Context()

	samples, err := loadCorpus(ctx, cfg)
	if err != nil {
		return err
	}

	c, err := newClassifier(cfg.Train)
	if err != nil {
		return err
	}
	if err := fit(c, samples); err != nil {
		return err
	}

	modelPath := cfg.Train.ModelPath
	if flagTrainModel != "" {
		modelPath = flagTrainModel
	}
	if err := classify.SaveFile(modelPath, c); err != nil {
		return err
	}
	fmt.Printf("fitted %s on %d samples, model saved to %s\n",
		cfg.Train.Classifier, len(samples), modelPath)

	if flagTrainIndex {
		if cfg.Postgres.DSN == "" {
			return fmt.Errorf("--index requires postgres.dsn")
		}
		ix, err := postgres.NewIndex(ctx, cfg.Postgres.DSN, features.Dim)
		if err != nil {
			return err
		}
		defer ix.Close()
		if err := ix.AddSamples(ctx, samples); err != nil {
			return err
		}
		n, err := ix.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("feature index now holds %d points\n", n)
	}
	return nil
}

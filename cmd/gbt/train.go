package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wlattner/gbt/config"
	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/grid"
	"github.com/wlattner/gbt/internal/killchip"
	"github.com/wlattner/gbt/internal/report"
	"github.com/wlattner/gbt/model"
	"github.com/wlattner/gbt/table"
	"github.com/wlattner/gbt/tangerr"
)

func newTrainCmd() *cobra.Command {
	var file, fileTrain, fileTest, target, configPath, output string
	var progress bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "train a grid of candidate models and write the winner to --output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(trainArgs{
				file: file, fileTrain: fileTrain, fileTest: fileTest,
				target: target, configPath: configPath, output: output, progress: progress,
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to a single CSV file (mutually exclusive with --file-train/--file-test)")
	cmd.Flags().StringVar(&fileTrain, "file-train", "", "path to the training CSV file")
	cmd.Flags().StringVar(&fileTest, "file-test", "", "path to the test CSV file")
	cmd.Flags().StringVar(&target, "target", "", "name of the target column (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a JSON or YAML config file")
	cmd.Flags().StringVar(&output, "output", "model.gob", "path to write the trained model")
	cmd.Flags().BoolVar(&progress, "progress", false, "print progress to stderr")

	return cmd
}

type trainArgs struct {
	file, fileTrain, fileTest, target, configPath, output string
	progress                                               bool
}

func runTrain(a trainArgs) error {
	if a.target == "" {
		return &tangerr.InputError{Msg: "--target is required"}
	}
	if a.file == "" && (a.fileTrain == "" || a.fileTest == "") {
		return &tangerr.InputError{Msg: "either --file or both --file-train and --file-test must be set"}
	}

	cfg := config.Default()
	if a.configPath != "" {
		var err error
		cfg, err = config.Load(a.configPath)
		if err != nil {
			return err
		}
	}

	var rep report.Reporter = report.Noop{}
	if a.progress {
		rep = report.NewText(os.Stderr)
	}

	kill := killchip.New()
	armInterrupt(kill)

	opt, err := loadTables(a, cfg)
	if err != nil {
		return err
	}

	ds, err := grid.Prepare(opt, cfg, rep)
	if err != nil {
		return err
	}

	tr, err := grid.NewTrainer(ds, cfg, kill, rep)
	if err != nil {
		return err
	}

	results, partial := tr.TrainGrid()
	m, err := tr.TestAndAssembleModel(results, partial)
	if err != nil {
		return err
	}

	if err := model.Save(m, a.output); err != nil {
		return errors.Wrap(err, "writing model")
	}

	logger.Info().Str("output", a.output).Str("task", taskString(m)).Msg("model written")
	return nil
}

func loadTables(a trainArgs, cfg config.Config) (grid.PrepareOptions, error) {
	if a.file != "" {
		f, err := os.Open(a.file)
		if err != nil {
			return grid.PrepareOptions{}, &tangerr.InputError{Msg: "opening --file", Err: err}
		}
		defer f.Close()
		t, err := table.LoadCSV(f)
		if err != nil {
			return grid.PrepareOptions{}, &tangerr.InputError{Msg: "parsing --file", Err: err}
		}
		if err := table.ApplyColumnTypes(t, cfg.Dataset.ColumnTypes); err != nil {
			return grid.PrepareOptions{}, &tangerr.ConfigError{Path: a.configPath, Err: err}
		}
		return grid.PrepareOptions{Combined: t, Target: a.target}, nil
	}

	trainF, err := os.Open(a.fileTrain)
	if err != nil {
		return grid.PrepareOptions{}, &tangerr.InputError{Msg: "opening --file-train", Err: err}
	}
	defer trainF.Close()
	trainTbl, err := table.LoadCSV(trainF)
	if err != nil {
		return grid.PrepareOptions{}, &tangerr.InputError{Msg: "parsing --file-train", Err: err}
	}

	testF, err := os.Open(a.fileTest)
	if err != nil {
		return grid.PrepareOptions{}, &tangerr.InputError{Msg: "opening --file-test", Err: err}
	}
	defer testF.Close()
	testTbl, err := table.LoadCSV(testF)
	if err != nil {
		return grid.PrepareOptions{}, &tangerr.InputError{Msg: "parsing --file-test", Err: err}
	}

	if len(trainTbl.Columns) != len(testTbl.Columns) {
		return grid.PrepareOptions{}, &tangerr.InputError{Msg: "train/test column count mismatch"}
	}

	if err := table.ApplyColumnTypes(trainTbl, cfg.Dataset.ColumnTypes); err != nil {
		return grid.PrepareOptions{}, &tangerr.ConfigError{Path: a.configPath, Err: err}
	}
	if err := table.ApplyColumnTypes(testTbl, cfg.Dataset.ColumnTypes); err != nil {
		return grid.PrepareOptions{}, &tangerr.ConfigError{Path: a.configPath, Err: err}
	}

	return grid.PrepareOptions{TrainTable: trainTbl, TestTable: testTbl, Target: a.target}, nil
}

func taskString(m *model.Model) string {
	switch m.Task {
	case gbt.Regression:
		return "regression"
	case gbt.BinaryClassification:
		return "binary_classification"
	default:
		return "multiclass_classification"
	}
}

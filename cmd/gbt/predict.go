package main

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/model"
	"github.com/wlattner/gbt/predict"
	"github.com/wlattner/gbt/table"
	"github.com/wlattner/gbt/tangerr"
)

func newPredictCmd() *cobra.Command {
	var modelPath, file, output string
	var contributions bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "score a CSV file against a trained model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(modelPath, file, output, contributions)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "path to a model file written by `gbt train` (required)")
	cmd.Flags().StringVar(&file, "file", "", "path to the CSV file to score (required)")
	cmd.Flags().StringVar(&output, "output", "", "path to write predictions as CSV (defaults to stdout)")
	cmd.Flags().BoolVar(&contributions, "contributions", false, "include per-feature Saabas contributions")

	return cmd
}

func runPredict(modelPath, file, output string, withContributions bool) error {
	if modelPath == "" || file == "" {
		return &tangerr.InputError{Msg: "--model and --file are required"}
	}

	m, err := model.Load(modelPath)
	if err != nil {
		return errors.Wrap(err, "loading model")
	}

	f, err := os.Open(file)
	if err != nil {
		return &tangerr.InputError{Msg: "opening --file", Err: err}
	}
	defer f.Close()

	t, err := table.LoadCSV(f)
	if err != nil {
		return &tangerr.InputError{Msg: "parsing --file", Err: err}
	}

	targetIdx := t.ColumnIndex(m.TargetName)

	w := os.Stdout
	if output != "" {
		out, err := os.Create(output)
		if err != nil {
			return errors.Wrap(err, "creating --output")
		}
		defer out.Close()
		w = out
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"prediction"}
	if withContributions {
		for c, col := range t.Columns {
			if c == targetIdx {
				continue
			}
			header = append(header, "contribution_"+col.Name)
		}
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	nFeatures := len(t.Columns)
	if targetIdx >= 0 {
		nFeatures--
	}

	for r := 0; r < t.NRows; r++ {
		row := make([]float64, 0, nFeatures)
		for c, col := range t.Columns {
			if c == targetIdx {
				continue
			}
			switch col.Kind {
			case table.KindNumber:
				row = append(row, col.Numbers[r])
			case table.KindEnum:
				row = append(row, float64(col.EnumValue(r)))
			}
		}

		record := make([]string, 0, len(header))
		if withContributions {
			out, baseline, contribs := predict.PredictWithContributions(m, row)
			record = append(record, formatPrediction(out))
			_ = baseline
			for _, c := range contribs {
				record = append(record, strconv.FormatFloat(c.Value, 'g', -1, 64))
			}
		} else {
			out := predict.Predict(m, row)
			record = append(record, formatPrediction(out))
		}

		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatPrediction(out predict.Output) string {
	if out.Task == gbt.Regression {
		return strconv.FormatFloat(out.Value, 'g', -1, 64)
	}
	return out.ClassLabel
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	screeningService "OcularBiomarker/internal/api/screening/service"
	"OcularBiomarker/pkg/explain"
	"OcularBiomarker/pkg/features"
	"OcularBiomarker/pkg/inference"
	"OcularBiomarker/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rootOptions struct {
	modelPath string
	pretty    bool
}

func (o *rootOptions) service(ctx context.Context) (screeningService.IScreeningService, error) {
	model := inference.LoadModel(ctx, inference.LoadOptions{Path: o.modelPath})
	if err := model.Err(); err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return screeningService.NewScreeningService(logger, inference.NewAdapter(model), nil, nil, utils.New(), screeningService.Options{
		Thresholds: explain.DefaultThresholds(),
	}), nil
}

func (o *rootOptions) write(w io.Writer, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if o.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// readInput reads the named file, or stdin for "-" and no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict [vector.json]",
		Short: "Score one feature vector",
		Long:  "Reads a feature vector as JSON ({\"n\",\"L_mean\",\"R_mean\",...}) from a file or stdin and prints the prediction.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var v features.Vector
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("parse feature vector: %w", err)
			}

			svc, err := opts.service(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.Predict(cmd.Context(), v)
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), result)
		},
	}
}

func newAnalyzeCSVCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-csv [session.csv]",
		Short: "Aggregate a session CSV and score it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			svc, err := opts.service(cmd.Context())
			if err != nil {
				return err
			}

			analysis, err := svc.AnalyzeCSV(cmd.Context(), data)
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), analysis)
		},
	}
}

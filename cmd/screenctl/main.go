package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "screenctl",
		Short:         "Run pupil screening predictions offline",
		Long:          "screenctl scores pupil feature vectors and session CSV exports against a local model file without starting the server.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&opts.modelPath, "model", "m", "models/pupil_centroid_model.json", "path to the centroid model file (.json or .yaml)")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(newPredictCmd(opts), newAnalyzeCSVCmd(opts))
	return root
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Refit the model on the stored dataset and redraw the plot",
	RunE:  runRetrain,
}

func runRetrain(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.openApp(cmd.Context(), nil); err != nil {
		return err
	}

	trained, err := rt.app.Retrain(cmd.Context())
	if err != nil {
		return err
	}
	if err := rt.app.RenderPlot(); err != nil {
		rt.log.Error("render plot", zap.Error(err))
	}

	snap := rt.app.Snapshot()
	if !trained {
		fmt.Fprintf(cmd.OutOrStdout(), "not enough data to train (%d rows)\n", len(snap.Observations))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "trained on %d rows: intercept=%.4f coefficients=%v\n",
		snap.Model.Samples, snap.Model.Intercept, snap.Model.Coefficients)
	return nil
}

package cli

import (
	"errors"
	"fmt"

	"carprice/ml"
	"carprice/service"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict a price from the stored model",
	Long: `Load the dataset and the model from disk and print the predicted price.

Examples:
  carprice predict --year 2018 --hand 30000`,
	RunE: runPredict,
}

var (
	predictYear int
	predictHand int
)

func init() {
	predictCmd.Flags().IntVar(&predictYear, "year", 0, "Model year")
	predictCmd.Flags().IntVar(&predictHand, "hand", 0, "Mileage (hand)")
	predictCmd.MarkFlagRequired("year")
	predictCmd.MarkFlagRequired("hand")
}

func runPredict(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.openApp(cmd.Context(), nil); err != nil {
		return err
	}

	price, err := rt.app.Predict(predictYear, predictHand)
	if errors.Is(err, ml.ErrNotTrained) {
		return fmt.Errorf("no trained model yet: submit at least %d observations first", ml.MinTrainingRows)
	}
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(cmd.OutOrStdout(), "%.2f\n", service.RoundPrice(price))
	return nil
}

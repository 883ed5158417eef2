package cmd

import (
	"fmt"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/ui"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print each fan's configured temperature/speed curve",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupUI()

		model, err := configuration.LoadModelConfig(flagModel)
		if err != nil {
			return fmt.Errorf("loading model config: %w", err)
		}

		for i, f := range model.FanConfigurations {
			if i > 0 {
				ui.Printfln("")
			}
			ui.Printfln("%s", f.FanDisplayName)
			printCurve(f)
		}
		return nil
	},
}

func printCurve(f configuration.FanConfiguration) {
	if len(f.TemperatureThresholds) == 0 {
		ui.Printfln("No temperature thresholds configured.")
		return
	}

	values := make([]float64, len(f.TemperatureThresholds))
	for i, th := range f.TemperatureThresholds {
		values[i] = float64(th.FanSpeed)
	}

	caption := fmt.Sprintf("FanSpeed %% by threshold step (UpThreshold %d..%d)",
		f.TemperatureThresholds[0].UpThreshold,
		f.TemperatureThresholds[len(f.TemperatureThresholds)-1].UpThreshold)

	graph := asciigraph.Plot(values, asciigraph.Height(10), asciigraph.Width(60), asciigraph.Caption(caption))
	ui.Printfln(graph)
}

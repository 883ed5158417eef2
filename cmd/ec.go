package cmd

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/Boom-Hacker/nbfc-linux/internal/sensor"
	"github.com/Boom-Hacker/nbfc-linux/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var ecCmd = &cobra.Command{
	Use:   "ec",
	Short: "Probe Embedded Controller backends and hwmon sensors",
	Run: func(cmd *cobra.Command, args []string) {
		setupUI()
		printECBackends()
		printSensors()
	},
}

func tableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !flagNoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}

var probedTypes = []ec.EmbeddedControllerType{
	ec.TypeECSysLinux,
	ec.TypeECSysLinuxACPI,
	ec.TypeECLinux,
}

func printECBackends() {
	var rows [][]string
	for _, t := range probedTypes {
		backend, err := ec.New(t)
		if err != nil {
			rows = append(rows, []string{string(t), "error", err.Error()})
			continue
		}
		if err := backend.Open(); err != nil {
			rows = append(rows, []string{string(t), "unavailable", err.Error()})
			continue
		}
		_, readErr := backend.ReadByte(0x00)
		_ = backend.Close()
		if readErr != nil {
			rows = append(rows, []string{string(t), "opens, probe failed", readErr.Error()})
			continue
		}
		rows = append(rows, []string{string(t), "working", ""})
	}

	tab := table.Table{
		Headers: []string{"EmbeddedControllerType", "Status", "Detail"},
		Rows:    rows,
	}
	var buf bytes.Buffer
	if err := tab.WriteTable(&buf, tableConfig()); err != nil {
		ui.Fatal("error printing table: %s", err)
	}
	ui.Printfln(buf.String())
}

func printSensors() {
	sensors, err := sensor.Enumerate()
	if err != nil {
		ui.Warning("sensor enumeration failed: %s", err)
		return
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].Label < sensors[j].Label })

	var rows [][]string
	for _, s := range sensors {
		valueText := "N/A"
		if v, err := sensor.ReadCelsius(s); err == nil {
			valueText = fmt.Sprintf("%.1f°C", v)
		}
		rows = append(rows, []string{s.Label, valueText})
	}

	tab := table.Table{
		Headers: []string{"Sensor", "Temperature"},
		Rows:    rows,
	}
	var buf bytes.Buffer
	if err := tab.WriteTable(&buf, tableConfig()); err != nil {
		ui.Fatal("error printing table: %s", err)
	}
	ui.Printfln(buf.String())
}

package main

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/samuelfneumann/dotarl/agent/deepq"
	"github.com/samuelfneumann/dotarl/agent/pg"
	"github.com/samuelfneumann/dotarl/experiment/trackers"
)

var smoothing int

// rewardLogs lists the reward logs of an experiment directory together
// with the label of their values
var rewardLogs = []struct {
	path  string
	label string
}{
	{filepath.Join(DQNDir, deepq.RewardsFile), "Discounted episode reward"},
	{filepath.Join(PGDir, pg.RewardsFile), "Step reward"},
	{filepath.Join(PGDir, pg.PerformanceFile), "Evaluation episode reward"},
	{BridgeRewardsFile, "Episode reward"},
}

func PlotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot the reward logs of the experiment directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := conf.Experiment.Dir
			plotted := 0
			for _, l := range rewardLogs {
				path := filepath.Join(dir, l.path)
				values, err := trackers.LoadData[float64](path)
				if errors.Is(err, os.ErrNotExist) {
					continue
				} else if err != nil {
					return fmt.Errorf("plot: %w", err)
				}

				out := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
				if err := plotRewards(values, l.label, out); err != nil {
					return fmt.Errorf("plot: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", out)
				plotted++
			}

			if plotted == 0 {
				return fmt.Errorf("plot: no reward logs in %v", dir)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&smoothing, "smoothing", 10,
		"window of the moving average")
	return cmd
}

// plotRewards saves a line plot of values and their moving average
// to path
func plotRewards(values []float64, label, path string) error {
	if len(values) == 0 {
		return fmt.Errorf("no values to plot in %v", path)
	}

	p := plot.New()
	p.Title.Text = filepath.Base(path)
	p.X.Label.Text = "Index"
	p.Y.Label.Text = label

	raw, err := plotter.NewLine(points(values))
	if err != nil {
		return err
	}
	p.Add(raw)
	p.Legend.Add("value", raw)

	if smoothing > 1 && len(values) >= smoothing {
		avg, err := plotter.NewLine(points(movingAverage(values, smoothing)))
		if err != nil {
			return err
		}
		avg.Color = color.RGBA{R: 196, G: 40, B: 40, A: 255}
		avg.Width = vg.Points(2)
		p.Add(avg)
		p.Legend.Add(fmt.Sprintf("mean of %v", smoothing), avg)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

func points(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i].X = float64(i)
		pts[i].Y = values[i]
	}
	return pts
}

// movingAverage returns the means of each window of n consecutive
// values
func movingAverage(values []float64, n int) []float64 {
	avg := make([]float64, len(values)-n+1)
	for i := range avg {
		avg[i] = floats.Sum(values[i:i+n]) / float64(n)
	}
	return avg
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/dotarl/config"
	"github.com/samuelfneumann/dotarl/demonstration"
	"github.com/samuelfneumann/dotarl/shaping"
)

var (
	skipStates bool
	skipAdvice bool
	pairLimit  int
)

func ShaperCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shaper",
		Short: "Print the potentials the shapers assign to demonstrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !skipStates {
				if err := printStatePotentials(out, conf); err != nil {
					return fmt.Errorf("shaper: %w", err)
				}
			}
			if !skipAdvice {
				if err := printActionPotentials(out, conf); err != nil {
					return fmt.Errorf("shaper: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipStates, "no-states", false,
		"skip the state potentials")
	cmd.Flags().BoolVar(&skipAdvice, "no-advice", false,
		"skip the action potentials")
	cmd.Flags().IntVar(&pairLimit, "pairs", 10,
		"number of state-action pairs to print action potentials for")
	return cmd
}

// printStatePotentials prints, for each demonstration, the distance of
// each state to the previous one and the potential of the state
func printStatePotentials(out io.Writer, c *config.Config) error {
	sp, err := shaping.LoadStatePotential(c.Shaping.ReplayDir,
		c.Shaping.Projection, c.Shaping.Preprocessor())
	if err != nil {
		return err
	}

	// Demonstration states are already projected and preprocessed
	demos := make([]demonstration.States, sp.Demonstrations())
	for i := range demos {
		demos[i] = sp.Demonstration(i)
	}
	processed, err := shaping.NewStatePotential(demos,
		demonstration.Projection{Start: 0, End: c.Shaping.Projection.Len()},
		nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	for i, demo := range demos {
		fmt.Fprintf(w, "demonstration %v\n", i)
		fmt.Fprintln(w, "index\tstate\tdistance\tpotential")
		for j, state := range demo {
			distance := 0.0
			if j > 0 {
				distance = floats.Distance(demo[j-1], state, 2)
			}
			fmt.Fprintf(w, "%v\t%.4f\t%.4f\t%.4f\n", j, state, distance,
				processed.Potential(state))
		}
	}
	return w.Flush()
}

// printActionPotentials prints the action potentials of the first
// demonstrated state-action pairs together with the action taken
func printActionPotentials(out io.Writer, c *config.Config) error {
	demo, err := demonstration.LoadPairs(c.Shaping.Observations,
		numActions(c))
	if err != nil {
		return err
	}
	advice, err := shaping.NewActionAdvice([]demonstration.Pairs{demo},
		numActions(c))
	if err != nil {
		return err
	}

	n := pairLimit
	if n > demo.Len() {
		n = demo.Len()
	}
	if n < 1 {
		return nil
	}
	states := make([][]float64, n)
	for i := range states {
		states[i] = demo[i].State
	}
	potentials, err := advice.ActionPotentials(states)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "pair\taction\tbest\tpotentials")
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, potentials)
		fmt.Fprintf(w, "%v\t%v\t%v\t%.3f\n", i, demo[i].Action,
			floats.MaxIdx(row), row)
	}
	return w.Flush()
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvfit/ctxlog"
	"github.com/katalvlaran/lvfit/expr"
	"github.com/katalvlaran/lvfit/factory"
	"github.com/katalvlaran/lvfit/fit"
	"github.com/katalvlaran/lvfit/fitfunc"
	"github.com/katalvlaran/lvfit/session"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "lvfit",
		Short:         "Fit composite functions to data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(ctxlog.WithLogger(ctx, logger))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every iteration")

	root.AddCommand(newFitCmd(), newParamsCmd(), newFunctionsCmd())

	return root
}

func newFitCmd() *cobra.Command {
	var correlation bool
	cmd := &cobra.Command{
		Use:   "fit FILE",
		Short: "Run the fit described by a session file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.Load(args[0])
			if err != nil {
				return err
			}
			rep, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res := rep.Result
			fmt.Fprintf(out, "status:     %s\n", res.Status)
			fmt.Fprintf(out, "iterations: %d\n", res.Iterations)
			fmt.Fprintf(out, "chi2:       %.6g\n", res.ChiSquared)
			fmt.Fprintf(out, "chi2/dof:   %.6g\n", res.ReducedChiSquared)
			for _, p := range res.Parameters {
				fmt.Fprintf(out, "%-20s %14.6g ± %.3g\n", p.Name, p.Value, p.Error)
			}
			if correlation {
				printCorrelation(out, res)
			}
			fmt.Fprintln(out, rep.Function.String())

			return nil
		},
	}
	cmd.Flags().BoolVar(&correlation, "correlation", false, "print the correlation matrix of the free parameters")

	return cmd
}

// printCorrelation writes the correlation rows of the free parameters.
func printCorrelation(out io.Writer, res *fit.Result) {
	var free []int
	for i := range res.Parameters {
		if res.Correlation.RawRow(i)[i] != 0 {
			free = append(free, i)
		}
	}
	for _, i := range free {
		row := res.Correlation.RawRow(i)
		fmt.Fprintf(out, "%-20s", res.Parameters[i].Name)
		for _, j := range free {
			fmt.Fprintf(out, " %7.3f", row[j])
		}
		fmt.Fprintln(out)
	}
}

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params FILE",
		Short: "List the flattened parameters of a session's function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.Load(args[0])
			if err != nil {
				return err
			}
			f, err := s.Build(cmd.Context())
			if err != nil {
				return err
			}
			flat, err := fitfunc.Flatten(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range flat.Parameters {
				state := "free"
				switch {
				case p.Fixed:
					state = "fixed"
				case p.Tied:
					state = "tied"
				}
				line := fmt.Sprintf("%-20s %14.6g %-5s", p.Name, p.Value, state)
				if p.Bound != nil {
					line += " " + p.Bound.String()
				}
				fmt.Fprintln(out, line)
			}
			for _, t := range flat.Ties {
				fmt.Fprintf(out, "tie %s\n", t)
			}

			return nil
		},
	}
}

func newFunctionsCmd() *cobra.Command {
	var builtins bool
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the registered function names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			names := factory.Names()
			if builtins {
				names = expr.FunctionNames()
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
	cmd.Flags().BoolVar(&builtins, "math", false, "list the functions usable in ties and formulas instead")

	return cmd
}

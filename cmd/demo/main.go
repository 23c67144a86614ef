// Command demo exercises the reactive package's cell/memo/task/sensor/
// effect primitives from the command line, one subcommand per module.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coregx/reactive"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "demo",
		Short: "Exercise the reactive package's primitives",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				reactive.Log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCellCmd(), newMemoCmd(), newTaskCmd(), newSensorCmd(), newBatchCmd())
	return root
}

func newCellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cell",
		Short: "Write to a cell and watch an effect react",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := reactive.NewCell(0)
			if err != nil {
				return err
			}
			eff := reactive.NewEffect(func() reactive.Disposer {
				v, _ := count.Read()
				fmt.Fprintf(cmd.OutOrStdout(), "count = %d\n", v)
				return nil
			})
			defer eff.Stop()

			for i := 1; i <= 3; i++ {
				if err := count.Write(i); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newMemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memo",
		Short: "Derive a memo from two cells and observe bail-out",
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := reactive.NewCell("Ada")
			if err != nil {
				return err
			}
			last, err := reactive.NewCell("Lovelace")
			if err != nil {
				return err
			}

			var recomputes int
			fullName := reactive.NewMemo(func(prev string) string {
				recomputes++
				f, _ := first.Read()
				l, _ := last.Read()
				return f + " " + l
			})

			eff := reactive.NewEffect(func() reactive.Disposer {
				name, _ := fullName.Read()
				fmt.Fprintf(cmd.OutOrStdout(), "full name: %s\n", name)
				return nil
			})
			defer eff.Stop()

			_ = first.Write("Grace")
			_ = first.Write("Grace") // no-op write, bails out, no recompute

			fmt.Fprintf(cmd.OutOrStdout(), "recomputes: %d\n", recomputes)
			return nil
		},
	}
}

func newTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task",
		Short: "Run an async task derived from a cell and cancel a stale run",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := reactive.NewCell(1)
			if err != nil {
				return err
			}

			scope := reactive.NewScope()
			defer scope.Dispose()

			t, err := reactive.NewTaskWithOptions(
				func(ctx context.Context, prev int) (int, error) {
					v, _ := src.Read()
					select {
					case <-time.After(100 * time.Millisecond):
					case <-ctx.Done():
						return 0, ctx.Err()
					}
					return v * 2, nil
				},
				reactive.TaskOptions[int]{Owner: scope},
			)
			if err != nil {
				return err
			}

			v, err := t.Read()
			fmt.Fprintf(cmd.OutOrStdout(), "initial read: v=%d err=%v\n", v, err)

			time.Sleep(10 * time.Millisecond)
			_ = src.Write(2)

			time.Sleep(250 * time.Millisecond)
			v, err = t.Read()
			fmt.Fprintf(cmd.OutOrStdout(), "after settle: v=%d err=%v\n", v, err)
			return nil
		},
	}
}

func newSensorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sensor",
		Short: "Bridge a ticker into a sensor and observe it through an effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			sensor := reactive.NewSensor(func(set func(int)) func() {
				ticker := time.NewTicker(20 * time.Millisecond)
				n := 0
				go func() {
					for range ticker.C {
						n++
						set(n)
					}
				}()
				return ticker.Stop
			})

			eff := reactive.NewEffect(func() reactive.Disposer {
				v, _ := sensor.Read()
				fmt.Fprintf(cmd.OutOrStdout(), "tick %d\n", v)
				return nil
			})
			time.Sleep(100 * time.Millisecond)
			eff.Stop()
			return nil
		},
	}
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Batch two writes and show the effect runs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := reactive.NewCell(1)
			if err != nil {
				return err
			}
			b, err := reactive.NewCell(2)
			if err != nil {
				return err
			}

			sum := reactive.NewMemo(func(prev int) int {
				av, _ := a.Read()
				bv, _ := b.Read()
				return av + bv
			})

			runs := 0
			eff := reactive.NewEffect(func() reactive.Disposer {
				runs++
				v, _ := sum.Read()
				fmt.Fprintf(cmd.OutOrStdout(), "run %d: sum = %d\n", runs, v)
				return nil
			})
			defer eff.Stop()

			reactive.Batch(func() {
				_ = a.Write(10)
				_ = b.Write(20)
			})

			fmt.Fprintf(cmd.OutOrStdout(), "total effect runs: %d\n", runs)
			return nil
		},
	}
}

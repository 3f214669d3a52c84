package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/signet-dev/signet/pkg/features/future"
	"github.com/signet-dev/signet/pkg/signet"
)

type scenario struct {
	name  string
	setup func() (op func(i int), teardown func())
}

func runCmd() *cobra.Command {
	var iterations int
	var only string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run benchmark scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := allScenarios()

			tbl := table.NewWriter()
			tbl.SetOutputMirror(os.Stdout)
			tbl.AppendHeader(table.Row{"scenario", "iterations", "avg", "p75", "p99", "max"})

			ran := 0
			for _, sc := range scenarios {
				if only != "" && only != sc.name {
					continue
				}
				ran++

				op, teardown := sc.setup()
				tach := tachymeter.New(&tachymeter.Config{Size: iterations})
				for i := 0; i < iterations; i++ {
					start := time.Now()
					op(i)
					tach.AddTime(time.Since(start))
				}
				teardown()

				calc := tach.Calc()
				tbl.AppendRows([]table.Row{{
					sc.name,
					humanize.Comma(int64(iterations)),
					calc.Time.Avg,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				}})
			}

			if ran == 0 {
				return fmt.Errorf("unknown scenario %q", only)
			}
			tbl.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", 10_000, "Iterations per scenario")
	cmd.Flags().StringVar(&only, "scenario", "", "Run a single scenario by name")

	return cmd
}

func allScenarios() []scenario {
	return []scenario{
		{
			name: "write",
			setup: func() (func(int), func()) {
				s := signet.NewSignal(0)
				sink := 0
				stop := signet.Watch[int](s, func(n int) { sink += n })
				return func(i int) { s.Set(i + 1) },
					func() { stop(); s.Close(); _ = sink }
			},
		},
		{
			name: "fanout-100",
			setup: func() (func(int), func()) {
				s := signet.NewSignal(0)
				stops := make([]func(), 100)
				sink := 0
				for j := range stops {
					stops[j] = signet.Watch[int](s, func(n int) { sink += n })
				}
				return func(i int) { s.Set(i + 1) },
					func() {
						for _, stop := range stops {
							stop()
						}
						s.Close()
						_ = sink
					}
			},
		},
		{
			name: "batch-10",
			setup: func() (func(int), func()) {
				signals := make([]*signet.Signal[int], 10)
				stops := make([]func(), 10)
				sink := 0
				for j := range signals {
					signals[j] = signet.NewSignal(0)
					stops[j] = signet.Watch[int](signals[j], func(n int) { sink += n })
				}
				return func(i int) {
						signet.Batch(func() {
							for _, s := range signals {
								s.Set(i + 1)
							}
						})
					}, func() {
						for j := range signals {
							stops[j]()
							signals[j].Close()
						}
						_ = sink
					}
			},
		},
		{
			name: "async",
			setup: func() (func(int), func()) {
				dep := signet.NewSignal(0)
				ac := future.New(func(ctx context.Context) (int, error) {
					return dep.Get(), nil
				})
				done := make(chan struct{}, 1)
				stop := signet.Watch[future.Status[int]](ac, func(st future.Status[int]) {
					if st.IsSuccess() {
						select {
						case done <- struct{}{}:
						default:
						}
					}
				})
				<-done // drain the activation run
				return func(i int) {
						dep.Set(i + 1)
						<-done // round-trip: relaunch to completion
					}, func() {
						stop()
						ac.Close()
						dep.Close()
					}
			},
		},
		{
			name: "diamond",
			setup: func() (func(int), func()) {
				a := signet.NewSignal(0)
				b := signet.NewComputed(func() int { return a.Get() * 2 })
				c := signet.NewComputed(func() int { return a.Get() + 1 })
				d := signet.NewComputed(func() int { return b.Get() + c.Get() })
				sink := 0
				stop := signet.Watch[int](d, func(n int) { sink += n })
				return func(i int) { a.Set(i + 1) },
					func() {
						stop()
						d.Close()
						c.Close()
						b.Close()
						a.Close()
						_ = sink
					}
			},
		},
	}
}

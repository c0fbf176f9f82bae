package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bern/internal/export"
	"bern/internal/site"
	bernapi "bern/pkg/bern"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Read the data tables and persist them to the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.client.Init(ctx); err != nil {
				return err
			}
			summary, err := a.client.LoadFromTSV(a.cfg.Data, a.cfg.Dimensions)
			if err != nil {
				return err
			}
			if err := a.client.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s taxa loaded\n", humanize.Comma(int64(summary.Taxa)))
			fmt.Fprintf(a.out, "%s communities loaded\n", humanize.Comma(int64(summary.Communities)))
			fmt.Fprintf(a.out, "%s links between communities and taxa\n", humanize.Comma(int64(summary.Links)))
			if summary.Sites > 0 {
				fmt.Fprintf(a.out, "%s site states loaded\n", humanize.Comma(int64(summary.Sites)))
			}
			fmt.Fprintf(a.out, "stored in %s store\n", a.cfg.Store.Kind)
			return nil
		},
	}
}

func newCommunityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "community <id>",
		Short: "Show the taxa, envelope and optimum of one community",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("community id: %w", err)
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			dims, err := a.client.Dimensions()
			if err != nil {
				return err
			}
			info, err := a.client.Community(id)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%d %s\n", info.ID, info.Name)
			for _, t := range info.Taxa {
				fmt.Fprintf(a.out, "\t%d %s\n", t.ID, t.Name)
				fmt.Fprintf(a.out, "\t\tmin: %s\n", dims.Format(t.Pess.Min))
				fmt.Fprintf(a.out, "\t\tmax: %s\n", dims.Format(t.Pess.Max))
			}
			fmt.Fprintf(a.out, "->min: %s\n", dims.Format(info.Envelope.Min))
			fmt.Fprintf(a.out, "->center: %s\n", dims.Format(info.Center))
			fmt.Fprintf(a.out, "->max: %s\n", dims.Format(info.Envelope.Max))

			started := time.Now()
			opt, err := a.client.CommunityOptimum(id)
			if err != nil {
				return err
			}
			at, err := a.client.CommunityPossibility(id, opt.Site)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "->opt: %g at %s (%s)\n", opt.Value, dims.Format(opt.Site), time.Since(started).Round(time.Microsecond))
			fmt.Fprintf(a.out, "->com(opt): %g\n", at)
			return nil
		},
	}
}

func newOptimaCmd(a *app) *cobra.Command {
	var jsonPath string
	cmd := &cobra.Command{
		Use:   "optima",
		Short: "Search the optimum of every community in parallel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			runID, report, err := a.client.CalculateOptima(ctx)
			if err != nil {
				return err
			}
			dims, err := a.client.Dimensions()
			if err != nil {
				return err
			}

			var optima []export.Optimum
			for _, id := range a.client.CommunityIDs() {
				if _, failed := report.Failed[id]; failed {
					continue
				}
				info, err := a.client.Community(id)
				if err != nil {
					continue
				}
				opt, err := a.client.CommunityOptimum(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%g\t%d\t%s\n", opt.Value, id, info.Name)
				entry, err := export.NewOptimum(dims, id, info.Name, runID, opt)
				if err != nil {
					return err
				}
				optima = append(optima, entry)
			}
			fmt.Fprintf(a.out, "%s optima searched, %s skipped in %s (run %s)\n",
				humanize.Comma(int64(report.Computed)),
				humanize.Comma(int64(len(report.Failed))),
				report.Duration.Round(time.Millisecond),
				runID,
			)

			if jsonPath != "" {
				if err := export.WriteFile(jsonPath, func(w io.Writer) error {
					return export.WriteOptimaJSON(w, optima)
				}); err != nil {
					return err
				}
			}
			return a.client.Save(ctx)
		},
	}
	cmd.Flags().StringVar(&jsonPath, "json", "", "write the optima as JSON to this file")
	return cmd
}

func newSitesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the feasible and best communities for every site state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			states := a.client.SiteStates()
			if len(states) == 0 {
				return fmt.Errorf("no site states loaded; set a site table")
			}
			for _, state := range states {
				s := site.Vector(state.Conditions)
				fmt.Fprintf(a.out, "%d %s\n", state.ID, state.Name)
				feasible, err := a.client.FeasibleCommunities(s)
				if err != nil {
					return err
				}
				for _, r := range feasible {
					fmt.Fprintf(a.out, "\t%.4f\t%d\t%s\n", r.Value, r.ID, r.Name)
				}
				best, ok, err := a.client.BestCommunity(s)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "\tbest: none")
					continue
				}
				fmt.Fprintf(a.out, "\tbest: %d %s\n", best.ID, best.Name)
			}
			return nil
		},
	}
}

func newMatrixCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Write the possibility of every community at every site state as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			states := a.client.SiteStates()
			names := make([]string, 0, len(states))
			sites := make([]bernapi.Vector, 0, len(states))
			for _, state := range states {
				names = append(names, state.Name)
				sites = append(sites, site.Vector(state.Conditions))
			}
			matrix, err := a.client.PossibilityMatrix(ctx, sites)
			if err != nil {
				return err
			}
			ids := a.client.CommunityIDs()
			write := func(w io.Writer) error {
				return export.WritePossibilityMatrixCSV(w, names, ids, matrix)
			}
			if outPath == "" {
				return write(a.out)
			}
			if err := export.WriteFile(outPath, write); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s cells written to %s\n", humanize.Comma(int64(len(matrix))), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "CSV output file (stdout when empty)")
	return cmd
}

func newWetnessCmd(a *app) *cobra.Command {
	var afc, gwt float64
	cmd := &cobra.Command{
		Use:   "wetness",
		Short: "Compute the wetness index from field capacity and groundwater depth",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintf(a.out, "%g\n", site.WetnessIndex(afc, gwt))
			return nil
		},
	}
	cmd.Flags().Float64Var(&afc, "afc", 0, "accessible field capacity [%]")
	cmd.Flags().Float64Var(&gwt, "gwt", 0, "groundwater table depth [m]")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRun(w io.Writer, format string, result *services.RunResult) error {
	if format == "json" {
		return writeJSON(w, result)
	}

	roster := result.Roster
	fmt.Fprintf(w, "Gameweek %d  method=%s  strategy=%s  formation=%s\n\n",
		result.Gameweek, result.Method, result.Strategy, roster.Formation)

	players := append([]models.Player(nil), roster.Players...)
	models.SortForDisplay(players, result.Scores)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tPLAYER\tTEAM\tCOST\tOWN%\tTIER\tSCORE\t")
	for _, p := range players {
		name := p.Name
		if p.ID == roster.CaptainID {
			name += " (C)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%s\t%.2f\t\n",
			p.Position, name, p.TeamName, p.Cost, p.OwnershipPercent, strategy.Tier(p), result.Scores[p.ID])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal cost %.1f  budget left %.1f  expected points %.2f",
		roster.TotalCost, roster.BudgetRemaining, roster.TotalScore)
	if roster.Robust {
		fmt.Fprintf(w, "  robust objective %.2f", roster.ObjectiveValue)
	}
	fmt.Fprintln(w)
	return nil
}

func writeComparison(w io.Writer, format string, rows []services.MethodComparison) error {
	if format == "json" {
		return writeJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tMETHOD\tEXPECTED\tFORMATION\tCAPTAIN\t")
	for i, row := range rows {
		if row.Error != "" {
			fmt.Fprintf(tw, "-\t%s\terror: %s\t\t\t\n", row.Method, row.Error)
			continue
		}
		captain := ""
		if c, ok := row.Roster.Captain(); ok {
			captain = c.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\t\n", i+1, row.Method, row.ExpectedPoints, row.Roster.Formation, captain)
	}
	return tw.Flush()
}

func writeTransferPlan(w io.Writer, format string, plan *services.TransferPlan) error {
	if format == "json" {
		return writeJSON(w, plan)
	}

	if len(plan.Transfers) == 0 {
		fmt.Fprintln(w, "No transfers recommended: the squad already holds the optimal eleven.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tOUT\tIN\tCOST DELTA\tGAIN\t")
	for _, t := range plan.Transfers {
		fmt.Fprintf(tw, "%s\t%s (%.1f)\t%s (%.1f)\t%+.1f\t%+.2f\t\n",
			t.Position, t.OutName, t.OutCost, t.InName, t.InCost, t.CostDelta, t.PointsGain)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := plan.Summary
	fmt.Fprintf(w, "\n%d transfer(s), %d hit(s) (-%.0f), net gain %+.2f, bank after %.1f\n",
		s.Count, s.Hits, s.HitPenalty, s.NetPointsGain, s.BankAfter)
	if !s.Affordable {
		fmt.Fprintln(w, "Warning: these transfers exceed the money in the bank.")
	}
	return nil
}

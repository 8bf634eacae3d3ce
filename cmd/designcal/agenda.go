package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"designcal/internal/model"
	"designcal/internal/render"
)

func newAgendaCmd(a *app) *cobra.Command {
	var (
		date string
		days int
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the day's appointments with their lanes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			first := time.Now().In(cfg.Location())
			if date != "" {
				first, err = time.ParseInLocation(model.DateLayout, date, cfg.Location())
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}
			if days < 1 {
				days = 1
			}

			repo, release, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer release()

			refresher := newRefresher(cfg)
			if len(cfg.Feeds) > 0 {
				if err := refresher.RunOnce(ctx); err != nil {
					// Partial feed failures still leave a usable snapshot.
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
			}

			opts := render.OptionsFromConfig(cfg.View)
			out := cmd.OutOrStdout()
			for i := range days {
				d := first.AddDate(0, 0, i).Format(model.DateLayout)

				appts, err := repo.ListByDate(ctx, d)
				if err != nil {
					return err
				}
				appts = append(appts, refresher.Appointments(d)...)
				model.SortAppointments(appts)

				fmt.Fprint(out, render.Agenda(render.DayView(d, appts, opts)))
				for _, occ := range refresher.AllDay(d) {
					fmt.Fprintf(out, "  all day: %s (%s)\n", occ.Summary, occ.SourceName)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "first day, YYYY-MM-DD (default: today)")
	cmd.Flags().IntVarP(&days, "days", "n", 1, "number of days to print")

	return cmd
}

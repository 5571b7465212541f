package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarcoPoloResearchLab/raduty/internal/apiclient"
	"github.com/MarcoPoloResearchLab/raduty/internal/calendar"
	"github.com/MarcoPoloResearchLab/raduty/internal/config"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/dutycal"
	"github.com/MarcoPoloResearchLab/raduty/internal/dutysync"
	"github.com/MarcoPoloResearchLab/raduty/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type monthOptions struct {
	month  string
	filter string
	watch  bool
}

func newMonthCommand() *cobra.Command {
	options := monthOptions{}
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print the duty calendar for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonth(cmd.Context(), cmd.OutOrStdout(), options)
		},
	}
	cmd.Flags().StringVar(&options.month, "month", "", "Month to show as YYYY-MM (defaults to the current month)")
	cmd.Flags().StringVar(&options.filter, "filter", "", "Only show duties whose RA name contains this text")
	cmd.Flags().BoolVar(&options.watch, "watch", false, "Redraw whenever the duty set changes")
	return cmd
}

func runMonth(ctx context.Context, out io.Writer, options monthOptions) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewConsoleLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	client, err := apiclient.New(apiclient.Config{
		BaseURL: appConfig.APIBaseURL,
		Timeout: appConfig.APITimeout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	controller, err := dutysync.NewController(dutysync.ControllerConfig{Remote: client, Logger: logger})
	if err != nil {
		return err
	}
	engine, err := dutycal.New(dutycal.Config{
		Controller:     controller,
		Roster:         client,
		ReloadOnFilter: appConfig.ReloadOnFilter,
		Filter:         options.filter,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	if options.month != "" {
		cursor, err := calendar.ParseCursor(options.month)
		if err != nil {
			return err
		}
		engine.Show(cursor)
	}
	if err := engine.Mount(ctx); err != nil {
		return err
	}
	renderMonth(out, engine.Cursor(), engine.Grid())
	if !options.watch {
		return nil
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return client.WatchChanges(signalCtx, func(change apiclient.Change) {
		logger.Debug("duty change received", zap.String("action", change.Action), zap.Int64s("duty_ids", change.DutyIDs))
		if err := engine.ExternalChange(signalCtx); err != nil {
			logger.Warn("reload after change failed", zap.Error(err))
			return
		}
		renderMonth(out, engine.Cursor(), engine.Grid())
	})
}

var weekdayHeader = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// renderMonth prints the month grid followed by an agenda of the visible duties.
func renderMonth(out io.Writer, cursor calendar.Cursor, cells []calendar.Cell) {
	fmt.Fprintf(out, "%s %d\n", cursor.Month, cursor.Year)
	fmt.Fprintln(out, strings.Join(weekdayHeader, " "))
	for _, week := range calendar.Weeks(cells) {
		row := make([]string, 0, len(week))
		for _, cell := range week {
			row = append(row, cellLabel(cell))
		}
		fmt.Fprintln(out, strings.Join(row, " "))
	}

	fmt.Fprintln(out)
	printed := 0
	for _, cell := range cells {
		for _, record := range cell.Records {
			fmt.Fprintf(out, "%s  %-9s  %s", record.Date, record.Shift, record.RAName)
			if record.Notes != "" {
				fmt.Fprintf(out, "  (%s)", record.Notes)
			}
			fmt.Fprintln(out)
			printed++
		}
	}
	if printed == 0 {
		fmt.Fprintln(out, "No duties scheduled.")
	}
}

func cellLabel(cell calendar.Cell) string {
	if cell.Kind != calendar.CellDay {
		return "   "
	}
	marker := " "
	switch {
	case cell.IsToday:
		marker = "*"
	case len(cell.Records) > 0:
		marker = shiftMarker(cell.Records[0].Shift)
	}
	return fmt.Sprintf("%2d%s", cell.Day, marker)
}

func shiftMarker(shift duties.Shift) string {
	switch shift {
	case duties.ShiftPrimary:
		return "P"
	case duties.ShiftSecondary:
		return "S"
	default:
		return "T"
	}
}

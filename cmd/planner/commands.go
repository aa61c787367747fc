package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dayplanner/internal/aggregate"
	"dayplanner/internal/app"
	"dayplanner/internal/calendar"
	"dayplanner/internal/config"
	"dayplanner/internal/domain"
	"dayplanner/internal/events"
	"dayplanner/internal/ics"
	"dayplanner/internal/search"
)

func dayCmd() *cobra.Command {
	var query, category string
	cmd := &cobra.Command{
		Use:   "day [date]",
		Short: "Show the timeline and to-dos for a date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := argOrSelectedDate(a, args)
				if err != nil {
					return err
				}
				f := search.Filter{Query: query, Category: category}
				if err := f.Validate(); err != nil {
					return err
				}
				day, err := a.Store.Open(ctx, d)
				if err != nil {
					return err
				}
				timeline := search.Apply(day.Timeline(), f)
				todos := search.Apply(day.Todos(), f)
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"date":     d,
						"timeline": nonNil(timeline),
						"todos":    nonNil(todos),
					})
				}
				fmt.Println(d.Time(a.Location).Format("Monday, January 2 2006"))
				renderTimeline(timeline)
				renderTodos(todos)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show activities whose name contains this text")
	cmd.Flags().StringVar(&category, "category", "", "only show Work, Leisure or Event")
	return cmd
}

func addCmd() *cobra.Command {
	var draft domain.Draft
	var category, endDate string
	var completed bool
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an activity to the selected date",
		Long:  "Adds a timed activity when --time is given, otherwise a to-do. --end-date copies it onto every day through that date.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := selectedDate(a)
				if err != nil {
					return err
				}
				draft.Name = strings.Join(args, " ")
				if draft.Category, err = domain.ParseCategory(category); err != nil {
					return err
				}
				if endDate != "" {
					end, err := resolveDate(a, endDate)
					if err != nil {
						return err
					}
					draft.EndDate = &end
				}
				if cmd.Flags().Changed("completed") {
					draft.Completed = &completed
				}
				act, err := a.Store.Add(ctx, d, draft)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(act)
				}
				fmt.Printf("added %s (%s)\n", act.ID, act.Span())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(domain.CategoryWork), "Work, Leisure or Event")
	cmd.Flags().StringVarP(&draft.Time, "time", "t", "", "start time HH:MM")
	cmd.Flags().StringVar(&draft.EndTime, "end-time", "", "end time HH:MM")
	cmd.Flags().StringVar(&endDate, "end-date", "", "last day of a multi-day activity")
	cmd.Flags().StringVar(&draft.Description, "description", "", "free-form notes")
	cmd.Flags().BoolVar(&completed, "completed", false, "mark the to-do done")
	return cmd
}

func updateCmd() *cobra.Command {
	var name, category, at, endTime, startDate, endDate, description string
	var clearEnd, completed bool
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update an activity on the selected date",
		Long:  "Changes only the flags given. Copies of a multi-day activity are updated together.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := selectedDate(a)
				if err != nil {
					return err
				}
				var p domain.Patch
				flags := cmd.Flags()
				if flags.Changed("name") {
					p.Name = &name
				}
				if flags.Changed("category") {
					c, err := domain.ParseCategory(category)
					if err != nil {
						return err
					}
					p.Category = &c
				}
				if flags.Changed("time") {
					p.Time = &at
				}
				if flags.Changed("end-time") {
					p.EndTime = &endTime
				}
				if flags.Changed("start-date") {
					v, err := resolveDate(a, startDate)
					if err != nil {
						return err
					}
					p.StartDate = &v
				}
				if flags.Changed("end-date") {
					v, err := resolveDate(a, endDate)
					if err != nil {
						return err
					}
					p.EndDate = &v
				}
				p.ClearEndDate = clearEnd
				if flags.Changed("completed") {
					p.Completed = &completed
				}
				if flags.Changed("description") {
					p.Description = &description
				}
				if p.Empty() {
					return fmt.Errorf("nothing to update; pass at least one field flag")
				}
				act, found, err := a.Store.Update(ctx, d, args[0], p)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("activity %s not found on %s", args[0], d)
				}
				if viper.GetBool("json") {
					return printJSON(act)
				}
				fmt.Printf("updated %s (%s)\n", act.ID, act.Span())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Work, Leisure or Event")
	cmd.Flags().StringVarP(&at, "time", "t", "", "start time HH:MM (empty makes it a to-do)")
	cmd.Flags().StringVar(&endTime, "end-time", "", "end time HH:MM")
	cmd.Flags().StringVar(&startDate, "start-date", "", "first day of the range")
	cmd.Flags().StringVar(&endDate, "end-date", "", "last day of the range")
	cmd.Flags().BoolVar(&clearEnd, "clear-end-date", false, "make it a single-day activity")
	cmd.Flags().BoolVar(&completed, "completed", false, "completion flag")
	cmd.Flags().StringVar(&description, "description", "", "free-form notes")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an activity and all of its copies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := selectedDate(a)
				if err != nil {
					return err
				}
				found, err := a.Store.Delete(ctx, d, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("activity %s not found on %s", args[0], d)
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"deleted": true, "id": args[0]})
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Tick or untick a to-do on the selected date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := selectedDate(a)
				if err != nil {
					return err
				}
				act, found, err := a.Store.ToggleCompletion(ctx, d, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("activity %s not found on %s", args[0], d)
				}
				if viper.GetBool("json") {
					return printJSON(act)
				}
				if !act.IsTodo() {
					fmt.Printf("%s is timed; nothing to toggle\n", act.ID)
					return nil
				}
				fmt.Printf("%s %s\n", checkbox(act), act.Name)
				return nil
			})
		},
	}
}

func reorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder ID...",
		Short: "Put the selected date's to-dos in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := selectedDate(a)
				if err != nil {
					return err
				}
				day, err := a.Store.ReorderTodos(ctx, d, args)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(nonNil(day.Todos()))
				}
				renderTodos(day.Todos())
				return nil
			})
		},
	}
}

func monthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show a month grid with activity counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				today := a.Store.Today()
				year, month := today.Year(), today.Month()
				if len(args) == 1 {
					t, err := time.Parse("2006-01", args[0])
					if err != nil {
						return fmt.Errorf("month must be YYYY-MM: %w", err)
					}
					year, month = t.Year(), t.Month()
				}
				snap := a.Reader.ForMonth(year, month)
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				renderMonth(year, month, a.WeekStart, today, snap)
				return nil
			})
		},
	}
}

func yearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "year [YYYY]",
		Short: "Summarize activity per month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				year := a.Store.Today().Year()
				if len(args) == 1 {
					y, err := strconv.Atoi(args[0])
					if err != nil || y < 1 || y > 9999 {
						return fmt.Errorf("year must be YYYY")
					}
					year = y
				}
				snap := a.Reader.ForYear(year)
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Month", "Active days", "Activities"})
				for m := time.January; m <= time.December; m++ {
					ms := snap.Month(year, m)
					active := 0
					for _, d := range ms.Dates() {
						if len(ms[d]) > 0 {
							active++
						}
					}
					tw.AppendRow(table.Row{m.String(), active, ms.Count()})
				}
				tw.AppendFooter(table.Row{year, "", snap.Count()})
				tw.Render()
				return nil
			})
		},
	}
}

func searchCmd() *cobra.Command {
	var f search.Filter
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find activities by name across all dates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f.Query = strings.Join(args, " ")
				if err := f.Validate(); err != nil {
					return err
				}
				results := search.Search(a.Reader.Snapshot().Activities(), f)
				if viper.GetBool("json") {
					return printJSON(nonNil(results))
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Date", "Time", "Name", "Category", "Range", "ID"})
				for _, r := range results {
					tw.AppendRow(table.Row{r.Date, timeLabel(r), r.Name, r.Category, r.Span(), r.ID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Category, "category", search.All, "All, Work, Leisure or Event")
	cmd.Flags().IntVar(&f.Limit, "limit", search.DefaultLimit, "max results")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "export", Short: "Export activities"}
	var out string
	var year int
	icsCmd := &cobra.Command{
		Use:   "ics",
		Short: "Write an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				snap := a.Reader.Snapshot()
				if year > 0 {
					snap = snap.Year(year)
				}
				body := ics.Export(snap, ics.Options{Name: "Day Planner", Location: a.Location})
				if out == "" || out == "-" {
					fmt.Print(body)
					return nil
				}
				if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %d activities to %s\n", snap.Count(), out)
				return nil
			})
		},
	}
	icsCmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	icsCmd.Flags().IntVar(&year, "year", 0, "only export this year")
	cmd.AddCommand(icsCmd)
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Change log"}
	var n int
	var f events.Filter
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				evs, err := a.Events.Latest(ctx, n, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Date", "Activity"})
				for _, e := range evs {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.Date, e.ActivityID})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVarP(&n, "n", "n", 20, "number of events")
	tail.Flags().StringVar(&f.Type, "type", "", "filter by change kind")
	tail.Flags().StringVar(&f.Date, "on", "", "filter by date YYYY-MM-DD")
	tail.Flags().StringVar(&f.ActivityID, "activity", "", "filter by activity id")
	cmd.AddCommand(tail)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check planner.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := config.FromFile(path); err != nil {
				return err
			}
			fmt.Println("config ok:", path)
			return nil
		},
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default planner.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(show, validate, initCmd)
	return cmd
}

func argOrSelectedDate(a *app.App, args []string) (calendar.Date, error) {
	if len(args) == 1 {
		return resolveDate(a, args[0])
	}
	return selectedDate(a)
}

func renderTimeline(items []domain.Activity) {
	if len(items) == 0 {
		fmt.Println("No timed activities.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Timeline")
	tw.AppendHeader(table.Row{"Time", "Name", "Category", "Range", "ID"})
	for _, a := range items {
		tw.AppendRow(table.Row{timeLabel(a), a.Name, a.Category, rangeLabel(a), a.ID})
	}
	tw.Render()
}

func renderTodos(items []domain.Activity) {
	if len(items) == 0 {
		fmt.Println("No to-dos.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("To-dos")
	tw.AppendHeader(table.Row{"", "Name", "Category", "Range", "ID"})
	for _, a := range items {
		tw.AppendRow(table.Row{checkbox(a), a.Name, a.Category, rangeLabel(a), a.ID})
	}
	tw.Render()
}

func renderMonth(year int, month time.Month, weekStart time.Weekday, today calendar.Date, snap aggregate.Snapshot) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("%s %d", month, year))
	header := make(table.Row, 7)
	for i := range header {
		header[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	tw.AppendHeader(header)
	grid := calendar.MonthGrid(year, month, weekStart)
	for w := 0; w+7 <= len(grid); w += 7 {
		row := make(table.Row, 7)
		for i, d := range grid[w : w+7] {
			row[i] = monthCell(d, month, today, len(snap[d]))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func monthCell(d calendar.Date, month time.Month, today calendar.Date, count int) string {
	if d.Month() != month {
		return ""
	}
	label := strconv.Itoa(d.Day())
	if d == today {
		label = "[" + label + "]"
	}
	if count > 0 {
		label += fmt.Sprintf(" (%d)", count)
	}
	return label
}

func timeLabel(a domain.Activity) string {
	if a.IsTodo() {
		return "-"
	}
	if a.EndTime != "" {
		return a.Time + "-" + a.EndTime
	}
	return a.Time
}

func rangeLabel(a domain.Activity) string {
	span := a.Span()
	if !span.MultiDay() {
		return ""
	}
	return span.String()
}

func checkbox(a domain.Activity) string {
	if a.IsCompleted() {
		return "[x]"
	}
	return "[ ]"
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

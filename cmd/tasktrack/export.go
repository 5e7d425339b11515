package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tasktrack/internal/config"
	"tasktrack/internal/format"
	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

type exportOptions struct {
	output        string
	subject       string
	departmentID  int64
	statusID      int64
	dueFrom       string
	dueTo         string
	completedFrom string
	completedTo   string
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks to an xlsx spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			return withStore(cfg, func(st *store.Store) error {
				tasks, err := store.Tasks{}.List(cmd.Context(), st.DB(), filter)
				if err != nil {
					return err
				}

				var w io.Writer = os.Stdout
				if opts.output != "" {
					f, err := os.Create(opts.output)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				if err := format.WriteTasksXLSX(w, tasks); err != nil {
					return err
				}
				if opts.output != "" {
					fmt.Fprintf(os.Stderr, "exported %d tasks to %s\n", len(tasks), opts.output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "subject contains (case-insensitive)")
	cmd.Flags().Int64Var(&opts.departmentID, "department-id", 0, "department id")
	cmd.Flags().Int64Var(&opts.statusID, "status-id", 0, "status id")
	cmd.Flags().StringVar(&opts.dueFrom, "due-from", "", "due on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.dueTo, "due-to", "", "due on or before YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.completedFrom, "completed-from", "", "completed on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.completedTo, "completed-to", "", "completed on or before YYYY-MM-DD")
	return cmd
}

func (o *exportOptions) filter() (models.TaskFilter, error) {
	filter := models.TaskFilter{
		Subject:      strings.TrimSpace(o.subject),
		DepartmentID: o.departmentID,
		StatusID:     o.statusID,
	}
	dates := []struct {
		flag  string
		value string
		dst   **models.Date
	}{
		{"due-from", o.dueFrom, &filter.DueFrom},
		{"due-to", o.dueTo, &filter.DueTo},
		{"completed-from", o.completedFrom, &filter.CompletedFrom},
		{"completed-to", o.completedTo, &filter.CompletedTo},
	}
	for _, d := range dates {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := models.ParseDate(d.value)
		if err != nil {
			return filter, fmt.Errorf("--%s: %w", d.flag, err)
		}
		*d.dst = &parsed
	}
	return filter, nil
}

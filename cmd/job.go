package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpools-io/zpools-cli/internal/application"
	"github.com/zpools-io/zpools-cli/internal/domain"
)

const defaultJobListLimit = 100

func newJobCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and follow zpools.io jobs",
	}

	cmd.AddCommand(
		newJobListCmd(app),
		newJobGetCmd(app),
		newJobHistoryCmd(app),
		newJobWaitCmd(app),
		newJobResumeCmd(app),
	)

	return cmd
}

func newJobListCmd(app *app) *cobra.Command {
	var (
		limit  int
		before string
		after  string
		sort   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := parseJobListQuery(limit, sort, before, after)
			if err != nil {
				return err
			}

			jobs, err := app.jobs.List(cmd.Context(), query)
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), jobs)
			}
			return printView(cmd.OutOrStdout(), app.renderer.JobList(jobs))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultJobListLimit, "Maximum number of jobs to list (1-1000)")
	cmd.Flags().StringVar(&before, "before", "", "Only jobs created before this RFC 3339 time")
	cmd.Flags().StringVar(&after, "after", "", "Only jobs created after this RFC 3339 time")
	cmd.Flags().StringVar(&sort, "sort", string(domain.SortDesc), "Sort order by creation time (asc, desc)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func parseJobListQuery(limit int, sort string, before string, after string) (domain.JobListQuery, error) {
	query := domain.JobListQuery{Limit: limit}

	switch order := domain.SortOrder(strings.ToLower(strings.TrimSpace(sort))); order {
	case domain.SortAsc, domain.SortDesc:
		query.Sort = order
	default:
		return domain.JobListQuery{}, fmt.Errorf("invalid sort order %q: must be asc or desc", sort)
	}

	var err error
	if query.Before, err = parseTimeFlag("before", before); err != nil {
		return domain.JobListQuery{}, err
	}
	if query.After, err = parseTimeFlag("after", after); err != nil {
		return domain.JobListQuery{}, err
	}
	return query, nil
}

func parseTimeFlag(name string, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}

	ts, ok, err := domain.ParseTimestamp(value)
	if err != nil || !ok {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected an RFC 3339 time", name, value)
	}
	return ts, nil
}

func newJobGetCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := app.jobs.Get(cmd.Context(), domain.JobID(args[0]))
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), job)
			}
			return printView(cmd.OutOrStdout(), app.renderer.JobDetail(job))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newJobHistoryCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <job-id>",
		Short: "Show the event history of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.JobID(args[0])

			history, err := app.jobs.History(cmd.Context(), id)
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), history)
			}
			return printView(cmd.OutOrStdout(), app.renderer.JobHistory(id, history))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newJobWaitCmd(app *app) *cobra.Command {
	var (
		timeout      time.Duration
		pollInterval time.Duration
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "wait <job-id>",
		Short: "Follow a job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.JobID(args[0])

			snapshot, err := app.jobs.WaitForJob(cmd.Context(), id, application.WaitOptions{
				Name:         "Job " + string(id),
				Timeout:      timeout,
				PollInterval: pollInterval,
				Display:      display(cmd, asJSON),
			})
			if err != nil {
				return explain(cmd, asJSON, "zpools job wait "+string(id), err)
			}

			return app.printOutcome(cmd, asJSON, "Job "+string(id), snapshot)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultTimeout, "Maximum time to wait")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", application.DefaultPollInterval, "Time between API polls")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newJobResumeCmd(app *app) *cobra.Command {
	var (
		zpoolID      string
		timeout      time.Duration
		pollInterval time.Duration
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "resume <kind>",
		Short: "Attach to the newest job of a kind, e.g. zpool_create or zpool_scrub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			name := kind
			if zpoolID != "" {
				name = fmt.Sprintf("%s (%s)", kind, zpoolID)
			}

			resumed, err := app.jobs.FindAndResume(cmd.Context(), kind, zpoolID, application.WaitOptions{
				Name:         name,
				Timeout:      timeout,
				PollInterval: pollInterval,
				Display:      display(cmd, asJSON),
			})
			if err != nil {
				return explain(cmd, asJSON, resumeCommand(kind, zpoolID), err)
			}

			return app.printResumed(cmd, asJSON, name, resumed)
		},
	}

	cmd.Flags().StringVar(&zpoolID, "zpool", "", "Only consider jobs for this zpool")
	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultTimeout, "Maximum time to wait")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", application.DefaultPollInterval, "Time between API polls")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

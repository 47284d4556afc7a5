package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/charlesng35/estatecrm/internal/app/scheduler"
	"github.com/charlesng35/estatecrm/internal/database"
)

func jobsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and run the scheduled notification jobs",
	}
	cmd.AddCommand(jobsListCmd(opts))
	cmd.AddCommand(jobsRunCmd(opts))
	return cmd
}

func jobsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs with their schedule and last completed run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			sched, err := newScheduler(env)
			if err != nil {
				return err
			}

			jobs := sched.Jobs()
			names := make([]string, 0, len(jobs))
			for name := range jobs {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tSCHEDULE\tLAST RUN")
			for _, name := range names {
				lastRun := "never"
				at, ok, err := database.LastJobRun(cmd.Context(), env.db, name)
				if err != nil {
					return err
				}
				if ok {
					lastRun = at.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, jobs[name], lastRun)
			}
			return w.Flush()
		},
	}
}

func jobsRunCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "run [job...]",
		Short: "Run one or more jobs immediately",
		Long: `Run one or more jobs immediately, outside their cron schedule.

Examples:
  crmctl jobs run event-reminders
  crmctl jobs run --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name at least one job or pass --all")
			}

			env, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			sched, err := newScheduler(env)
			if err != nil {
				return err
			}

			var summaries []scheduler.JobSummary
			var errs error
			if all {
				summaries, errs = sched.RunOnce(cmd.Context())
			} else {
				for _, name := range args {
					summary, err := sched.Run(cmd.Context(), name)
					summaries = append(summaries, summary)
					errs = multierr.Append(errs, err)
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tPROCESSED\tSUCCEEDED\tFAILED\tSKIPPED")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", s.Job, s.Processed, s.Succeeded, s.Failed, s.Skipped)
			}
			return multierr.Append(errs, w.Flush())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "run every job in order")
	return cmd
}

func newScheduler(env *environment) (*scheduler.Scheduler, error) {
	svc, err := env.notificationService()
	if err != nil {
		return nil, err
	}
	return scheduler.New(env.db, svc, env.roles, scheduler.ConfigOptions(env.cfg.Scheduler)...)
}

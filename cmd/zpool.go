package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpools-io/zpools-cli/internal/application"
	"github.com/zpools-io/zpools-cli/internal/domain"
)

func newZpoolCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zpool",
		Short: "Manage ZFS pools",
	}

	cmd.AddCommand(
		newZpoolListCmd(app),
		newZpoolCreateCmd(app),
		newZpoolDeleteCmd(app),
		newZpoolModifyCmd(app),
		newZpoolScrubCmd(app),
		newZpoolCooldownCmd(app),
		newZpoolWaitCmd(app),
	)

	return cmd
}

func newZpoolListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your zpools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			zpools, err := app.zpools.List(cmd.Context())
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), zpools)
			}
			return printView(cmd.OutOrStdout(), app.renderer.ZpoolList(zpools))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newZpoolCreateCmd(app *app) *cobra.Command {
	var (
		size       int
		volumeType string
		wait       bool
		timeout    time.Duration
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new zpool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := submit(cmd, asJSON, "Creating zpool...", func(ctx context.Context) (domain.SubmitResult, error) {
				return app.zpools.Create(ctx, domain.CreateZpoolRequest{SizeGiB: size, VolumeType: volumeType})
			})
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}

			if !wait {
				return app.printSubmitted(cmd, asJSON, "Zpool creation submitted", result)
			}
			if !asJSON {
				if err := printView(cmd.ErrOrStderr(), app.renderer.Submitted("Zpool creation submitted", result)); err != nil {
					return err
				}
			}
			return app.waitForSubmittedJob(cmd, asJSON, result, domain.JobKindZpoolCreate, string(result.ZpoolID), application.WaitOptions{
				Name:    "Zpool creation",
				Timeout: timeout,
			})
		},
	}

	cmd.Flags().IntVar(&size, "size", domain.DefaultZpoolSizeGiB, "Size in GiB")
	cmd.Flags().StringVar(&volumeType, "volume-type", domain.VolumeTypeGP3, "EBS volume type (gp3, sc1)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the creation job to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultTimeout, "Maximum time to wait")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newZpoolDeleteCmd(app *app) *cobra.Command {
	var (
		yes     bool
		wait    bool
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "delete <zpool-id>",
		Short: "Delete a zpool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ZpoolID(args[0])

			if !yes && !asJSON {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Are you sure you want to delete zpool %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return err
				}
			}

			result, err := submit(cmd, asJSON, "Deleting zpool...", func(ctx context.Context) (domain.SubmitResult, error) {
				return app.zpools.Delete(ctx, id)
			})
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}
			if result.ZpoolID == "" {
				result.ZpoolID = id
			}

			if !wait {
				return app.printSubmitted(cmd, asJSON, fmt.Sprintf("Deletion of zpool %s submitted", id), result)
			}
			if !asJSON {
				if err := printView(cmd.ErrOrStderr(), app.renderer.Submitted(fmt.Sprintf("Deletion of zpool %s submitted", id), result)); err != nil {
					return err
				}
			}
			return app.waitForSubmittedJob(cmd, asJSON, result, domain.JobKindZpoolDelete, string(id), application.WaitOptions{
				Name:    fmt.Sprintf("Delete zpool %s", id),
				Timeout: timeout,
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the deletion job to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultTimeout, "Maximum time to wait")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newZpoolModifyCmd(app *app) *cobra.Command {
	var (
		volumeType   string
		size         int
		wait         bool
		waitCooldown bool
		timeout      time.Duration
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "modify <zpool-id>",
		Short: "Change the volume type or size of a zpool",
		Long:  "Change the volume type or size of a zpool. A zpool can be modified once every 6 hours; --wait-cooldown waits out the remaining window before submitting.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ZpoolID(args[0])
			req := domain.ModifyZpoolRequest{VolumeType: volumeType, SizeGiB: size}
			if err := application.ValidateModifyRequest(req); err != nil {
				return err
			}

			info, err := app.zpools.Cooldown(cmd.Context(), id)
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}
			if info.InCooldown {
				if !asJSON {
					if err := printView(cmd.ErrOrStderr(), app.renderer.Cooldown(id, info)); err != nil {
						return err
					}
				}
				if !waitCooldown {
					return fmt.Errorf("zpool %s: %w; rerun with --wait-cooldown to wait it out", id, domain.ErrInCooldown)
				}

				notify := func(next time.Time) {
					if !asJSON {
						_ = printView(cmd.ErrOrStderr(), app.renderer.RefreshNotice(next))
					}
				}
				if err := app.zpools.WaitOutCooldown(cmd.Context(), info, notify); err != nil {
					return explain(cmd, asJSON, "", fmt.Errorf("wait for cooldown of zpool %s: %w", id, err))
				}
			}

			result, err := submit(cmd, asJSON, "Submitting modification...", func(ctx context.Context) (domain.SubmitResult, error) {
				return app.zpools.Modify(ctx, id, req)
			})
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}
			if result.ZpoolID == "" {
				result.ZpoolID = id
			}

			action := fmt.Sprintf("Modification of zpool %s submitted", id)
			if !wait {
				return app.printSubmitted(cmd, asJSON, action, result)
			}
			if !asJSON {
				if err := printView(cmd.ErrOrStderr(), app.renderer.Submitted(action, result)); err != nil {
					return err
				}
			}
			return app.waitForVolumes(cmd, asJSON, id, application.WaitOptions{Timeout: timeout})
		},
	}

	cmd.Flags().StringVar(&volumeType, "volume-type", "", "New EBS volume type (gp3, sc1)")
	cmd.Flags().IntVar(&size, "size", 0, "New size in GiB")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the volume modification to finish")
	cmd.Flags().BoolVar(&waitCooldown, "wait-cooldown", false, "Wait out the modification cooldown before submitting")
	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultTimeout, "Maximum time to wait for the modification")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newZpoolScrubCmd(app *app) *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "scrub <zpool-id>",
		Short: "Start a scrub on a zpool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ZpoolID(args[0])

			result, err := submit(cmd, asJSON, "Starting scrub...", func(ctx context.Context) (domain.SubmitResult, error) {
				return app.zpools.Scrub(ctx, id)
			})
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}
			if result.ZpoolID == "" {
				result.ZpoolID = id
			}

			action := fmt.Sprintf("Scrub started for zpool %s", id)
			if !wait {
				return app.printSubmitted(cmd, asJSON, action, result)
			}
			if !asJSON {
				if err := printView(cmd.ErrOrStderr(), app.renderer.Submitted(action, result)); err != nil {
					return err
				}
			}
			return app.waitForSubmittedJob(cmd, asJSON, result, domain.JobKindZpoolScrub, string(id), application.WaitOptions{
				Name:    fmt.Sprintf("Scrub zpool %s", id),
				Timeout: timeout,
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the scrub job to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultTimeout, "Maximum time to wait")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newZpoolCooldownCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cooldown <zpool-id>",
		Short: "Show when a zpool can next be modified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ZpoolID(args[0])

			info, err := app.zpools.Cooldown(cmd.Context(), id)
			if err != nil {
				return explain(cmd, asJSON, "", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			return printView(cmd.OutOrStdout(), app.renderer.Cooldown(id, info))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newZpoolWaitCmd(app *app) *cobra.Command {
	var (
		timeout      time.Duration
		pollInterval time.Duration
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "wait <zpool-id>",
		Short: "Wait for a running volume modification to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.waitForVolumes(cmd, asJSON, domain.ZpoolID(args[0]), application.WaitOptions{
				Timeout:      timeout,
				PollInterval: pollInterval,
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultTimeout, "Maximum time to wait")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", application.DefaultVolumePollInterval, "Time between API polls")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func (a *app) printSubmitted(cmd *cobra.Command, asJSON bool, action string, result domain.SubmitResult) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return printView(cmd.OutOrStdout(), a.renderer.Submitted(action, result))
}

// waitForSubmittedJob follows the job a submission started. Responses that
// carry no job id are matched to the newest job of kind for the zpool.
func (a *app) waitForSubmittedJob(cmd *cobra.Command, asJSON bool, result domain.SubmitResult, kind string, zpoolID string, opts application.WaitOptions) error {
	opts.Display = display(cmd, asJSON)

	if result.JobID != "" {
		snapshot, err := a.jobs.WaitForJob(cmd.Context(), result.JobID, opts)
		if err != nil {
			return explain(cmd, asJSON, "zpools job wait "+string(result.JobID), err)
		}
		return a.printOutcome(cmd, asJSON, opts.Name, snapshot)
	}

	resumed, err := a.jobs.FindAndResume(cmd.Context(), kind, zpoolID, opts)
	if err != nil {
		return explain(cmd, asJSON, resumeCommand(kind, zpoolID), err)
	}
	return a.printResumed(cmd, asJSON, opts.Name, resumed)
}

// printResumed reports a located job. One that had already finished was never
// monitored, so a failure it ended with is reported here instead.
func (a *app) printResumed(cmd *cobra.Command, asJSON bool, name string, resumed application.ResumeResult) error {
	if !resumed.Attached && !asJSON {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Job %s had already finished.\n", resumed.Snapshot.Job.ID)
	}
	if err := a.printOutcome(cmd, asJSON, name, resumed.Snapshot); err != nil {
		return err
	}
	if _, err := domain.JobCompletion(resumed.Snapshot); err != nil {
		return explain(cmd, asJSON, "", err)
	}
	return nil
}

func (a *app) waitForVolumes(cmd *cobra.Command, asJSON bool, id domain.ZpoolID, opts application.WaitOptions) error {
	opts.Display = display(cmd, asJSON)

	zpool, err := a.zpools.WaitForVolumeModification(cmd.Context(), id, opts)
	if err != nil {
		return explain(cmd, asJSON, "zpools zpool wait "+string(id), err)
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), zpool)
	}
	return printView(cmd.OutOrStdout(), a.renderer.ModificationComplete(zpool))
}

func (a *app) printOutcome(cmd *cobra.Command, asJSON bool, name string, snapshot domain.JobSnapshot) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), snapshot)
	}
	if name == "" {
		name = "Job " + string(snapshot.Job.ID)
	}
	return printView(cmd.OutOrStdout(), a.renderer.Outcome(name, snapshot.Job))
}

func resumeCommand(kind string, zpoolID string) string {
	if zpoolID == "" {
		return "zpools job resume " + kind
	}
	return fmt.Sprintf("zpools job resume %s --zpool %s", kind, zpoolID)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tigerroll/dumpshift/internal/orchestrator"
	"github.com/tigerroll/dumpshift/pkg/batch/core/config"
	model "github.com/tigerroll/dumpshift/pkg/batch/core/domain/model"
	"github.com/tigerroll/dumpshift/pkg/batch/core/domain/repository"
)

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var (
		jobs  []string
		limit int
		id    string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs recorded in the job repository",
		Long: `Lists the executions stored by repository.type "sql". With --id the steps of
one execution are shown instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Dumpshift.Repository.Type != config.RepositoryTypeSQL {
				pterm.Warning.Println("repository.type is \"memory\"; no history is kept between runs.")
				return nil
			}
			var repo repository.JobRepository
			return runWithApp(cmd.Context(), cfg, func(ctx context.Context) error {
				if id != "" {
					return printExecution(ctx, repo, id)
				}
				return printHistory(ctx, repo, jobs, limit)
			}, &repo)
		},
	}
	cmd.Flags().StringSliceVar(&jobs, "job", []string{orchestrator.BatchJobName, orchestrator.SingleJobName}, "job names to list")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum executions listed per job (0 for all)")
	cmd.Flags().StringVar(&id, "id", "", "show the steps of one execution")
	return cmd
}

func printHistory(ctx context.Context, repo repository.JobRepository, jobs []string, limit int) error {
	data := pterm.TableData{{"ID", "Job", "Status", "Exit", "Started", "Duration", "Failures"}}
	for _, job := range jobs {
		executions, err := repo.FindJobExecutionsByName(ctx, job)
		if err != nil {
			return failStage("History", err)
		}
		if limit > 0 && len(executions) > limit {
			executions = executions[:limit]
		}
		for _, je := range executions {
			data = append(data, []string{
				je.ID,
				je.JobName,
				je.Status.String(),
				je.ExitStatus.String(),
				je.StartTime.Local().Format(time.DateTime),
				finishedDuration(je.EndTime, je.StartTime),
				fmt.Sprint(len(je.Failures)),
			})
		}
	}
	if len(data) == 1 {
		pterm.Info.Println("No executions recorded.")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printExecution(ctx context.Context, repo repository.JobRepository, id string) error {
	je, err := repo.FindJobExecutionByID(ctx, id)
	if err != nil {
		return failStage("History", err)
	}
	pterm.Info.Printf("%s %s: %s (%s)\n", je.JobName, je.ID, je.Status, je.ExitStatus)
	for _, f := range je.Failures {
		pterm.Println("  " + f)
	}

	data := pterm.TableData{{"Step", "Status", "Exit", "In", "Out", "Duration", "Failure"}}
	for _, se := range je.StepExecutions {
		data = append(data, []string{
			se.StepName,
			se.Status.String(),
			se.ExitStatus.String(),
			fmt.Sprint(se.BytesRead),
			fmt.Sprint(se.BytesWritten),
			finishedDuration(se.EndTime, se.StartTime),
			firstFailure(se),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func finishedDuration(end *time.Time, start time.Time) string {
	if end == nil {
		return "-"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}

func firstFailure(se *model.StepExecution) string {
	if len(se.Failures) == 0 {
		return ""
	}
	return se.Failures[0]
}

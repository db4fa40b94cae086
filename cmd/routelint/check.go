package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [packages...]",
	Short: "Analyze route patterns of Go packages",
	Long: `Analyze the route patterns of the given packages (default ./...)
and print diagnostics. Exits with status 1 when a diagnostic reaches
the failOn severity of the config.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("json", false, "print results as JSON")
	checkCmd.Flags().Bool("publish", false, "publish reports to the configured message broker")
	checkCmd.Flags().Int("jobs", 0, "max packages analyzed in parallel (0=auto)")
	checkCmd.Flags().Bool("no-store", false, "ignore the configured report store")
	checkCmd.Flags().String("dir", ".", "directory package patterns are relative to")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log, conf, err := setup(cmd)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}
	publish, err := cmd.Flags().GetBool("publish")
	if err != nil {
		return fmt.Errorf("failed to get publish flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	noStore, err := cmd.Flags().GetBool("no-store")
	if err != nil {
		return fmt.Errorf("failed to get no-store flag: %w", err)
	}
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return fmt.Errorf("failed to get dir flag: %w", err)
	}
	if len(args) == 0 {
		args = []string{"./..."}
	}

	p, err := newPipeline(log, conf, !noStore, publish)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := cmd.Context()
	results, err := p.run(ctx, dir, args, jobs)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, results); err != nil {
		log.Error("publishing reports", slog.Any("err", err))
	}

	threshold := conf.FailOn.Severity()
	failed := 0
	if asJSON {
		if err := writeJSON(os.Stdout, results); err != nil {
			return err
		}
		for _, r := range results {
			failed += r.Count(threshold)
		}
	} else {
		pr := newPrinter(os.Stdout)
		for _, r := range results {
			pr.result(r)
		}
		failed = pr.summary(results, threshold)
	}
	if failed > 0 {
		return errFindings
	}
	return nil
}

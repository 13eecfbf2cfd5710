package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/optiscreen/api"
	"github.com/seenimoa/optiscreen/internal/scheduler"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if host, _ := cmd.Flags().GetString("host"); host != "" {
			cfg.API.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		withScheduler, _ := cmd.Flags().GetBool("with-scheduler")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := deps.Store(ctx)
		if err != nil {
			return err
		}
		hub := api.NewHub(log)
		srv := api.NewServer(cfg, st, log, api.WithVersion(version), api.WithHub(hub))

		if withScheduler {
			sched, err := startScheduler(cmd, scheduler.WithPublisher(hub))
			if err != nil {
				return err
			}
			defer sched.Stop()
		}

		fmt.Fprintf(cmd.OutOrStdout(), "🌐 optiscreen API listening on %s\n", cfg.Addr())
		return srv.ListenAndServe(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (default: api.host)")
	serveCmd.Flags().Int("port", 0, "listen port (default: api.port)")
	serveCmd.Flags().Bool("with-scheduler", false, "also run the periodic jobs from schedule.*")
}

// --- Schedule Command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the periodic jobs from schedule.* until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched, err := startScheduler(cmd)
		if err != nil {
			return err
		}
		defer sched.Stop()

		jobs := sched.Jobs()
		if len(jobs) == 0 {
			return fmt.Errorf("no jobs scheduled; set at least one of schedule.screeners, schedule.cboe_weeklies, schedule.profile_data or schedule.put_checker")
		}
		out := cmd.OutOrStdout()
		for _, j := range jobs {
			fmt.Fprintf(out, "  %-15s %-20s next %s\n", j.Name, j.Spec, j.Next.Format("2006-01-02 15:04"))
		}
		<-ctx.Done()
		return nil
	},
}

// startScheduler registers every configured task job and starts the
// scheduler.
func startScheduler(cmd *cobra.Command, opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	r, err := deps.Runner(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), false)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(log, opts...)
	for _, job := range scheduler.TaskJobs(r, cfg.Schedule) {
		if _, err := sched.Add(job); err != nil {
			return nil, err
		}
	}
	sched.Start()
	return sched, nil
}

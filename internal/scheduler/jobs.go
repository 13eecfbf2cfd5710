package scheduler

import (
	"context"
	"errors"

	"github.com/seenimoa/optiscreen/internal/analysis/derivatives"
	"github.com/seenimoa/optiscreen/internal/config"
	"github.com/seenimoa/optiscreen/internal/tasks"
)

// Job names.
const (
	JobScreeners    = "screeners"
	JobCboeWeeklies = "cboe_weeklies"
	JobProfileData  = "profile_data"
	JobPutChecker   = "put_checker"
)

// TaskJobs binds the periodic tasks of r to the specs in cfg. Profile data
// and the put checker run once per screener in cfg.ScreenerList.
func TaskJobs(r *tasks.Runner, cfg config.ScheduleConfig) []Job {
	screeners := cfg.ScreenerList
	return []Job{
		{
			Name: JobScreeners,
			Spec: cfg.Screeners,
			Run: func(ctx context.Context) error {
				_, err := r.FetchScreeners(ctx)
				return err
			},
		},
		{
			Name: JobCboeWeeklies,
			Spec: cfg.CboeWeeklies,
			Run: func(ctx context.Context) error {
				_, err := r.SyncCboeWeeklies(ctx)
				return err
			},
		},
		{
			Name: JobProfileData,
			Spec: cfg.ProfileData,
			Run: func(ctx context.Context) error {
				return eachScreener(ctx, screeners, func(name string) error {
					_, err := r.FetchProfileData(ctx, tasks.ProfileOptions{Screener: name})
					return err
				})
			},
		},
		{
			Name: JobPutChecker,
			Spec: cfg.PutChecker,
			Run: func(ctx context.Context) error {
				return eachScreener(ctx, screeners, func(name string) error {
					_, err := r.PutChecker(ctx, name, derivatives.DefaultThresholds())
					return err
				})
			},
		},
	}
}

// eachScreener runs fn for every screener, collecting failures so one bad
// screener does not starve the rest.
func eachScreener(ctx context.Context, screeners []string, fn func(string) error) error {
	var errs []error
	for _, name := range screeners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package msdata

import (
	"os"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/jobs"
	"github.com/TUD-INF-IAI-MCI/matshare/src/utils"
	"github.com/jackc/pgx/v5/pgxpool"
)

/*
PeriodicallyCleanUp sweeps hourly: material builds whose revision no longer
matches their course's current one are deleted together with their output
directories, and easy access tokens past their expiration day are removed.
*/
func PeriodicallyCleanUp(conn *pgxpool.Pool) *jobs.Job {
	job := jobs.New("periodic cleanup")
	go func() {
		defer job.Finish()

		t := time.NewTicker(1 * time.Hour)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				err := func() (err error) {
					defer utils.RecoverPanicAsError(&err)

					staleDirs, err := ClearOutdatedBuilds(job.Ctx, conn)
					if err != nil {
						return err
					}
					for _, dir := range staleDirs {
						err := os.RemoveAll(dir)
						if err != nil {
							job.Logger.Error().Err(err).Str("dir", dir).Msg("failed to remove stale build output")
						}
					}
					if len(staleDirs) > 0 {
						job.Logger.Info().Int("num builds", len(staleDirs)).Msg("cleared outdated material builds")
					}

					numTokens, err := ClearExpiredEasyAccesses(job.Ctx, conn)
					if err != nil {
						return err
					}
					if numTokens > 0 {
						job.Logger.Info().Int("num tokens", numTokens).Msg("cleared expired easy access tokens")
					}
					return nil
				}()
				if err != nil {
					job.Logger.Error().Err(err).Msg("periodic cleanup failed")
				}
			case <-job.Ctx.Done():
				return
			}
		}
	}()
	return job
}

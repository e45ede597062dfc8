package service

import (
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/email"
	"github.com/TUD-INF-IAI-MCI/matshare/src/jobs"
	"github.com/TUD-INF-IAI-MCI/matshare/src/logging"
	"github.com/TUD-INF-IAI-MCI/matshare/src/material"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msdata"
	"github.com/TUD-INF-IAI-MCI/matshare/src/notifications"
	"github.com/TUD-INF-IAI-MCI/matshare/src/queue"
	"github.com/spf13/cobra"
)

var ServiceCommand = &cobra.Command{
	Short: "Run the MatShare service",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		logging.Info().Msg("Hello, MatShare!")

		var wg sync.WaitGroup

		conn := db.NewConnPool()

		material.RegisterJobs()

		// Start background jobs
		wg.Add(1)
		backgroundJobs := jobs.Jobs{
			queue.RunWorkers(conn),
			notifications.PeriodicallyDispatch(conn, email.NewSMTPSender()),
			msdata.PeriodicallyCleanUp(conn),
		}

		// Wait for SIGINT in the background and trigger graceful shutdown
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		go func() {
			<-signals // First SIGINT (start shutdown)
			logging.Info().Msg("Shutting down the service")

			go func() {
				logging.Info().Msg("Shutting down background jobs...")
				unfinished := backgroundJobs.CancelAndWait(10 * time.Second)
				if len(unfinished) == 0 {
					logging.Info().Msg("Background jobs closed gracefully")
				} else {
					logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
				}
				wg.Done()
			}()

			<-signals // Second SIGINT (force quit)
			logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the service")
			os.Exit(1)
		}()

		wg.Wait()
	},
}

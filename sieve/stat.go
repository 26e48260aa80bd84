package main

import (
	"github.com/spf13/cobra"

	"github.com/MG-RAST/Sieve/sieve/conf"
	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/logger"
	"github.com/MG-RAST/Sieve/sieve/pipeline"
	"github.com/MG-RAST/Sieve/sieve/pool"
	"github.com/MG-RAST/Sieve/sieve/stats"
	"github.com/MG-RAST/Sieve/sieve/stream/fastq"
)

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "per-position quality and base composition report",
	RunE:  runStat,
}

func init() {
	f := statCmd.Flags()
	f.StringVarP(&conf.INPUT_PATH, "input", "i", "", "input FASTQ file, plain or gzip")
	f.StringVarP(&conf.STAT_PATH, "output", "o", "", "statistics report path")
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) error {
	if err := conf.Validate(false); err != nil {
		return err
	}
	if conf.STAT_PATH == "" {
		return errors.New(errors.KindConfig, "statistics output path is required")
	}

	source, err := fastq.NewReader(conf.INPUT_PATH)
	if err != nil {
		return err
	}

	rs := stats.NewRunStats()
	if !conf.ENABLE_STATISTICS {
		rs.DisableTimings()
	}
	p := pool.New(conf.POOL_CAPACITY, conf.BATCH_SIZE, conf.ENABLE_MEMORY_POOL)

	logger.Info("stat run starting: " + conf.INPUT_PATH)
	acc, summary, err := pipeline.RunStatistics(pipeline.StatOptions{
		Source:      source,
		PhredOffset: conf.PHRED_OFFSET,
		BatchSize:   conf.BATCH_SIZE,
		Workers:     conf.WORKER_COUNT,
		TokenBudget: conf.TOKEN_BUDGET,
		Pool:        p,
		Stats:       rs,
	})
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	if err := stats.WriteReportFile(conf.STAT_PATH, conf.INPUT_PATH, conf.PHRED_OFFSET, acc); err != nil {
		logger.Error(err.Error())
		return err
	}
	logger.Perf(summary.String())
	logger.Info("statistics report saved: " + conf.STAT_PATH)
	return nil
}

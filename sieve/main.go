// Sieve filters and summarizes gzip compressed FASTQ streams through a
// bounded parallel batch pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MG-RAST/Sieve/sieve/conf"
	"github.com/MG-RAST/Sieve/sieve/logger"
)

const Version = "0.9.1"

var rootCmd = &cobra.Command{
	Use:     "sieve",
	Short:   "batch FASTQ processing and statistics engine",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := conf.Overlay(cmd.Flags().Changed); err != nil {
			return err
		}
		logger.Initialize()
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&conf.CONFIG_FILE, "conf", conf.CONFIG_FILE, "path to config file")
	pf.StringVar(&conf.PATH_LOGS, "logs", conf.PATH_LOGS, "directory for log files")
	pf.StringVar(&conf.LOG_OUTPUT, "log-output", conf.LOG_OUTPUT, "log destination (console|file|none)")
	pf.BoolVar(&conf.LOG_ROTATE, "log-rotate", conf.LOG_ROTATE, "rotate log files daily")

	pf.IntVarP(&conf.WORKER_COUNT, "workers", "t", conf.WORKER_COUNT, "transform workers, 0 uses all cores, 1 runs sequentially")
	pf.IntVar(&conf.BATCH_SIZE, "batch-size", conf.BATCH_SIZE, "records per batch")
	pf.IntVar(&conf.TOKEN_BUDGET, "token-budget", conf.TOKEN_BUDGET, "max in-flight batches")
	pf.IntVar(&conf.POOL_CAPACITY, "pool-capacity", conf.POOL_CAPACITY, "max batches held by the pool")
	pf.BoolVar(&conf.ENABLE_MEMORY_POOL, "memory-pool", conf.ENABLE_MEMORY_POOL, "recycle batch memory across the run")
	pf.BoolVar(&conf.ENABLE_STATISTICS, "statistics", conf.ENABLE_STATISTICS, "maintain non-essential counters and timers")
	pf.IntVar(&conf.PHRED_OFFSET, "phred-offset", conf.PHRED_OFFSET, "quality encoding offset (33 or 64)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

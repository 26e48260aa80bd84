package main

import (
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MG-RAST/Sieve/sieve/conf"
	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/filter"
	"github.com/MG-RAST/Sieve/sieve/logger"
	"github.com/MG-RAST/Sieve/sieve/pipeline"
	"github.com/MG-RAST/Sieve/sieve/pool"
	"github.com/MG-RAST/Sieve/sieve/stats"
	"github.com/MG-RAST/Sieve/sieve/stream"
	"github.com/MG-RAST/Sieve/sieve/stream/fastq"
)

var (
	outputPathMate string

	minQuality   float64
	minLength    int
	maxLength    int
	maxNRatio    float64
	trimQuality  float64
	trimMinLen   int
	trimMode     string
	trimHead     int
	trimTail     int
	showProgress bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "filter and trim FASTQ records, preserving input order",
	RunE:  runFilter,
}

func init() {
	f := filterCmd.Flags()
	f.StringVarP(&conf.INPUT_PATH, "input", "i", "", "input FASTQ file, plain or gzip")
	f.StringVarP(&conf.INPUT_PATH_MATE, "input-mate", "I", "", "mate FASTQ file for paired-end mode")
	f.StringVarP(&conf.OUTPUT_PATH, "output", "o", "", "output FASTQ file (.gz or .zst compresses)")
	f.StringVarP(&outputPathMate, "output-mate", "O", "", "mate output file for paired-end mode")

	f.Float64Var(&minQuality, "min-quality", 0, "drop records with mean phred below this")
	f.IntVar(&minLength, "min-length", 0, "drop records shorter than this")
	f.IntVar(&maxLength, "max-length", 0, "drop records longer than this")
	f.Float64Var(&maxNRatio, "max-n-ratio", 0, "drop records whose N fraction exceeds this")
	f.Float64Var(&trimQuality, "trim-quality", 0, "trim end bases below this quality")
	f.IntVar(&trimMinLen, "trim-min-length", 0, "drop reads trimmed below this length")
	f.StringVar(&trimMode, "trim-mode", "both", "trim mode (both|five|three)")
	f.IntVar(&trimHead, "trim-head", 0, "trim a fixed number of 5' bases")
	f.IntVar(&trimTail, "trim-tail", 0, "trim a fixed number of 3' bases")
	f.BoolVar(&showProgress, "progress", false, "show a progress line on stderr")

	rootCmd.AddCommand(filterCmd)
}

// buildChains wires predicate and mutator chains from the flags the user
// set. Predicates come first (min-quality, min-length, max-length,
// max-n-ratio), then mutators (trim-head, trim-tail, trim-quality).
func buildChains(flags interface{ Changed(string) bool }) ([]filter.Predicate, []filter.Mutator, error) {
	var predicates []filter.Predicate
	var mutators []filter.Mutator

	if flags.Changed("min-quality") {
		p, err := filter.NewMinQuality(minQuality, conf.PHRED_OFFSET)
		if err != nil {
			return nil, nil, err
		}
		predicates = append(predicates, p)
	}
	if flags.Changed("min-length") {
		predicates = append(predicates, filter.NewMinLength(minLength))
	}
	if flags.Changed("max-length") {
		predicates = append(predicates, filter.NewMaxLength(maxLength))
	}
	if flags.Changed("max-n-ratio") {
		p, err := filter.NewMaxNRatio(maxNRatio)
		if err != nil {
			return nil, nil, err
		}
		predicates = append(predicates, p)
	}

	if flags.Changed("trim-head") {
		mutators = append(mutators, filter.NewHeadTrimmer(trimHead))
	}
	if flags.Changed("trim-tail") {
		mutators = append(mutators, filter.NewTailTrimmer(trimTail))
	}
	if flags.Changed("trim-quality") {
		mode, err := filter.ParseTrimMode(trimMode)
		if err != nil {
			return nil, nil, err
		}
		m, err := filter.NewQualityTrimmer(trimQuality, trimMinLen, mode, conf.PHRED_OFFSET)
		if err != nil {
			return nil, nil, err
		}
		mutators = append(mutators, m)
	}
	return predicates, mutators, nil
}

func runFilter(cmd *cobra.Command, args []string) error {
	if err := conf.Validate(true); err != nil {
		return err
	}
	if conf.INPUT_PATH_MATE != "" && outputPathMate == "" {
		return errors.New(errors.KindConfig, "paired-end mode requires an output mate path")
	}

	predicates, mutators, err := buildChains(cmd.Flags())
	if err != nil {
		return err
	}

	var source stream.Source
	var sink stream.Sink
	if conf.INPUT_PATH_MATE != "" {
		source, err = fastq.NewPairedReader(conf.INPUT_PATH, conf.INPUT_PATH_MATE)
		if err != nil {
			return err
		}
		sink, err = fastq.NewPairedWriter(conf.OUTPUT_PATH, outputPathMate)
	} else {
		source, err = fastq.NewReader(conf.INPUT_PATH)
		if err != nil {
			return err
		}
		sink, err = fastq.NewWriter(conf.OUTPUT_PATH)
	}
	if err != nil {
		source.Close()
		return err
	}

	rs := stats.NewRunStats()
	if !conf.ENABLE_STATISTICS {
		rs.DisableTimings()
	}
	p := pool.New(conf.POOL_CAPACITY, conf.BATCH_SIZE, conf.ENABLE_MEMORY_POOL)

	stop := make(chan struct{})
	if showProgress {
		go progressLoop(rs, stop)
	}

	logger.Info("filter run starting: " + conf.INPUT_PATH)
	summary, err := pipeline.Run(pipeline.Options{
		Source:      source,
		Sink:        sink,
		Predicates:  predicates,
		Mutators:    mutators,
		BatchSize:   conf.BATCH_SIZE,
		Workers:     conf.WORKER_COUNT,
		TokenBudget: conf.TOKEN_BUDGET,
		Pool:        p,
		Stats:       rs,
	})
	close(stop)
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	logger.Perf(summary.String())
	printSummary(summary)
	return nil
}

// progressLoop repaints one stderr line with the records consumed so far.
func progressLoop(rs *stats.RunStats, stop <-chan struct{}) {
	bar := pb.Full.Start64(0)
	bar.SetWriter(os.Stderr)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			bar.SetCurrent(int64(rs.RecordsIn()))
			bar.Finish()
			return
		case <-ticker.C:
			bar.SetCurrent(int64(rs.RecordsIn()))
		}
	}
}

func printSummary(s stats.Summary) {
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "reads in       %d\n", s.RecordsIn)
	green.Fprintf(os.Stderr, "reads passed   %d (%.2f%%)\n", s.RecordsPassed, s.PassRate*100)
	green.Fprintf(os.Stderr, "reads filtered %d (%.2f%%)\n", s.RecordsFiltered, s.FilterRate*100)
	if s.RecordsErrored > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "reads errored  %d\n", s.RecordsErrored)
	}
	green.Fprintf(os.Stderr, "elapsed %s, %.2f MB/s\n", s.Elapsed.Round(time.Millisecond), s.MBPerSec)
}

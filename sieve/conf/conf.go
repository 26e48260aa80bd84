// Package conf holds the runtime settings for the sieve commands. Settings
// are package level, seeded with defaults, optionally overlaid from an INI
// style config file, and bound to command line flags by the CLI.
package conf

import (
	"github.com/jaredwilkening/goconfig/config"

	"github.com/MG-RAST/Sieve/sieve/errors"
)

const (
	// MaxQual bounds the per-position quality histogram. 64 covers both
	// Phred+33 and Phred+64 within the standard 0-41 range with headroom.
	MaxQual = 64

	PhredSanger      = 33
	PhredIllumina13  = 64
	MaxPhredScore    = 93
	EstimatedAvgRead = 150
)

// Setup conf variables
var (
	// Config file
	CONFIG_FILE = ""

	// Streams
	INPUT_PATH      = ""
	INPUT_PATH_MATE = ""
	OUTPUT_PATH     = ""
	STAT_PATH       = ""

	// Engine tuning
	BATCH_SIZE    = 10000
	WORKER_COUNT  = 0
	TOKEN_BUDGET  = 16
	POOL_CAPACITY = 50

	ENABLE_MEMORY_POOL = true
	ENABLE_STATISTICS  = true

	PHRED_OFFSET = PhredSanger

	// Logs
	PATH_LOGS  = "."
	LOG_OUTPUT = "console"
	LOG_ROTATE = false
)

// Overlay reads the config file at CONFIG_FILE and applies its values. A
// setting the user already pinned on the command line is skipped; changed
// reports whether the named flag was given explicitly.
func Overlay(changed func(flag string) bool) error {
	if CONFIG_FILE == "" {
		return nil
	}
	c, err := config.ReadDefault(CONFIG_FILE)
	if err != nil {
		return errors.Wrap(errors.KindConfig, err, "error reading conf file")
	}

	setInt := func(section, option, flag string, dst *int) {
		if changed(flag) {
			return
		}
		if v, err := c.Int(section, option); err == nil {
			*dst = v
		}
	}
	setBool := func(section, option, flag string, dst *bool) {
		if changed(flag) {
			return
		}
		if v, err := c.Bool(section, option); err == nil {
			*dst = v
		}
	}
	setString := func(section, option, flag string, dst *string) {
		if changed(flag) {
			return
		}
		if v, err := c.String(section, option); err == nil {
			*dst = v
		}
	}

	setInt("Engine", "batch-size", "batch-size", &BATCH_SIZE)
	setInt("Engine", "workers", "workers", &WORKER_COUNT)
	setInt("Engine", "token-budget", "token-budget", &TOKEN_BUDGET)
	setInt("Engine", "pool-capacity", "pool-capacity", &POOL_CAPACITY)
	setBool("Engine", "memory-pool", "memory-pool", &ENABLE_MEMORY_POOL)
	setBool("Engine", "statistics", "statistics", &ENABLE_STATISTICS)
	setInt("Engine", "phred-offset", "phred-offset", &PHRED_OFFSET)

	setString("Log", "logs", "logs", &PATH_LOGS)
	setString("Log", "output", "log-output", &LOG_OUTPUT)
	setBool("Log", "rotate", "log-rotate", &LOG_ROTATE)

	return nil
}

// Validate checks the engine settings before any stage starts.
func Validate(needOutput bool) error {
	if INPUT_PATH == "" {
		return errors.New(errors.KindConfig, "input path is required")
	}
	if needOutput && OUTPUT_PATH == "" {
		return errors.New(errors.KindConfig, "output path is required")
	}
	if BATCH_SIZE < 1 {
		return errors.New(errors.KindConfig, "batch size must be >= 1")
	}
	if TOKEN_BUDGET < 2 {
		return errors.New(errors.KindConfig, "token budget must be >= 2")
	}
	if POOL_CAPACITY < TOKEN_BUDGET {
		return errors.New(errors.KindConfig, "pool capacity must be >= token budget")
	}
	if PHRED_OFFSET != PhredSanger && PHRED_OFFSET != PhredIllumina13 {
		return errors.New(errors.KindConfig, "phred offset must be 33 or 64")
	}
	return nil
}

// Command simbaby generates days of realistic baby events, submits them
// to a running cribsense service, and checks predictions at the planted
// crying episodes.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/mirelk/cribsense/internal/simulate"
	"github.com/mirelk/cribsense/pkg/logger"
)

const (
	defaultBabies     = 3
	defaultDays       = 2
	defaultWorkerMult = 2
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of the service")
		babies   = flag.Int("babies", defaultBabies, "Number of babies to simulate")
		days     = flag.Int("days", defaultDays, "Days of history per baby")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkerMult, "Concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		feedback = flag.Bool("feedback", true, "Post feedback with the planted causes")
		verbose  = flag.Bool("verbose", false, "Log every prediction")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:  *baseURL,
		Babies:   *babies,
		Days:     *days,
		Workers:  *workers,
		Timeout:  *timeout,
		Feedback: *feedback,
		Verbose:  *verbose,
	}

	if err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// Command winds computes wind speed, direction and components from the
// pixel displacements between two satellite images.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"

	"github.com/rtm0/winds/internal/config"
	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewMain().Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", errorMessage(err))
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// WorkDir is where relative displacement files and the default *.flo
	// glob are resolved. Empty means the process's working directory.
	WorkDir string

	// Now stamps output directories and exported records.
	Now func() time.Time
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Now: time.Now}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	exited := false
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("winds"),
		kong.Description("Compute winds from the pixel displacements of two satellite images."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) { exited = true }),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return errs.Errorf(errs.EINVALID, "no command specified. Run 'winds --help' to see available commands")
	}

	kongCtx, err := parser.Parse(args)
	if exited {
		return nil
	}
	if err != nil {
		return errs.Errorf(errs.EINVALID, "%s", err)
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}
	if cli.Precision != nil {
		cfg.Precision = *cli.Precision
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	deps.Config = cfg
	deps.precision = cfg.Precision
	deps.Logger = logging.New(stderr, logging.Config{Verbosity: cli.Verbose, Format: cfg.LogFormat})

	deps.WorkDir = m.WorkDir
	if deps.WorkDir == "" {
		if deps.WorkDir, err = os.Getwd(); err != nil {
			return err
		}
	}

	return kongCtx.Run(deps)
}

// errorMessage returns the message printed for err. Application errors
// carry their own; anything else is printed as is.
func errorMessage(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

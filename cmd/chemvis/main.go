// Command chemvis is a terminal client for the equipment API. It drives
// the same dashboard controller as the web server.
//
//	chemvis [flags] history
//	chemvis [flags] show <id>
//	chemvis [flags] upload <file>
//	chemvis [flags] report <id> [-o file]
//	chemvis [flags] export <id> [-o file]
//
// Credentials come from -user and -password or from CHEMVIS_USER and
// CHEMVIS_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/chemvis/dashboard/internal/backend"
	"github.com/chemvis/dashboard/internal/dashboard"
	"github.com/chemvis/dashboard/internal/logging"
	"github.com/chemvis/dashboard/internal/models"
	"github.com/chemvis/dashboard/internal/render"
	"github.com/chemvis/dashboard/internal/upload"
)

var (
	errUsage = errors.New("usage")
	// errReported marks a failure the notifier already printed.
	errReported = errors.New("reported")
)

type options struct {
	apiURL   string
	user     string
	password string
	timeout  time.Duration
	timezone string
	logLevel string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := options{
		user:     os.Getenv("CHEMVIS_USER"),
		password: os.Getenv("CHEMVIS_PASSWORD"),
	}

	fs := flag.NewFlagSet("chemvis", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.apiURL, "api", envOr("CHEMVIS_API_URL", "http://127.0.0.1:8000/api"), "equipment API base URL")
	fs.StringVar(&opts.user, "user", opts.user, "username")
	fs.StringVar(&opts.password, "password", opts.password, "password")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	fs.StringVar(&opts.timezone, "tz", "Local", "time zone for upload dates")
	fs.StringVar(&opts.logLevel, "log-level", "off", "diagnostic log level written to stderr (off, debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: chemvis [flags] history | show <id> | upload <file> | report <id> [-o file] | export <id> [-o file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cli, err := newCLI(opts, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "chemvis:", err)
		return 2
	}

	err = cli.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	case errors.Is(err, errReported):
		return 1
	default:
		fmt.Fprintln(stderr, "chemvis:", err)
		return 1
	}
}

type cli struct {
	opts   options
	ctrl   *dashboard.Controller
	stdout io.Writer
}

func newCLI(opts options, stdout, stderr io.Writer) (*cli, error) {
	loc := time.Local
	if opts.timezone != "" && opts.timezone != "Local" {
		l, err := time.LoadLocation(opts.timezone)
		if err != nil {
			return nil, fmt.Errorf("time zone %q: %w", opts.timezone, err)
		}
		loc = l
	}

	logger := logging.New(stderr, opts.logLevel)
	notices := dashboard.NotifierFunc(func(_ context.Context, n dashboard.Notice) {
		fmt.Fprintf(stderr, "%s: %s\n", n.Source, n.Message)
	})

	ctrl := dashboard.New(dashboard.Options{
		Backend:  backend.NewClient(opts.apiURL, opts.timeout),
		Preparer: upload.NewPreparer(upload.DefaultAllowedTypes, 0),
		Notifier: notices,
		Logger:   logger,
		History:  render.HistoryFormatter{Location: loc},
	})
	return &cli{opts: opts, ctrl: ctrl, stdout: stdout}, nil
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	defer c.ctrl.Close()

	switch cmd {
	case "history":
		if err := c.login(ctx); err != nil {
			return err
		}
		return render.WriteHistory(c.stdout, c.ctrl.Snapshot().History)

	case "show":
		id, _, err := idAndOutput(args)
		if err != nil {
			return err
		}
		if err := c.loginAndView(ctx, id); err != nil {
			return err
		}
		return render.WriteDashboard(c.stdout, c.ctrl.Snapshot().Dashboard)

	case "upload":
		if len(args) != 1 {
			return errUsage
		}
		return c.upload(ctx, args[0])

	case "report":
		id, out, err := idAndOutput(args)
		if err != nil {
			return err
		}
		if err := c.loginAndView(ctx, id); err != nil {
			return err
		}
		report, err := c.ctrl.DownloadReport(ctx)
		if err != nil {
			return errReported
		}
		if out == "" {
			out = report.Filename
		}
		if err := os.WriteFile(out, report.Data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "saved %s (%d bytes)\n", out, len(report.Data))
		return nil

	case "export":
		id, out, err := idAndOutput(args)
		if err != nil {
			return err
		}
		if err := c.loginAndView(ctx, id); err != nil {
			return err
		}
		if out == "" {
			out = render.WorkbookFilename(id)
		}
		return c.export(out)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *cli) login(ctx context.Context) error {
	creds := models.Credentials{Username: c.opts.user, Password: c.opts.password}
	switch c.ctrl.Login(ctx, creds) {
	case dashboard.LoginIgnored:
		return errors.New("username and password are required (-user/-password or CHEMVIS_USER/CHEMVIS_PASSWORD)")
	case dashboard.LoginRejected, dashboard.LoginFailed:
		return errReported
	}
	return nil
}

func (c *cli) loginAndView(ctx context.Context, id int64) error {
	if err := c.login(ctx); err != nil {
		return err
	}
	if err := c.ctrl.View(ctx, id); err != nil {
		return errReported
	}
	if _, ok := c.ctrl.ActiveDataset(); !ok {
		return fmt.Errorf("dataset %d is not in the recent upload history", id)
	}
	return nil
}

func (c *cli) upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := c.login(ctx); err != nil {
		return err
	}
	if err := c.ctrl.Upload(ctx, f.Name(), f); err != nil {
		return errReported
	}
	return render.WriteDashboard(c.stdout, c.ctrl.Snapshot().Dashboard)
}

func (c *cli) export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.ctrl.ExportWorkbook(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "saved %s\n", path)
	return nil
}

// idAndOutput parses "<id> [-o file]", accepting the flag on either side.
func idAndOutput(args []string) (int64, string, error) {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("o", "", "output file")
	if err := fs.Parse(args); err != nil {
		return 0, "", errUsage
	}
	if fs.NArg() == 0 {
		return 0, "", errUsage
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: invalid dataset id %q", errUsage, fs.Arg(0))
	}
	if err := fs.Parse(fs.Args()[1:]); err != nil || fs.NArg() > 0 {
		return 0, "", errUsage
	}
	return id, *out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

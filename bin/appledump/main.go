package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/inconshreveable/log15"
	"github.com/mattn/go-isatty"

	"github.com/elwinar/appleargs"
	"github.com/elwinar/appleargs/pkg/conf"
	"github.com/elwinar/appleargs/pkg/debughttp"
	"github.com/elwinar/appleargs/pkg/filter"
	"github.com/elwinar/appleargs/pkg/snapshot"
)

var Version = "N/C"

// main is tasked to bootstrap the program and notify of termination signals.
func main() {
	var s service
	s.configure()

	err := s.init()
	if err != nil {
		s.logger.Crit("initializing", "err", err)
		os.Exit(1)
	}

	if s.serve == "" {
		err = s.dump(os.Stdout)
		if err != nil {
			s.logger.Crit("dumping", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		signals := make(chan os.Signal, 2)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		<-signals
		cancel()
	}()

	err = s.run(ctx)
	if err != nil {
		s.logger.Crit("serving", "err", err)
		os.Exit(1)
	}
}

type service struct {
	format       snapshot.Format
	expression   string
	labels       map[string]string
	truncate     datasize.ByteSize
	serve        string
	grace        time.Duration
	logLevel     string
	printVersion bool

	logger log15.Logger
	filter *filter.Filter
	vector *appleargs.Vector
}

// configure read and validate the configuration of the program and populate
// the appropriate fields.
func (s *service) configure() {
	s.format = snapshot.FormatText

	fs := flag.NewFlagSet("appledump-"+Version, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage of appledump: appledump [options]")
		fmt.Fprintln(fs.Output(), "Every option but -version can also be set by an APPLEDUMP_ environment variable, e.g APPLEDUMP_LOG_LEVEL.")
		fs.PrintDefaults()
	}
	fs.Var(&s.format, "format", "output format: text, json or yaml")
	fs.StringVar(&s.expression, "filter", "", "expression selecting the entries to output, e.g 'has_value && key startsWith \"executable\"'")
	fs.Var(conf.MapFlag(&s.labels), "label", "labels to add to the output, as key=value pairs separated by ';'")
	fs.TextVar(&s.truncate, "truncate", datasize.ByteSize(0), "truncate entries longer than this size (0 for no limit)")
	fs.StringVar(&s.serve, "serve", "", "address to serve the vector on over HTTP instead of printing it")
	fs.DurationVar(&s.grace, "serve.grace", 10*time.Second, "time to wait for the pending requests when stopping the server")
	fs.StringVar(&s.logLevel, "log.level", "info", "minimum level of the logs: debug, info, warn, error or crit")
	fs.BoolVar(&s.printVersion, "version", false, "print the version of appledump")
	fs.String("conf", "/etc/appledump/appledump.conf", "configuration file to load")
	conf.Parse(fs, "conf", "APPLEDUMP", "version")
}

// init does the actual bootstraping of the program, once the configuration is
// read.
func (s *service) init() (err error) {
	if s.printVersion {
		fmt.Println("appledump", Version)
		os.Exit(0)
	}

	// Logger
	format := log15.LogfmtFormat()
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		format = log15.TerminalFormat()
	}
	s.logger = log15.New()
	s.logger.SetHandler(log15.StreamHandler(os.Stderr, format))

	lvl, err := log15.LvlFromString(s.logLevel)
	if err != nil {
		return wrap(err, `parsing log level %q`, s.logLevel)
	}
	s.logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, format)))

	// Filter
	s.filter, err = filter.Compile(s.expression)
	if err != nil {
		return wrap(err, `compiling filter`)
	}

	// Vector
	s.vector = appleargs.Process()
	s.logger.Debug("located vector",
		"supported", s.vector.Supported(),
		"present", s.vector.Present(),
		"count", s.vector.Count(),
		"err", s.vector.Err(),
	)

	return nil
}

// dump writes a snapshot of the vector to w.
func (s *service) dump(w io.Writer) error {
	snap, err := snapshot.Take(s.vector, snapshot.Options{
		Labels:   s.labels,
		Truncate: s.truncate,
	}).Select(s.filter.Match)
	if err != nil {
		return wrap(err, `filtering entries`)
	}

	err = snap.Encode(w, s.format)
	if err != nil {
		return wrap(err, `encoding snapshot`)
	}

	return nil
}

// run serves the vector until the context is closed, then waits for the
// pending requests.
func (s *service) run(ctx context.Context) error {
	server := &http.Server{
		Addr: s.serve,
		Handler: debughttp.New(s.vector, s.logger,
			debughttp.WithLabels(s.labels),
			debughttp.WithTruncate(s.truncate),
		),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()
		err := server.Shutdown(ctx)
		if err != nil {
			s.logger.Warn("shutting down server", "err", err)
		}
	}()

	s.logger.Info("starting", "bind", s.serve, "version", Version)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return wrap(err, `serving on %s`, s.serve)
	}

	<-done
	s.logger.Info("stopping")
	return nil
}

// wrap an error using the provided message and arguments.
func wrap(err error, msg string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(msg, args...), err)
}

// Package debughttp serves a read-only view of an apple argument vector over
// HTTP, along with prometheus metrics.
//
//	GET /entries          snapshot of the vector, optionally ?filter=<expr>
//	GET /entries/:index   raw bytes of one entry
//	GET /vars             pseudo-environment as a JSON object
//	GET /vars/:key        value of one variable
//	GET /metrics          prometheus metrics
//
// JSON can only carry valid UTF-8: /entries flags the other entries and
// gives their bytes in base64, while /vars replaces the invalid bytes with
// U+FFFD. /entries/:index and /vars/:key always serve the exact bytes.
package debughttp

import (
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/inconshreveable/log15"
	"github.com/julienschmidt/httprouter"
	gzip "github.com/phyber/negroni-gzip/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/urfave/negroni"

	"github.com/elwinar/appleargs"
	"github.com/elwinar/appleargs/pkg/filter"
	"github.com/elwinar/appleargs/pkg/snapshot"
)

// Source is the vector served by the handler. *appleargs.Vector implements
// it.
type Source interface {
	snapshot.Source
	Count() int
	At(i int) ([]byte, error)
	Vars() iter.Seq2[string, string]
	LookupVar(key string) (string, bool)
}

// Error is the body of every error response.
type Error struct {
	Err string `json:"error"`
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLabels sets the labels of the snapshots served on /entries.
func WithLabels(labels map[string]string) Option {
	return func(h *Handler) {
		h.labels = labels
	}
}

// WithTruncate truncates the entries of the snapshots served on /entries.
func WithTruncate(size datasize.ByteSize) Option {
	return func(h *Handler) {
		h.truncate = size
	}
}

// Handler is the http.Handler serving a Source.
type Handler struct {
	src      Source
	logger   log15.Logger
	labels   map[string]string
	truncate datasize.ByteSize

	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	entrySizes prometheus.Histogram
	router     *httprouter.Router
	stack      *negroni.Negroni
}

// New returns a handler serving src. Requests are logged to logger.
func New(src Source, logger log15.Logger, opts ...Option) *Handler {
	h := &Handler{
		src:    src,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	// Prometheus metrics. The registry is private so that several handlers
	// can live in the same process.
	h.registry = prometheus.NewRegistry()
	h.registry.MustRegister(prometheus.NewGoCollector())
	h.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	h.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "appleargs_entries",
		Help: "number of apple arguments of the served vector",
	}, func() float64 {
		return float64(h.src.Count())
	}))
	h.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appleargs_http_requests_total",
		Help: "number of requests handled, by route and status",
	}, []string{"route", "status"})
	h.registry.MustRegister(h.requests)
	h.entrySizes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "appleargs_served_entry_kilobytes",
		Help:    "size of the entries served by /entries/:index",
		Buckets: prometheus.ExponentialBuckets(0.0625, 4, 6),
	})
	h.registry.MustRegister(h.entrySizes)

	// Routes
	h.router = httprouter.New()
	h.route("/entries", h.entries)
	h.route("/entries/:index", h.entry)
	h.route("/vars", h.vars)
	h.route("/vars/:key", h.variable)
	h.router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		// Compression is done by the middleware stack.
		DisableCompression: true,
	}))

	// Middleware stack
	h.stack = negroni.New()
	h.stack.Use(negroni.NewRecovery())
	h.stack.Use(negroni.HandlerFunc(h.logRequest))
	h.stack.Use(gzip.Gzip(gzip.DefaultCompression))
	h.stack.Use(cors.Default())
	h.stack.UseHandler(h.router)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.stack.ServeHTTP(w, r)
}

// route registers a GET route counted in the requests metric.
func (h *Handler) route(path string, handle httprouter.Handle) {
	h.router.GET(path, func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		rw := negroni.NewResponseWriter(w)
		handle(rw, r, p)
		h.requests.With(prometheus.Labels{
			"route":  path,
			"status": strconv.Itoa(rw.Status()),
		}).Inc()
	})
}

// logRequest is the logging middleware.
func (h *Handler) logRequest(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()

	next(rw, r)

	res := rw.(negroni.ResponseWriter)
	h.logger.Info("request",
		"started_at", start,
		"duration", time.Since(start),
		"method", r.Method,
		"path", r.URL.Path,
		"status", res.Status(),
	)
}

// absent writes the error response if the vector is absent, and reports
// whether it did.
func (h *Handler) absent(w http.ResponseWriter) bool {
	if h.src.Present() {
		return false
	}
	writeError(w, status(h.src.Err()), h.src.Err())
	return true
}

// entries handles the requests for a snapshot of the whole vector.
func (h *Handler) entries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.absent(w) {
		return
	}

	f, err := filter.Compile(r.FormValue("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s, err := snapshot.Take(h.src, snapshot.Options{
		Labels:   h.labels,
		Truncate: h.truncate,
	}).Select(f.Match)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	write(w, http.StatusOK, s)
}

// entry handles the requests for the raw bytes of a single entry.
func (h *Handler) entry(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if h.absent(w) {
		return
	}

	index, err := strconv.Atoi(p.ByName("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid index"))
		return
	}

	raw, err := h.src.At(index)
	if err != nil {
		writeError(w, status(err), err)
		return
	}

	h.entrySizes.Observe(datasize.ByteSize(len(raw)).KBytes())

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// vars handles the requests for the whole pseudo-environment. The first
// occurrence of a key wins, like LookupVar. Invalid UTF-8 is replaced by the
// JSON encoding.
func (h *Handler) vars(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.absent(w) {
		return
	}

	res := make(map[string]string)
	for k, v := range h.src.Vars() {
		if _, ok := res[k]; !ok {
			res[k] = v
		}
	}

	write(w, http.StatusOK, res)
}

// variable handles the requests for a single variable of the
// pseudo-environment.
func (h *Handler) variable(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if h.absent(w) {
		return
	}

	v, ok := h.src.LookupVar(p.ByName("key"))
	if !ok {
		writeError(w, http.StatusNotFound, appleargs.ErrNotPresent)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(v))
}

// status returns the HTTP status code for an error of the vector.
func status(err error) int {
	switch {
	case errors.Is(err, appleargs.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, appleargs.ErrNotLocated):
		return http.StatusServiceUnavailable
	case errors.Is(err, appleargs.ErrOutOfRange), errors.Is(err, appleargs.ErrNotPresent):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// write a payload and a status to the ResponseWriter.
func write(w http.ResponseWriter, status int, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// write an error and a status to the ResponseWriter.
func writeError(w http.ResponseWriter, status int, err error) {
	write(w, status, Error{Err: err.Error()})
}

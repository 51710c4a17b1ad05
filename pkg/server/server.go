package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/hashicorp/go-secure-stdlib/permitpool"
	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storacha/hitcounter/internal/telemetry"
	"github.com/storacha/hitcounter/pkg/gateway"
	"github.com/storacha/hitcounter/pkg/hitcounter"
	"github.com/storacha/hitcounter/pkg/store"
	"github.com/storacha/hitcounter/pkg/store/counterstore"
)

var log = logging.Logger("server")

// Forwarder handles every request that is not for a reserved path.
type Forwarder interface {
	Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

type config struct {
	forwarder      Forwarder
	counts         counterstore.CounterStore
	maxConcurrency int
}

type Option func(*config)

// WithForwarder configures the hit counter requests are passed to.
func WithForwarder(f Forwarder) Option {
	return func(c *config) {
		c.forwarder = f
	}
}

// WithCounterStore exposes the counts of store on the /_hits endpoints.
func WithCounterStore(s counterstore.CounterStore) Option {
	return func(c *config) {
		c.counts = s
	}
}

// WithMaxConcurrency caps the number of requests forwarded at once. Requests
// over the cap wait for a slot. Zero means no cap.
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		c.maxConcurrency = n
	}
}

// ListenAndServe creates a new hit counter HTTP server, and starts it up.
func ListenAndServe(addr string, opts ...Option) error {
	mux, err := NewServer(opts...)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	log.Infof("Listening on %s", addr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewServer creates the hit counter's HTTP front end. Every path is counted
// and forwarded, except:
//
//	GET /_hits            all counts
//	GET /_hits/{key...}   the count for a single path
//	GET /metrics          prometheus metrics
func NewServer(opts ...Option) (*http.ServeMux, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.forwarder == nil {
		return nil, fmt.Errorf("%w: missing forwarder", hitcounter.ErrConfiguration)
	}

	var pool *permitpool.Pool
	if c.maxConcurrency > 0 {
		pool = permitpool.New(c.maxConcurrency)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	if c.counts != nil {
		mux.HandleFunc("GET /_hits", listHitsHandler(c.counts))
		mux.HandleFunc("GET /_hits/{key...}", getHitsHandler(c.counts))
	}
	mux.Handle("/", telemetry.NewErrorReportingHandler(forwardHandler(c.forwarder, pool)))
	return mux, nil
}

func forwardHandler(fwd Forwarder, pool *permitpool.Pool) telemetry.ErrorReturningHTTPHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		if pool != nil {
			if err := pool.Acquire(r.Context()); err != nil {
				return telemetry.NewHTTPError(fmt.Errorf("waiting for a free slot: %w", err), http.StatusServiceUnavailable)
			}
			defer pool.Release()
		}

		event, err := gateway.FromHTTPRequest(r)
		if err != nil {
			return writeError(w, err)
		}
		w.Header().Set(gateway.RequestIDHeader, event.RequestContext.RequestID)

		res, err := fwd.Handle(r.Context(), event)
		if err != nil {
			return writeError(w, err)
		}
		if err := gateway.WriteResponse(w, res); err != nil {
			log.Warnf("writing response for %s: %s", event.Path, err)
		}
		return nil
	}
}

// writeError answers with the error response and hands back errors that are
// not the client's fault for reporting.
func writeError(w http.ResponseWriter, err error) error {
	if werr := gateway.WriteResponse(w, gateway.ErrorResponse(err)); werr != nil {
		log.Warnf("writing error response: %s", werr)
	}
	if gateway.StatusCode(err) < http.StatusInternalServerError {
		return nil
	}
	return err
}

func listHitsHandler(counts counterstore.CounterStore) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := counterstore.TakeSnapshot(r.Context(), counts)
		if err != nil {
			log.Errorf("listing hits: %s", err)
			http.Error(w, "failed to list hits", http.StatusInternalServerError)
			return
		}
		writeJSON(w, snap)
	}
}

func getHitsHandler(counts counterstore.CounterStore) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := hitcounter.NormalizePath(r.PathValue("key"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		count, err := counts.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, fmt.Sprintf("not found: %s", key), http.StatusNotFound)
				return
			}
			log.Errorf("getting hits for %s: %s", key, err)
			http.Error(w, "failed to get hits", http.StatusInternalServerError)
			return
		}
		writeJSON(w, counterstore.Record{Key: key, Count: count})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("encoding response: %s", err)
	}
}

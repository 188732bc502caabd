// Package httpapi mounts the aggregator's single weather route plus the
// ambient /metrics and /healthz endpoints on a *mux.Router, assembling
// the same compression/recovery/access-log middleware chain used
// around the aggregator's own router.
package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weathermesh/wxfabric/internal/backup"
	"github.com/weathermesh/wxfabric/internal/codec"
	"github.com/weathermesh/wxfabric/internal/metrics"
	"github.com/weathermesh/wxfabric/internal/persistence"
	"github.com/weathermesh/wxfabric/internal/wxstore"
	"github.com/weathermesh/wxfabric/pkg/log"
)

// Store is the subset of wxstore.Store the HTTP surface depends on. It
// embeds persistence.Store so a Flush can be triggered without a type
// assertion back down to the concrete store.
type Store interface {
	Put(record *codec.Record, lamportValue int64) (wxstore.Outcome, error)
	GetByID(id string) (*codec.Record, bool)
	GetLatest() (*codec.Record, bool)
	persistence.Store
}

// Clock is the subset of lamport.Clock the HTTP surface depends on.
type Clock interface {
	Tick() int64
	Merge(received int64) int64
}

// API holds the dependencies the weather route needs: the station
// store, the aggregator's Lamport clock, and where to flush a snapshot
// after every mutating request.
type API struct {
	Store        Store
	Clock        Clock
	PersistPath  string
	Backup       *backup.Backup // nil or disabled means no upload is attempted
	Ready        bool           // flips true once startup rehydration has run
}

// MountRoutes registers "/weather.json", "/metrics" and "/healthz" on r.
func (a *API) MountRoutes(r *mux.Router) {
	r.HandleFunc("/weather.json", a.handleWeather)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", a.handleHealthz)
}

// NewRouter builds a complete *mux.Router for a, wrapped in the
// compression/recovery/CORS/access-log middleware chain used across this
// codebase's HTTP servers.
func NewRouter(a *API) http.Handler {
	r := mux.NewRouter()
	a.MountRoutes(r)

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	r.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type", "X-Lamport-Clock"}),
		handlers.AllowedMethods([]string{"GET", "PUT"}),
		handlers.AllowedOrigins([]string{"*"})))

	return handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Infof("%s %s (%d, %.02fkb, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, float32(params.Size)/1024,
			time.Since(params.TimeStamp).Milliseconds())
	})
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !a.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (a *API) handleWeather(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := a.applyInboundClock(r); err != nil {
		metrics.ObserveLamportError()
		http.Error(w, "Invalid Lamport Clock", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.handleGet(w, r)
	case http.MethodPut:
		a.handlePut(w, r)
	default:
		http.Error(w, "Bad Request", http.StatusBadRequest)
	}

	// The send-tick for the response happens last, after any Store
	// mutation, so the header strictly exceeds any clock embedded in a
	// record this request just wrote - per the ordering guarantee.
	sendClock := a.Clock.Tick()
	w.Header().Set("X-Lamport-Clock", strconv.FormatInt(sendClock, 10))
	metrics.SetLamportGauge(sendClock)
}

// applyInboundClock merges X-Lamport-Clock into the aggregator's clock
// if present and parseable. A missing header leaves the clock untouched.
func (a *API) applyInboundClock(r *http.Request) error {
	raw := r.Header.Get("X-Lamport-Clock")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	a.Clock.Merge(v)
	return nil
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	var (
		rec *codec.Record
		ok  bool
	)

	if station := r.URL.Query().Get("station"); station != "" {
		rec, ok = a.Store.GetByID(station)
	} else {
		rec, ok = a.Store.GetLatest()
	}

	if !ok {
		metrics.ObserveGet("204")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := codec.EncodeObject(rec)
	if err != nil {
		metrics.ObserveGet("500")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveGet("200")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (a *API) handlePut(w http.ResponseWriter, r *http.Request) {
	clHeader := r.Header.Get("Content-Length")
	if clHeader == "" {
		metrics.ObservePut("204")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	contentLength, err := strconv.Atoi(clHeader)
	if err != nil {
		metrics.ObservePut("400")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if contentLength == 0 {
		metrics.ObservePut("204")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(contentLength)))
	if err != nil {
		metrics.ObservePut("500")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rec, err := codec.DecodeObject(string(body))
	if err != nil {
		metrics.ObservePut("500")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, ok := rec.Get("id"); !ok {
		metrics.ObservePut("400")
		http.Error(w, "Missing 'id' field", http.StatusBadRequest)
		return
	}

	receiveClock := a.Clock.Tick()

	outcome, err := a.Store.Put(rec, receiveClock)
	if err == wxstore.ErrMissingID {
		metrics.ObservePut("400")
		http.Error(w, "Missing 'id' field", http.StatusBadRequest)
		return
	}
	if err != nil {
		metrics.ObservePut("500")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if outcome == wxstore.CreatedWithEviction {
		metrics.ObserveCapacityEviction()
	}

	existedBefore, err := persistence.Flush(a.Store, a.PersistPath)
	if err != nil {
		log.Warnf("httpapi: persistence flush failed: %s", err)
	} else if a.Backup != nil {
		go a.Backup.UploadBestEffort(a.PersistPath)
	}

	created := outcome == wxstore.Created || outcome == wxstore.CreatedWithEviction
	if created || !existedBefore {
		metrics.ObservePut("201")
		w.WriteHeader(http.StatusCreated)
	} else {
		metrics.ObservePut("200")
		w.WriteHeader(http.StatusOK)
	}
	w.Write([]byte("Success"))
}


// Package index serves the published tools index over HTTP.
package index

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/projectenv/tools-index/internal/api/common"
	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/status"
)

// IndexReader loads the published index. storage.Store satisfies it.
type IndexReader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// StatusProvider reports the state of background generation. coordinator.Coordinator satisfies it.
type StatusProvider interface {
	Status() *status.RunStatus
}

// Routes handles the index endpoints
type Routes struct {
	reader IndexReader
	status StatusProvider
}

// NewRoutes creates the index routes. status may be nil when nothing regenerates the index.
func NewRoutes(reader IndexReader, status StatusProvider) *Routes {
	return &Routes{reader: reader, status: status}
}

// Router creates the router for the current index format
func (rr *Routes) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/index.json", rr.getIndex)
	r.Get("/tools/{section}", rr.getSection)
	r.Get("/status", rr.getStatus)

	return r
}

// LegacyRouter creates the router for the amd64-only legacy index format
func (rr *Routes) LegacyRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/index.json", rr.getLegacyIndex)

	return r
}

func (rr *Routes) load(w http.ResponseWriter, r *http.Request) (*catalog.Catalog, bool) {
	c, err := rr.reader.Load(r.Context())
	if err != nil {
		slog.Error("Failed to load index", "error", err)
		common.WriteErrorResponse(w, "Failed to load index", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

func (rr *Routes) getIndex(w http.ResponseWriter, r *http.Request) {
	c, ok := rr.load(w, r)
	if !ok {
		return
	}
	rr.writeMarshalled(w, c)
}

func (rr *Routes) getLegacyIndex(w http.ResponseWriter, r *http.Request) {
	c, ok := rr.load(w, r)
	if !ok {
		return
	}
	rr.writeMarshalled(w, c.Legacy())
}

// getSection answers a single section of the index, e.g. /tools/gradleVersions
func (rr *Routes) getSection(w http.ResponseWriter, r *http.Request) {
	section, err := catalog.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	}

	c, ok := rr.load(w, r)
	if !ok {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		slog.Error("Failed to marshal index", "error", err)
		common.WriteErrorResponse(w, "Failed to marshal index", http.StatusInternalServerError)
		return
	}

	// Extracting the raw member keeps the key order of the full document.
	value := gjson.GetBytes(data, string(section))
	if !value.Exists() {
		common.WriteRawJSONResponse(w, []byte("{}"), http.StatusOK)
		return
	}
	common.WriteRawJSONResponse(w, []byte(value.Raw), http.StatusOK)
}

func (rr *Routes) getStatus(w http.ResponseWriter, _ *http.Request) {
	if rr.status == nil {
		common.WriteErrorResponse(w, "Background generation is not enabled", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, rr.status.Status(), http.StatusOK)
}

func (*Routes) writeMarshalled(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal index", "error", err)
		common.WriteErrorResponse(w, "Failed to marshal index", http.StatusInternalServerError)
		return
	}
	common.WriteRawJSONResponse(w, data, http.StatusOK)
}

package httpapi //nolint:revive // package name reads fine alongside net/http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pansat-go/pansat/internal/application"
	"github.com/pansat-go/pansat/internal/domain"
	"github.com/pansat-go/pansat/internal/geomio"
	"github.com/pansat-go/pansat/internal/match"
	"github.com/pansat-go/pansat/internal/ports/input"
)

// granuleJSON is the wire representation of a domain.Granule: the file
// record marshals through its own name-referenced JSON shape, and the
// geometry (if any) is rendered as GeoJSON rather than WKT.
type granuleJSON struct {
	File      domain.FileRecord `json:"file"`
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Geometry  json.RawMessage   `json:"geometry,omitempty"`
	Primary   *indexRangeJSON   `json:"primary_index,omitempty"`
	Secondary *indexRangeJSON   `json:"secondary_index,omitempty"`
}

type indexRangeJSON struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func toGranuleJSON(g domain.Granule) (granuleJSON, error) {
	gj := granuleJSON{
		File:  g.FileRecord,
		Start: g.TimeRange.Start,
		End:   g.TimeRange.End,
	}

	if g.Geometry != nil {
		raw, err := geomio.ToGeoJSON(g.Geometry)
		if err != nil {
			return granuleJSON{}, err
		}
		gj.Geometry = raw
	}
	if g.PrimaryIndexName != "" {
		gj.Primary = &indexRangeJSON{Name: g.PrimaryIndexName, Start: g.PrimaryIndexRange.Start, End: g.PrimaryIndexRange.End}
	}
	if g.SecondaryIndexName != "" {
		gj.Secondary = &indexRangeJSON{Name: g.SecondaryIndexName, Start: g.SecondaryIndexRange.Start, End: g.SecondaryIndexRange.End}
	}
	return gj, nil
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":           boolToStatus(details.Healthy),
		"ready":            details.Ready,
		"products_tracked": details.ProductsTracked,
		"components":       details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListProducts returns every product the active registry is tracking.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.registry.Products(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	entries := make([]map[string]interface{}, len(products))
	for i, name := range products {
		count, _ := s.registry.GranuleCount(r.Context(), name)
		entries[i] = map[string]interface{}{"name": name, "granule_count": count}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": entries,
		"count":    len(entries),
	})
}

// handleGranules returns every granule of a product overlapping the
// requested time range (and bbox, if given).
func (s *Server) handleGranules(w http.ResponseWriter, r *http.Request) {
	productName := mux.Vars(r)["product"]

	tr, err := parseTimeSpan(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var region domain.Geometry
	if bbox := r.URL.Query().Get("bbox"); bbox != "" {
		rect, err := geomio.ParseBBox(bbox)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		region = rect
	}

	granules, err := s.query.Find(r.Context(), input.FindRequest{
		Product:  productName,
		TimeSpan: tr,
		Region:   region,
	})
	if err != nil {
		s.handleQueryError(w, err)
		return
	}

	out := make([]granuleJSON, 0, len(granules))
	for _, g := range granules {
		gj, err := toGranuleJSON(g)
		if err != nil {
			s.logger.Error("encoding granule geometry failed", "error", err)
			continue
		}
		out = append(out, gj)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product":  productName,
		"granules": out,
		"count":    len(out),
	})
}

// matchRequestBody is the JSON body accepted by handleMatch.
type matchRequestBody struct {
	LeftProduct  string `json:"left_product"`
	RightProduct string `json:"right_product"`
	Start        string `json:"start"`
	End          string `json:"end"`
	TimeDiff     string `json:"time_diff,omitempty"`
	Merge        bool   `json:"merge"`
}

// handleMatch performs a temporal/spatial join between two products'
// granules over the requested time range.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var body matchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := time.Parse(time.RFC3339, body.Start)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	end, err := time.Parse(time.RFC3339, body.End)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
		return
	}

	var timeDiff time.Duration
	if body.TimeDiff != "" {
		timeDiff, err = time.ParseDuration(body.TimeDiff)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid time_diff: "+err.Error())
			return
		}
	}

	matches, err := s.query.FindMatches(r.Context(), input.MatchRequest{
		LeftProduct:  body.LeftProduct,
		RightProduct: body.RightProduct,
		TimeSpan:     domain.NewTimeRange(start, end),
		TimeDiff:     timeDiff,
		Merge:        body.Merge,
	})
	if err != nil {
		s.handleQueryError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches": formatMatches(matches),
		"count":   len(matches),
	})
}

func formatMatches(matches []match.Match) []map[string]interface{} {
	out := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		left, _ := toGranuleJSON(m.Left)
		right, _ := toGranuleJSON(m.Right)
		out[i] = map[string]interface{}{"left": left, "right": right}
	}
	return out
}

// handleSync handles the sync trigger endpoint.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.TriggerSync(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again in 30 seconds")
			return
		}
		s.logger.Error("sync failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// parseTimeSpan parses the "start"/"end" RFC3339 query parameters,
// defaulting to the last 24 hours when omitted.
func parseTimeSpan(r *http.Request) (domain.TimeRange, error) {
	q := r.URL.Query()

	end := time.Now()
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.TimeRange{}, errors.New("invalid end parameter: " + err.Error())
		}
		end = t
	}

	start := end.Add(-24 * time.Hour)
	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.TimeRange{}, errors.New("invalid start parameter: " + err.Error())
		}
		start = t
	}

	return domain.NewTimeRange(start, end), nil
}

// handleQueryError handles query errors and returns appropriate HTTP status.
func (s *Server) handleQueryError(w http.ResponseWriter, err error) {
	var lookupErr *domain.LookupError
	if errors.As(err, &lookupErr) {
		s.writeError(w, http.StatusNotFound, lookupErr.Error())
		return
	}

	s.logger.Error("query error", "error", err)
	s.writeError(w, http.StatusInternalServerError, "query failed")
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}

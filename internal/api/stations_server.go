// Package api provides handlers for external APIs and interfaces
package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/repository"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/usecases"
)

//go:embed templates
var templatesFS embed.FS

// StationsServer serves the station map page and the GeoJSON dataset
// consumed by it. It is a read-only view over the persisted store.
type StationsServer struct {
	repo       repository.AQRepository
	tmpl       *template.Template
	readingLag time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// NewStationsServer creates the web view over the given repository.
// readingLag must match the ingestion side so the default reading
// window lines up with the persisted timestamps.
func NewStationsServer(repo repository.AQRepository, readingLag time.Duration, log *slog.Logger) (*StationsServer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &StationsServer{
		repo:       repo,
		tmpl:       tmpl,
		readingLag: readingLag,
		log:        log,
		now:        time.Now,
	}, nil
}

// Handler returns the HTTP mux of the web view
func (s *StationsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /stations_data/", s.handleStationsData)
	mux.HandleFunc("GET /parameters/", s.handleParameters)
	mux.HandleFunc("GET /readings_data/", s.handleReadingsData)
	return mux
}

func (s *StationsServer) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", nil); err != nil {
		s.log.Error("render station map", "error", err)
	}
}

// geoJSONFeature structures implement the subset of GeoJSON the map
// page needs: a FeatureCollection of WGS84 points
type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type geoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

func (s *StationsServer) handleStationsData(w http.ResponseWriter, r *http.Request) {
	stations, err := s.repo.GetStations()
	if err != nil {
		s.log.Error("load stations", "error", err)
		http.Error(w, "failed to load stations", http.StatusInternalServerError)
		return
	}

	collection := geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(stations)),
	}
	for _, st := range stations {
		collection.Features = append(collection.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: [2]float64{st.Lon, st.Lat},
			},
			Properties: map[string]any{
				"station_id":   st.ID,
				"station_name": st.Name,
			},
		})
	}

	s.writeJSON(w, collection)
}

// handleParameters lists the parameter codes measured by the persisted sensors
func (s *StationsServer) handleParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.repo.GetParameters()
	if err != nil {
		s.log.Error("load parameters", "error", err)
		http.Error(w, "failed to load parameters", http.StatusInternalServerError)
		return
	}
	if params == nil {
		params = []string{}
	}
	s.writeJSON(w, map[string]any{"parameters": params})
}

// handleReadingsData serves one parameter's readings for one window as
// GeoJSON. Without an explicit date the current reading window is used.
func (s *StationsServer) handleReadingsData(w http.ResponseWriter, r *http.Request) {
	parameter := r.URL.Query().Get("parameter")
	if parameter == "" {
		http.Error(w, "missing parameter query argument", http.StatusBadRequest)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = usecases.ReadingWindow(s.now(), s.readingLag)
	}

	readings, err := s.repo.GetParameterReadings(parameter, date)
	if err != nil {
		s.log.Error("load readings", "parameter", parameter, "error", err)
		http.Error(w, "failed to load readings", http.StatusInternalServerError)
		return
	}

	collection := geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(readings)),
	}
	for _, rd := range readings {
		collection.Features = append(collection.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: [2]float64{rd.Lon, rd.Lat},
			},
			Properties: map[string]any{
				"sensor_id":  rd.SensorID,
				"station_id": rd.StationID,
				"parameter":  rd.Parameter,
				"date":       rd.Date,
				"value":      rd.Value,
			},
		})
	}
	s.writeJSON(w, collection)
}

func (s *StationsServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

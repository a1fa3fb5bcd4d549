package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/entities"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/repository"
)

// stubRepository provides the read-side data without a database
type stubRepository struct {
	stations   []entities.Station
	parameters []string
	readings   map[string][]entities.ParameterReading
	err        error
}

func (s *stubRepository) EnsureSchema() error                           { return nil }
func (s *stubRepository) BeginIngest() (*repository.IngestBatch, error) { return nil, nil }
func (s *stubRepository) Close() error                                  { return nil }

func (s *stubRepository) GetParameters() ([]string, error) {
	return s.parameters, s.err
}

func (s *stubRepository) GetParameterReadings(parameter, date string) ([]entities.ParameterReading, error) {
	return s.readings[parameter+"|"+date], s.err
}

func (s *stubRepository) GetStations() ([]entities.Station, error) {
	return s.stations, s.err
}

func newTestServer(t *testing.T, repo repository.AQRepository) *httptest.Server {
	t.Helper()
	server, err := NewStationsServer(repo, time.Hour, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestStationsDataServesGeoJSON(t *testing.T) {
	ts := newTestServer(t, &stubRepository{
		stations: []entities.Station{
			{ID: 114, Name: "Wrocław - Bartnicza", Lon: 17.141125, Lat: 51.115933},
			{ID: 117, Name: "Wrocław - Korzeniowskiego", Lon: 17.02925, Lat: 51.129378},
		},
	})

	res, err := http.Get(ts.URL + "/stations_data/")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var collection struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates [2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				StationID   int    `json:"station_id"`
				StationName string `json:"station_name"`
			} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&collection))

	assert.Equal(t, "FeatureCollection", collection.Type)
	require.Len(t, collection.Features, 2)

	first := collection.Features[0]
	assert.Equal(t, "Feature", first.Type)
	assert.Equal(t, "Point", first.Geometry.Type)
	// GeoJSON positions are lon, lat
	assert.Equal(t, [2]float64{17.141125, 51.115933}, first.Geometry.Coordinates)
	assert.Equal(t, 114, first.Properties.StationID)
	assert.Equal(t, "Wrocław - Bartnicza", first.Properties.StationName)
}

func TestStationsDataEmptyStore(t *testing.T) {
	ts := newTestServer(t, &stubRepository{})

	res, err := http.Get(ts.URL + "/stations_data/")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var collection struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&collection))
	assert.Empty(t, collection.Features)
}

func TestStationsDataRepositoryFailure(t *testing.T) {
	ts := newTestServer(t, &stubRepository{err: fmt.Errorf("connection reset")})

	res, err := http.Get(ts.URL + "/stations_data/")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestParametersEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubRepository{parameters: []string{"NO2", "PM10"}})

	res, err := http.Get(ts.URL + "/parameters/")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Parameters []string `json:"parameters"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, []string{"NO2", "PM10"}, body.Parameters)
}

func TestReadingsDataRequiresParameter(t *testing.T) {
	ts := newTestServer(t, &stubRepository{})

	res, err := http.Get(ts.URL + "/readings_data/")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestReadingsDataServesWindow(t *testing.T) {
	ts := newTestServer(t, &stubRepository{
		readings: map[string][]entities.ParameterReading{
			"PM10|2025-04-18 11:00:00": {
				{SensorID: 14395, Date: "2025-04-18 11:00:00", Value: 22.1498,
					Parameter: "PM10", StationID: 114, Lon: 17.141125, Lat: 51.115933},
			},
		},
	})

	res, err := http.Get(ts.URL + "/readings_data/?parameter=PM10&date=2025-04-18+11:00:00")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var collection struct {
		Features []struct {
			Properties struct {
				SensorID  int     `json:"sensor_id"`
				Parameter string  `json:"parameter"`
				Value     float64 `json:"value"`
			} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&collection))
	require.Len(t, collection.Features, 1)
	assert.Equal(t, 14395, collection.Features[0].Properties.SensorID)
	assert.Equal(t, "PM10", collection.Features[0].Properties.Parameter)
	assert.Equal(t, 22.1498, collection.Features[0].Properties.Value)
}

func TestHomeServesMapPage(t *testing.T) {
	ts := newTestServer(t, &stubRepository{})

	res, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
}

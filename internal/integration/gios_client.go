// Package integration handles external service interactions
package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/entities"
)

// Sentinel errors for the provider failure taxonomy. Callers contain
// both per station/sensor; neither aborts a whole ingestion run.
var (
	// ErrProviderUnavailable covers network failures, timeouts and
	// non-200 HTTP statuses
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	// ErrProviderFormat covers responses that are not valid JSON or
	// lack the required fields of the wire contract
	ErrProviderFormat = errors.New("unexpected air quality provider response format")
)

// AQProvider is the contract the ingestion pipeline consumes. Each call
// issues a single best-effort HTTP request; retry policy is up to the caller.
type AQProvider interface {
	FetchStations() ([]entities.Station, error)
	FetchSensors(stationID int) ([]entities.Sensor, error)
	FetchSensorValues(sensorID int) ([]entities.SensorValue, error)
}

// GiosClient fetches stations, sensors and reading series from the
// GIOS public REST API
type GiosClient struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewGiosClient creates a new GIOS API client
func NewGiosClient(baseURL string, timeout time.Duration, log *slog.Logger) *GiosClient {
	if baseURL == "" {
		// Default public endpoint
		baseURL = "http://api.gios.gov.pl/pjp-api/rest"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &GiosClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// stationJSON mirrors the station list wire format. Coordinates arrive
// as strings holding decimal degrees.
type stationJSON struct {
	ID          *int    `json:"id"`
	StationName string  `json:"stationName"`
	GegrLat     *string `json:"gegrLat"`
	GegrLon     *string `json:"gegrLon"`
}

type sensorJSON struct {
	ID        *int `json:"id"`
	StationID *int `json:"stationId"`
	Param     *struct {
		ParamCode string `json:"paramCode"`
	} `json:"param"`
}

type sensorDataJSON struct {
	Values []struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	} `json:"values"`
}

// FetchStations retrieves the full list of air monitoring stations
func (c *GiosClient) FetchStations() ([]entities.Station, error) {
	var raw []stationJSON
	if err := c.getJSON(c.baseURL+"/station/findAll", &raw); err != nil {
		return nil, err
	}

	stations := make([]entities.Station, 0, len(raw))
	for _, s := range raw {
		if s.ID == nil || s.GegrLon == nil || s.GegrLat == nil {
			return nil, fmt.Errorf("%w: station entry missing id or coordinates", ErrProviderFormat)
		}
		lon, err := strconv.ParseFloat(*s.GegrLon, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: station %d longitude %q: %v", ErrProviderFormat, *s.ID, *s.GegrLon, err)
		}
		lat, err := strconv.ParseFloat(*s.GegrLat, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: station %d latitude %q: %v", ErrProviderFormat, *s.ID, *s.GegrLat, err)
		}
		stations = append(stations, entities.Station{
			ID:   *s.ID,
			Name: s.StationName,
			Lon:  lon,
			Lat:  lat,
		})
	}

	c.log.Info("fetched station list", "stations", len(stations))
	return stations, nil
}

// FetchSensors retrieves the sensors attached to one station
func (c *GiosClient) FetchSensors(stationID int) ([]entities.Sensor, error) {
	var raw []sensorJSON
	url := fmt.Sprintf("%s/station/sensors/%d", c.baseURL, stationID)
	if err := c.getJSON(url, &raw); err != nil {
		return nil, err
	}

	sensors := make([]entities.Sensor, 0, len(raw))
	for _, s := range raw {
		if s.ID == nil || s.StationID == nil || s.Param == nil || s.Param.ParamCode == "" {
			return nil, fmt.Errorf("%w: sensor entry for station %d missing id or parameter", ErrProviderFormat, stationID)
		}
		sensors = append(sensors, entities.Sensor{
			ID:        *s.ID,
			Parameter: s.Param.ParamCode,
			StationID: *s.StationID,
		})
	}

	c.log.Debug("fetched sensors", "station", stationID, "sensors", len(sensors))
	return sensors, nil
}

// FetchSensorValues retrieves the reading series for one sensor. The
// provider orders the series newest first; values may be null for
// sensors without fresh data.
func (c *GiosClient) FetchSensorValues(sensorID int) ([]entities.SensorValue, error) {
	var raw sensorDataJSON
	url := fmt.Sprintf("%s/data/getData/%d", c.baseURL, sensorID)
	if err := c.getJSON(url, &raw); err != nil {
		return nil, err
	}

	values := make([]entities.SensorValue, 0, len(raw.Values))
	for _, v := range raw.Values {
		values = append(values, entities.SensorValue{Date: v.Date, Value: v.Value})
	}

	c.log.Debug("fetched reading series", "sensor", sensorID, "values", len(values))
	return values, nil
}

// getJSON issues one GET request and decodes the JSON body into out
func (c *GiosClient) getJSON(url string, out any) error {
	res, err := c.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrProviderUnavailable, url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: unexpected status %d %s", ErrProviderUnavailable, url, res.StatusCode, res.Status)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrProviderFormat, url, err)
	}
	return nil
}

// Package usecases contains the application's business logic
package usecases

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/entities"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/integration"
	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/repository"
)

// ReadingDateFormat is the fixed lexical timestamp format of the
// readings table
const ReadingDateFormat = "2006-01-02 15:04:05"

// IngestUseCase drives one full acquisition cycle: fetch stations,
// fetch sensors per station, fetch the latest reading per sensor and
// upsert everything into the store
type IngestUseCase struct {
	repo       repository.AQRepository
	provider   integration.AQProvider
	readingLag time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// NewIngestUseCase creates a new ingestion use case. readingLag shifts
// the reading window back from the current hour to compensate for
// provider reporting lag.
func NewIngestUseCase(repo repository.AQRepository, provider integration.AQProvider, readingLag time.Duration, log *slog.Logger) *IngestUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &IngestUseCase{
		repo:       repo,
		provider:   provider,
		readingLag: readingLag,
		log:        log,
		now:        time.Now,
	}
}

// Summary reports the outcome of one ingestion run
type Summary struct {
	Window           string
	Stations         int
	Sensors          int
	ReadingsInserted int
	ReadingsSkipped  int
	FetchFailures    int
}

// ReadingWindow truncates t to the start of its hour, shifted back by
// lag, in t's location. All readings of one run share this timestamp.
func ReadingWindow(t time.Time, lag time.Duration) string {
	t = t.Add(-lag)
	window := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	return window.Format(ReadingDateFormat)
}

// RefreshAirData runs one full ingestion cycle. Fetch failures for a
// single station or sensor are contained: the failing item is skipped
// and the run continues with partial data. Only a failed station list
// fetch or a broken database session aborts the run.
func (uc *IngestUseCase) RefreshAirData() (Summary, error) {
	summary := Summary{Window: ReadingWindow(uc.now(), uc.readingLag)}
	uc.log.Info("starting air data refresh", "window", summary.Window)

	stations, err := uc.provider.FetchStations()
	if err != nil {
		return summary, fmt.Errorf("failed to fetch station list: %w", err)
	}

	batch, err := uc.repo.BeginIngest()
	if err != nil {
		return summary, err
	}
	defer func() { _ = batch.Rollback() }()

	for _, station := range stations {
		// Station rows always precede their sensors so the store never
		// sees a dangling foreign key
		if err := batch.InsertStation(station); err != nil {
			return summary, err
		}
		summary.Stations++

		sensors, err := uc.provider.FetchSensors(station.ID)
		if err != nil {
			uc.log.Warn("failed to fetch sensors, skipping station",
				"station", station.ID, "error", err)
			summary.FetchFailures++
			continue
		}

		for _, sensor := range sensors {
			if err := batch.InsertSensor(sensor); err != nil {
				return summary, err
			}
			summary.Sensors++

			series, err := uc.provider.FetchSensorValues(sensor.ID)
			if err != nil {
				uc.log.Warn("failed to fetch reading series, skipping sensor",
					"sensor", sensor.ID, "error", err)
				summary.FetchFailures++
				continue
			}

			value, ok := LatestValue(series)
			if !ok {
				// Inactive sensors legitimately have no fresh reading
				uc.log.Debug("no usable reading", "sensor", sensor.ID)
				summary.ReadingsSkipped++
				continue
			}

			inserted, err := batch.InsertReading(entities.Reading{
				SensorID: sensor.ID,
				Date:     summary.Window,
				Value:    value,
			})
			if err != nil {
				return summary, err
			}
			if inserted {
				summary.ReadingsInserted++
			} else {
				summary.ReadingsSkipped++
			}
		}
	}

	if err := batch.Commit(); err != nil {
		return summary, err
	}

	uc.log.Info("air data refresh finished",
		"window", summary.Window,
		"stations", summary.Stations,
		"sensors", summary.Sensors,
		"readings_inserted", summary.ReadingsInserted,
		"readings_skipped", summary.ReadingsSkipped,
		"fetch_failures", summary.FetchFailures,
		"contained_statements", batch.Contained())
	return summary, nil
}

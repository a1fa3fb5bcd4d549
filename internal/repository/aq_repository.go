// Package repository provides data access implementations
package repository

import (
	"fmt"
	"log/slog"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/entities"
)

// AQRepository defines the interface for air quality data persistence operations
type AQRepository interface {
	EnsureSchema() error
	BeginIngest() (*IngestBatch, error)
	GetStations() ([]entities.Station, error)
	GetParameters() ([]string, error)
	GetParameterReadings(parameter, date string) ([]entities.ParameterReading, error)
	Close() error
}

// SQLAQRepository implements AQRepository on top of the savepoint gateway
type SQLAQRepository struct {
	gw  *Gateway
	log *slog.Logger
}

// NewSQLAQRepository creates a repository over an open gateway
func NewSQLAQRepository(gw *Gateway, log *slog.Logger) *SQLAQRepository {
	if log == nil {
		log = slog.Default()
	}
	return &SQLAQRepository{gw: gw, log: log}
}

// Close closes the underlying database connection
func (r *SQLAQRepository) Close() error {
	return r.gw.Close()
}

// EnsureSchema creates the stations, sensors and readings tables.
// Statements run under the savepoint protocol, so re-running against an
// existing schema is contained rather than fatal.
func (r *SQLAQRepository) EnsureSchema() error {
	batch, err := r.gw.Begin()
	if err != nil {
		return err
	}
	for _, stmt := range r.gw.Dialect().CreateSchemaStmts() {
		if _, err := batch.Exec(stmt); err != nil {
			_ = batch.Rollback()
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return err
	}
	r.log.Info("database schema ready")
	return nil
}

// BeginIngest opens a batch for one ingestion run. All inserts of the
// run share the transaction; each statement stays individually isolated.
func (r *SQLAQRepository) BeginIngest() (*IngestBatch, error) {
	batch, err := r.gw.Begin()
	if err != nil {
		return nil, err
	}
	return &IngestBatch{batch: batch, dialect: r.gw.Dialect()}, nil
}

// IngestBatch carries the upsert operations of one ingestion run
type IngestBatch struct {
	batch   *Batch
	dialect Dialect
}

// InsertStation inserts a station if absent. A primary key violation
// means the station is already present and is swallowed.
func (b *IngestBatch) InsertStation(s entities.Station) error {
	_, err := b.batch.Exec(b.dialect.InsertStationStmt(), s.ID, s.Name, s.Lon, s.Lat)
	return err
}

// InsertSensor inserts a sensor if absent, same swallow-on-duplicate
// policy as InsertStation
func (b *IngestBatch) InsertSensor(s entities.Sensor) error {
	_, err := b.batch.Exec(b.dialect.InsertSensorStmt(), s.ID, s.Parameter, s.StationID)
	return err
}

// InsertReading inserts a reading only if no row exists for the same
// (sensor, date) pair. Readings are written far more often than
// stations or sensors, so the conditional form avoids leaning on
// constraint-violation handling as the primary dedup mechanism. The
// returned bool reports whether a row was actually inserted.
func (b *IngestBatch) InsertReading(rd entities.Reading) (bool, error) {
	affected, err := b.batch.Exec(b.dialect.InsertReadingStmt(),
		rd.SensorID, rd.Date, rd.Value, rd.SensorID, rd.Date)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Contained returns the number of statements swallowed by savepoint rollbacks
func (b *IngestBatch) Contained() int {
	return b.batch.Contained
}

// Commit finishes the run's transaction
func (b *IngestBatch) Commit() error {
	return b.batch.Commit()
}

// Rollback abandons the run's transaction
func (b *IngestBatch) Rollback() error {
	return b.batch.Rollback()
}

// GetStations returns all stations with their coordinates
func (r *SQLAQRepository) GetStations() ([]entities.Station, error) {
	rows, err := r.gw.Query(r.gw.Dialect().SelectStationsStmt())
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var result []entities.Station
	for rows.Next() {
		var s entities.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Lon, &s.Lat); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during station row iteration: %w", err)
	}
	return result, nil
}

// GetParameters returns the distinct parameter codes measured by the
// persisted sensors
func (r *SQLAQRepository) GetParameters() ([]string, error) {
	rows, err := r.gw.Query(r.gw.Dialect().SelectParametersStmt())
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer rows.Close()

	var params []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan parameter row: %w", err)
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during parameter row iteration: %w", err)
	}
	return params, nil
}

// GetParameterReadings returns the readings of one parameter for one
// window timestamp, joined through sensors to station locations
func (r *SQLAQRepository) GetParameterReadings(parameter, date string) ([]entities.ParameterReading, error) {
	rows, err := r.gw.Query(r.gw.Dialect().SelectParameterReadingsStmt(), parameter, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s readings: %w", parameter, err)
	}
	defer rows.Close()

	var result []entities.ParameterReading
	for rows.Next() {
		var pr entities.ParameterReading
		if err := rows.Scan(&pr.SensorID, &pr.Date, &pr.Value,
			&pr.Parameter, &pr.StationID, &pr.Lon, &pr.Lat); err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}
		result = append(result, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during reading row iteration: %w", err)
	}
	return result, nil
}

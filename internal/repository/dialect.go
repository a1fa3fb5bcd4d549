package repository

import "fmt"

// Dialect provides the SQL for one store backend. The schema is the
// same three tables everywhere; PostgreSQL keeps station locations as
// PostGIS points while SQLite falls back to plain lon/lat columns.
type Dialect interface {
	// Driver is the database/sql driver name
	Driver() string
	// CreateSchemaStmts returns the statements that bootstrap the schema,
	// in dependency order
	CreateSchemaStmts() []string
	// InsertStationStmt binds (station_id, station_name, lon, lat)
	InsertStationStmt() string
	// InsertSensorStmt binds (sensor_id, sensor_parameter, station_id)
	InsertSensorStmt() string
	// InsertReadingStmt binds (sensor_id, date, reading, sensor_id, date)
	// and inserts only when no row exists for the (sensor_id, date) pair
	InsertReadingStmt() string
	// SelectStationsStmt yields (station_id, station_name, lon, lat)
	SelectStationsStmt() string
	// SelectParametersStmt yields the distinct measured parameter codes
	SelectParametersStmt() string
	// SelectParameterReadingsStmt binds (parameter, date) and yields
	// (sensor_id, date, reading, parameter, station_id, lon, lat)
	SelectParameterReadingsStmt() string
}

// DialectFor maps a configured driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect{}, nil
	case "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type postgresDialect struct{}

func (postgresDialect) Driver() string { return "postgres" }

func (postgresDialect) CreateSchemaStmts() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE TABLE IF NOT EXISTS stations (
			station_id INTEGER PRIMARY KEY,
			station_name TEXT,
			geom geometry(Point, 4326)
		)`,
		`CREATE TABLE IF NOT EXISTS sensors (
			sensor_id INTEGER PRIMARY KEY,
			sensor_parameter VARCHAR(10) NOT NULL,
			station_id INTEGER REFERENCES stations (station_id)
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id BIGSERIAL PRIMARY KEY,
			sensor_id INTEGER REFERENCES sensors (sensor_id),
			date VARCHAR(19) NOT NULL,
			reading DOUBLE PRECISION,
			UNIQUE (sensor_id, date)
		)`,
	}
}

func (postgresDialect) InsertStationStmt() string {
	return `INSERT INTO stations (station_id, station_name, geom)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326))`
}

func (postgresDialect) InsertSensorStmt() string {
	return `INSERT INTO sensors (sensor_id, sensor_parameter, station_id)
		VALUES ($1, $2, $3)`
}

func (postgresDialect) InsertReadingStmt() string {
	return `INSERT INTO readings (sensor_id, date, reading)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM readings WHERE sensor_id = $4 AND date = $5
		)`
}

func (postgresDialect) SelectStationsStmt() string {
	return `SELECT station_id, station_name, ST_X(geom), ST_Y(geom)
		FROM stations
		ORDER BY station_id`
}

func (postgresDialect) SelectParametersStmt() string {
	return `SELECT DISTINCT sensor_parameter FROM sensors ORDER BY sensor_parameter`
}

func (postgresDialect) SelectParameterReadingsStmt() string {
	return `SELECT readings.sensor_id, readings.date, readings.reading,
			sensors.sensor_parameter, sensors.station_id,
			ST_X(stations.geom), ST_Y(stations.geom)
		FROM readings
		INNER JOIN sensors ON readings.sensor_id = sensors.sensor_id
		INNER JOIN stations ON sensors.station_id = stations.station_id
		WHERE sensors.sensor_parameter = $1 AND readings.date = $2
		ORDER BY readings.sensor_id`
}

type sqliteDialect struct{}

func (sqliteDialect) Driver() string { return "sqlite3" }

func (sqliteDialect) CreateSchemaStmts() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS stations (
			station_id INTEGER PRIMARY KEY,
			station_name TEXT,
			lon REAL,
			lat REAL
		)`,
		`CREATE TABLE IF NOT EXISTS sensors (
			sensor_id INTEGER PRIMARY KEY,
			sensor_parameter VARCHAR(10) NOT NULL,
			station_id INTEGER REFERENCES stations (station_id)
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sensor_id INTEGER REFERENCES sensors (sensor_id),
			date VARCHAR(19) NOT NULL,
			reading FLOAT,
			UNIQUE (sensor_id, date)
		)`,
	}
}

func (sqliteDialect) InsertStationStmt() string {
	return `INSERT INTO stations (station_id, station_name, lon, lat)
		VALUES (?, ?, ?, ?)`
}

func (sqliteDialect) InsertSensorStmt() string {
	return `INSERT INTO sensors (sensor_id, sensor_parameter, station_id)
		VALUES (?, ?, ?)`
}

func (sqliteDialect) InsertReadingStmt() string {
	return `INSERT INTO readings (sensor_id, date, reading)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM readings WHERE sensor_id = ? AND date = ?
		)`
}

func (sqliteDialect) SelectStationsStmt() string {
	return `SELECT station_id, station_name, lon, lat
		FROM stations
		ORDER BY station_id`
}

func (sqliteDialect) SelectParametersStmt() string {
	return `SELECT DISTINCT sensor_parameter FROM sensors ORDER BY sensor_parameter`
}

func (sqliteDialect) SelectParameterReadingsStmt() string {
	return `SELECT readings.sensor_id, readings.date, readings.reading,
			sensors.sensor_parameter, sensors.station_id,
			stations.lon, stations.lat
		FROM readings
		INNER JOIN sensors ON readings.sensor_id = sensors.sensor_id
		INNER JOIN stations ON sensors.station_id = stations.station_id
		WHERE sensors.sensor_parameter = ? AND readings.date = ?
		ORDER BY readings.sensor_id`
}

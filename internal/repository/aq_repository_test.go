package repository

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszKielar/Home-Air-Quality-Station/internal/entities"
)

func openTestRepository(t *testing.T) (*SQLAQRepository, *Gateway) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "haqs-test.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", dbPath)

	gw, err := OpenGateway("sqlite3", dsn, nil)
	require.NoError(t, err)

	repo := NewSQLAQRepository(gw, nil)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.EnsureSchema())
	return repo, gw
}

func countRows(t *testing.T, gw *Gateway, table string) int {
	t.Helper()
	rows, err := gw.Query("SELECT COUNT(*) FROM " + table)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	return n
}

func insertFixture(t *testing.T, repo *SQLAQRepository) {
	t.Helper()
	batch, err := repo.BeginIngest()
	require.NoError(t, err)

	require.NoError(t, batch.InsertStation(entities.Station{ID: 114, Name: "Wrocław - Bartnicza", Lon: 17.141125, Lat: 51.115933}))
	require.NoError(t, batch.InsertSensor(entities.Sensor{ID: 642, Parameter: "NO2", StationID: 114}))
	require.NoError(t, batch.InsertSensor(entities.Sensor{ID: 14395, Parameter: "PM10", StationID: 114}))

	inserted, err := batch.InsertReading(entities.Reading{SensorID: 14395, Date: "2025-04-18 11:00:00", Value: 22.1498})
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, batch.Commit())
}

func TestOpenGatewayUnknownDriver(t *testing.T) {
	_, err := OpenGateway("oracle", "whatever", nil)
	assert.Error(t, err)
}

func TestOpenGatewayConnectionFailure(t *testing.T) {
	// A directory path is not a usable sqlite database file
	_, err := OpenGateway("sqlite3", fmt.Sprintf("file:%s", t.TempDir()), nil)
	assert.ErrorIs(t, err, ErrStoreConnection)
}

func TestEnsureSchemaIsRerunnable(t *testing.T) {
	repo, _ := openTestRepository(t)
	// Second bootstrap against the existing schema must be contained
	assert.NoError(t, repo.EnsureSchema())
}

func TestInsertStationDuplicateIsSwallowed(t *testing.T) {
	repo, gw := openTestRepository(t)
	insertFixture(t, repo)

	batch, err := repo.BeginIngest()
	require.NoError(t, err)

	// Same primary key, different everything else: the violation stays
	// inside the gateway and the row count does not change
	err = batch.InsertStation(entities.Station{ID: 114, Name: "imposter", Lon: 0, Lat: 0})
	assert.NoError(t, err)
	assert.Equal(t, 1, batch.Contained())

	require.NoError(t, batch.Commit())
	assert.Equal(t, 1, countRows(t, gw, "stations"))

	stations, err := repo.GetStations()
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "Wrocław - Bartnicza", stations[0].Name)
}

func TestBatchStaysUsableAfterContainedFailure(t *testing.T) {
	repo, gw := openTestRepository(t)
	insertFixture(t, repo)

	batch, err := repo.BeginIngest()
	require.NoError(t, err)

	// A contained duplicate must not poison the statements after it
	require.NoError(t, batch.InsertStation(entities.Station{ID: 114}))
	require.NoError(t, batch.InsertStation(entities.Station{ID: 200, Name: "Legnica", Lon: 16.180513, Lat: 51.204503}))
	require.NoError(t, batch.Commit())

	assert.Equal(t, 2, countRows(t, gw, "stations"))
}

func TestInsertReadingDeduplicates(t *testing.T) {
	repo, gw := openTestRepository(t)
	insertFixture(t, repo)

	batch, err := repo.BeginIngest()
	require.NoError(t, err)

	inserted, err := batch.InsertReading(entities.Reading{SensorID: 14395, Date: "2025-04-18 11:00:00", Value: 22.1498})
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = batch.InsertReading(entities.Reading{SensorID: 14395, Date: "2025-04-18 12:00:00", Value: 25.0})
	require.NoError(t, err)
	assert.True(t, inserted)

	require.NoError(t, batch.Commit())
	assert.Equal(t, 2, countRows(t, gw, "readings"))
}

func TestInsertSensorWithMissingStationIsContained(t *testing.T) {
	repo, gw := openTestRepository(t)

	batch, err := repo.BeginIngest()
	require.NoError(t, err)

	// Station 999 does not exist; the FK violation is swallowed and no
	// dangling sensor row appears
	require.NoError(t, batch.InsertSensor(entities.Sensor{ID: 700, Parameter: "SO2", StationID: 999}))
	require.NoError(t, batch.Commit())

	assert.Equal(t, 0, countRows(t, gw, "sensors"))
}

func TestInsertReadingWithMissingSensorIsContained(t *testing.T) {
	repo, gw := openTestRepository(t)

	batch, err := repo.BeginIngest()
	require.NoError(t, err)

	inserted, err := batch.InsertReading(entities.Reading{SensorID: 999, Date: "2025-04-18 11:00:00", Value: 1.0})
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, batch.Commit())

	assert.Equal(t, 0, countRows(t, gw, "readings"))
}

func TestGetParameters(t *testing.T) {
	repo, _ := openTestRepository(t)
	insertFixture(t, repo)

	params, err := repo.GetParameters()
	require.NoError(t, err)
	assert.Equal(t, []string{"NO2", "PM10"}, params)
}

func TestGetParameterReadingsJoinsStationGeometry(t *testing.T) {
	repo, _ := openTestRepository(t)
	insertFixture(t, repo)

	readings, err := repo.GetParameterReadings("PM10", "2025-04-18 11:00:00")
	require.NoError(t, err)
	require.Len(t, readings, 1)

	rd := readings[0]
	assert.Equal(t, 14395, rd.SensorID)
	assert.Equal(t, "PM10", rd.Parameter)
	assert.Equal(t, 22.1498, rd.Value)
	assert.Equal(t, 114, rd.StationID)
	assert.Equal(t, 17.141125, rd.Lon)
	assert.Equal(t, 51.115933, rd.Lat)

	// Different window, no rows
	readings, err = repo.GetParameterReadings("PM10", "2025-04-18 12:00:00")
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestRollbackDiscardsBatch(t *testing.T) {
	repo, gw := openTestRepository(t)

	batch, err := repo.BeginIngest()
	require.NoError(t, err)
	require.NoError(t, batch.InsertStation(entities.Station{ID: 1, Lon: 10, Lat: 20}))
	require.NoError(t, batch.Rollback())

	assert.Equal(t, 0, countRows(t, gw, "stations"))
}

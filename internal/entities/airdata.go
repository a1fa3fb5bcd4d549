// Package entities contains the core domain objects for the air quality station
package entities

// Station represents a fixed physical air quality monitoring location
type Station struct {
	ID   int     // GIOS station identifier
	Name string  // Human readable station name
	Lon  float64 // Longitude, WGS84
	Lat  float64 // Latitude, WGS84
}

// Sensor represents a single-parameter measuring instrument attached to a station
type Sensor struct {
	ID        int    // GIOS sensor identifier
	Parameter string // Measured parameter code, e.g. "PM10"
	StationID int    // Owning station identifier
}

// SensorValue is one entry of a sensor's reading series as returned by the
// provider. Value is nil when the provider reports an explicit null.
type SensorValue struct {
	Date  string
	Value *float64
}

// Reading is one timestamped measurement persisted for a sensor.
// (SensorID, Date) identifies a reading; the date string uses the
// fixed "2006-01-02 15:04:05" lexical format.
type Reading struct {
	SensorID int
	Date     string
	Value    float64
}

// ParameterReading is a reading joined with its sensor parameter and
// station location, used by the read-side consumers.
type ParameterReading struct {
	SensorID  int
	Date      string
	Value     float64
	Parameter string
	StationID int
	Lon       float64
	Lat       float64
}

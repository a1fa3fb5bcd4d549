package usecases

import "github.com/lukaszKielar/Home-Air-Quality-Station/internal/entities"

// LatestValue returns the most recent usable value of a reading series.
// The provider orders series newest first, but its "latest" slot is
// often null even when an only-slightly-stale value exists further
// down, so the scan walks forward in time until it finds a non-null
// entry. An empty or all-null series reports ok=false; that is the
// expected state of an inactive sensor, not an error.
func LatestValue(series []entities.SensorValue) (value float64, ok bool) {
	for _, v := range series {
		if v.Value != nil {
			return *v.Value, true
		}
	}
	return 0, false
}

package datamodel

import "strconv"

// Fixed index and ranking keys of the sensor data model
const (
	KeySensorAll            = "sensor:all"
	KeySensorAvgTemperature = "sensor:avg:temperature"
	KeySensorAlerts         = "sensor:alerts"
)

// Default sensor metadata of the lab deployment
const (
	SensorStatusActive = "active"
	SensorTypeMica2    = "Mica2"
)

// Sensor describes one mote of the deployment, stored under sensor:<id>.
type Sensor struct {
	MoteID int
	PosX   float64
	PosY   float64
	Status string
	Type   string
}

// HashFields returns the sensor metadata as stored in the sensor:<id> hash.
func (s *Sensor) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"mote_id": s.MoteID,
		"pos_x":   s.PosX,
		"pos_y":   s.PosY,
		"status":  s.Status,
		"type":    s.Type,
	}
}

// SensorFromHash rebuilds a sensor from the fields of its hash.
func SensorFromHash(id int, fields map[string]string) Sensor {
	return Sensor{
		MoteID: id,
		PosX:   parseFloat(fields["pos_x"]),
		PosY:   parseFloat(fields["pos_y"]),
		Status: fields["status"],
		Type:   fields["type"],
	}
}

// Reading is one measurement. It is kept as a JSON member of the
// sensor:<id>:readings sorted set, scored by its epoch timestamp.
type Reading struct {
	Temperature float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
	Voltage     float64 `json:"voltage"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
}

// LatestFields returns the sensor:<id>:latest hash fields for a reading.
func (r *Reading) LatestFields(epoch float64) map[string]interface{} {
	return map[string]interface{}{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"light":       r.Light,
		"voltage":     r.Voltage,
		"timestamp":   epoch,
		"date":        r.Date,
		"time":        r.Time,
	}
}

// SensorKey returns sensor:<id>
func SensorKey(id int) string { return "sensor:" + strconv.Itoa(id) }

// SensorReadingsKey returns sensor:<id>:readings
func SensorReadingsKey(id int) string {
	return "sensor:" + strconv.Itoa(id) + ":readings"
}

// SensorLatestKey returns sensor:<id>:latest
func SensorLatestKey(id int) string {
	return "sensor:" + strconv.Itoa(id) + ":latest"
}

// SensorConnectivityKey returns sensor:<id>:connectivity
func SensorConnectivityKey(id int) string {
	return "sensor:" + strconv.Itoa(id) + ":connectivity"
}

package iot

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Store owns every mutation of the sensor data model. Write methods
// compute the full primary and index delta and apply it as one
// pipeline, reads go straight to redis.
type Store struct {
	rdb *redis.Client
	mu  sync.Mutex
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// SensorTemperature is one entry of the average temperature ranking.
type SensorTemperature struct {
	MoteID         int
	AvgTemperature float64
}

// Connection is one edge of the connectivity graph.
type Connection struct {
	Target      int
	Probability float64
}

// HourlyStats aggregates the readings of one hour of day.
type HourlyStats struct {
	Min float64
	Avg float64
	Max float64
}

// DayNightComparison contrasts a sensor's day (8-20h) and night averages.
type DayNightComparison struct {
	MoteID     int
	DayAvg     float64
	NightAvg   float64
	Difference float64
}

// ZoneComparison contrasts the average temperatures left and right of an
// x coordinate threshold.
type ZoneComparison struct {
	LeftAvg  float64
	RightAvg float64
}

// SpatialPoint places a sensor's average temperature at its position.
type SpatialPoint struct {
	MoteID         int
	X              float64
	Y              float64
	AvgTemperature float64
}

// CreateSensor registers a sensor: the metadata hash plus the membership
// in the all-sensors set, in one batch.
func (s *Store) CreateSensor(ctx context.Context, sensor datamodel.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, datamodel.SensorKey(sensor.MoteID), sensor.HashFields())
		pipe.SAdd(ctx, datamodel.KeySensorAll, sensor.MoteID)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Created sensor %d at (%.1f, %.1f)", sensor.MoteID, sensor.PosX, sensor.PosY)
	}
	return err
}

// AddReading appends a reading to the sensor's time series and mirrors
// it into the latest-reading hash.
func (s *Store) AddReading(ctx context.Context, moteID int, reading datamodel.Reading, epoch float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reading.Date == "" {
		ts := time.Unix(int64(epoch), 0)
		reading.Date = ts.Format("2006-01-02")
		reading.Time = ts.Format("15:04:05")
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, datamodel.SensorReadingsKey(moteID), &redis.Z{Score: epoch, Member: string(payload)})
		pipe.HSet(ctx, datamodel.SensorLatestKey(moteID), reading.LatestFields(epoch))
		return nil
	})
	return err
}

// Sensor reads the metadata hash. found is false for unknown sensors.
func (s *Store) Sensor(ctx context.Context, moteID int) (sensor datamodel.Sensor, found bool, err error) {
	fields, err := s.rdb.HGetAll(ctx, datamodel.SensorKey(moteID)).Result()
	if err != nil {
		return datamodel.Sensor{}, false, err
	}
	if len(fields) == 0 {
		return datamodel.Sensor{}, false, nil
	}
	return datamodel.SensorFromHash(moteID, fields), true, nil
}

// LatestReading returns the most recent reading of a sensor together
// with its epoch timestamp.
func (s *Store) LatestReading(ctx context.Context, moteID int) (reading datamodel.Reading, epoch float64, found bool, err error) {
	fields, err := s.rdb.HGetAll(ctx, datamodel.SensorLatestKey(moteID)).Result()
	if err != nil || len(fields) == 0 {
		return datamodel.Reading{}, 0, false, err
	}
	reading = datamodel.Reading{
		Temperature: parseFloatField(fields["temperature"]),
		Humidity:    parseFloatField(fields["humidity"]),
		Light:       parseFloatField(fields["light"]),
		Voltage:     parseFloatField(fields["voltage"]),
		Date:        fields["date"],
		Time:        fields["time"],
	}
	return reading, parseFloatField(fields["timestamp"]), true, nil
}

// ReadingsInRange returns up to limit readings between two epochs.
func (s *Store) ReadingsInRange(ctx context.Context, moteID int, startEpoch, endEpoch float64, limit int64) ([]datamodel.Reading, error) {
	raw, err := s.rdb.ZRangeByScore(ctx, datamodel.SensorReadingsKey(moteID), &redis.ZRangeBy{
		Min:    strconv.FormatFloat(startEpoch, 'f', -1, 64),
		Max:    strconv.FormatFloat(endEpoch, 'f', -1, 64),
		Offset: 0,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	return decodeReadings(raw), nil
}

// Sensors returns all registered sensor ids, ascending.
func (s *Store) Sensors(ctx context.Context) ([]int, error) {
	members, err := s.rdb.SMembers(ctx, datamodel.KeySensorAll).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(members))
	for _, member := range members {
		id, convErr := strconv.Atoi(member)
		if convErr != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *Store) SensorCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeySensorAll).Result()
}

// UpdateSensorStatus sets the status field (active, inactive, maintenance).
func (s *Store) UpdateSensorStatus(ctx context.Context, moteID int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rdb.HSet(ctx, datamodel.SensorKey(moteID), "status", status).Err()
}

func (s *Store) UpdateSensorPosition(ctx context.Context, moteID int, posX, posY float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rdb.HSet(ctx, datamodel.SensorKey(moteID), map[string]interface{}{
		"pos_x": posX,
		"pos_y": posY,
	}).Err()
}

// DeleteSensor removes a sensor with its readings, latest hash,
// connectivity edges and every index entry, in one batch.
func (s *Store) DeleteSensor(ctx context.Context, moteID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, datamodel.KeySensorAll, moteID)
		pipe.ZRem(ctx, datamodel.KeySensorAvgTemperature, moteID)
		pipe.Del(ctx,
			datamodel.SensorKey(moteID),
			datamodel.SensorReadingsKey(moteID),
			datamodel.SensorLatestKey(moteID),
			datamodel.SensorConnectivityKey(moteID),
		)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Deleted sensor %d and all associated data", moteID)
	}
	return err
}

// DeleteOldReadings drops every reading before the given epoch and
// returns how many were removed.
func (s *Store) DeleteOldReadings(ctx context.Context, moteID int, beforeEpoch float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rdb.ZRemRangeByScore(ctx, datamodel.SensorReadingsKey(moteID),
		"-inf", strconv.FormatFloat(beforeEpoch, 'f', -1, 64)).Result()
}

// HottestSensors ranks sensors by average temperature, highest first.
func (s *Store) HottestSensors(ctx context.Context, n int64) ([]SensorTemperature, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, datamodel.KeySensorAvgTemperature, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	return toSensorTemperatures(entries), nil
}

// ColdestSensors ranks sensors by average temperature, lowest first.
func (s *Store) ColdestSensors(ctx context.Context, n int64) ([]SensorTemperature, error) {
	entries, err := s.rdb.ZRangeWithScores(ctx, datamodel.KeySensorAvgTemperature, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	return toSensorTemperatures(entries), nil
}

func (s *Store) RecentAlerts(ctx context.Context, n int64) ([]string, error) {
	return s.rdb.LRange(ctx, datamodel.KeySensorAlerts, 0, n-1).Result()
}

func (s *Store) AlertCount(ctx context.Context) (int64, error) {
	return s.rdb.LLen(ctx, datamodel.KeySensorAlerts).Result()
}

// SensorsInTemperatureRange returns sensors whose average temperature
// falls inside [minTemp, maxTemp].
func (s *Store) SensorsInTemperatureRange(ctx context.Context, minTemp, maxTemp float64) ([]SensorTemperature, error) {
	entries, err := s.rdb.ZRangeByScoreWithScores(ctx, datamodel.KeySensorAvgTemperature, &redis.ZRangeBy{
		Min: strconv.FormatFloat(minTemp, 'f', -1, 64),
		Max: strconv.FormatFloat(maxTemp, 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, err
	}
	return toSensorTemperatures(entries), nil
}

func (s *Store) ReadingCount(ctx context.Context, moteID int) (int64, error) {
	return s.rdb.ZCard(ctx, datamodel.SensorReadingsKey(moteID)).Result()
}

// Connectivity returns the transmission success probabilities from one
// sensor to its peers.
func (s *Store) Connectivity(ctx context.Context, moteID int) (map[int]float64, error) {
	fields, err := s.rdb.HGetAll(ctx, datamodel.SensorConnectivityKey(moteID)).Result()
	if err != nil {
		return nil, err
	}
	edges := make(map[int]float64, len(fields))
	for target, probability := range fields {
		targetID, convErr := strconv.Atoi(target)
		if convErr != nil {
			continue
		}
		edges[targetID] = parseFloatField(probability)
	}
	return edges, nil
}

// BestConnectedSensors filters the connectivity edges of a sensor by a
// success threshold, best first.
func (s *Store) BestConnectedSensors(ctx context.Context, moteID int, threshold float64) ([]Connection, error) {
	edges, err := s.Connectivity(ctx, moteID)
	if err != nil {
		return nil, err
	}
	connections := make([]Connection, 0, len(edges))
	for target, probability := range edges {
		if probability >= threshold {
			connections = append(connections, Connection{Target: target, Probability: probability})
		}
	}
	sort.Slice(connections, func(i, j int) bool {
		if connections[i].Probability != connections[j].Probability {
			return connections[i].Probability > connections[j].Probability
		}
		return connections[i].Target < connections[j].Target
	})
	return connections, nil
}

// HourlyTemperaturePattern averages the temperature per hour of day over
// up to limit readings.
func (s *Store) HourlyTemperaturePattern(ctx context.Context, moteID int, limit int64) (map[int]float64, error) {
	hourly, err := s.hourlyTemperatures(ctx, moteID, limit)
	if err != nil {
		return nil, err
	}
	pattern := make(map[int]float64, len(hourly))
	for hour, temps := range hourly {
		pattern[hour] = stat.Mean(temps, nil)
	}
	return pattern, nil
}

// DailyTemperatureCycle reports min, average and max temperature per
// hour of day over the full series.
func (s *Store) DailyTemperatureCycle(ctx context.Context, moteID int) (map[int]HourlyStats, error) {
	hourly, err := s.hourlyTemperatures(ctx, moteID, -1)
	if err != nil {
		return nil, err
	}
	cycle := make(map[int]HourlyStats, len(hourly))
	for hour, temps := range hourly {
		cycle[hour] = HourlyStats{
			Min: floats.Min(temps),
			Avg: stat.Mean(temps, nil),
			Max: floats.Max(temps),
		}
	}
	return cycle, nil
}

func (s *Store) hourlyTemperatures(ctx context.Context, moteID int, limit int64) (map[int][]float64, error) {
	stop := limit - 1
	if limit < 0 {
		stop = -1
	}
	raw, err := s.rdb.ZRange(ctx, datamodel.SensorReadingsKey(moteID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	hourly := make(map[int][]float64)
	for _, reading := range decodeReadings(raw) {
		hour, ok := hourOf(reading.Time)
		if !ok {
			continue
		}
		hourly[hour] = append(hourly[hour], reading.Temperature)
	}
	return hourly, nil
}

// CompareDayNight contrasts day (8-20h) and night averages for the first
// maxSensors registered sensors.
func (s *Store) CompareDayNight(ctx context.Context, maxSensors int) ([]DayNightComparison, error) {
	ids, err := s.Sensors(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > maxSensors {
		ids = ids[:maxSensors]
	}

	comparisons := make([]DayNightComparison, 0, len(ids))
	for _, moteID := range ids {
		raw, err := s.rdb.ZRange(ctx, datamodel.SensorReadingsKey(moteID), 0, 5000).Result()
		if err != nil {
			return nil, err
		}
		var day, night []float64
		for _, reading := range decodeReadings(raw) {
			hour, ok := hourOf(reading.Time)
			if !ok {
				continue
			}
			if hour >= 8 && hour < 20 {
				day = append(day, reading.Temperature)
			} else {
				night = append(night, reading.Temperature)
			}
		}
		if len(day) == 0 || len(night) == 0 {
			continue
		}
		dayAvg := stat.Mean(day, nil)
		nightAvg := stat.Mean(night, nil)
		comparisons = append(comparisons, DayNightComparison{
			MoteID:     moteID,
			DayAvg:     dayAvg,
			NightAvg:   nightAvg,
			Difference: dayAvg - nightAvg,
		})
	}
	return comparisons, nil
}

// SensorsByZone splits sensors into a left and right zone at an x
// coordinate threshold.
func (s *Store) SensorsByZone(ctx context.Context, xThreshold float64) (left, right []int, err error) {
	ids, err := s.Sensors(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, moteID := range ids {
		sensor, found, err := s.Sensor(ctx, moteID)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			continue
		}
		if sensor.PosX < xThreshold {
			left = append(left, moteID)
		} else {
			right = append(right, moteID)
		}
	}
	return left, right, nil
}

// CompareZoneTemperatures averages the ranking scores of both zones.
func (s *Store) CompareZoneTemperatures(ctx context.Context, xThreshold float64) (ZoneComparison, error) {
	left, right, err := s.SensorsByZone(ctx, xThreshold)
	if err != nil {
		return ZoneComparison{}, err
	}

	zoneAvg := func(ids []int) (float64, error) {
		var temps []float64
		for _, moteID := range ids {
			score, err := s.rdb.ZScore(ctx, datamodel.KeySensorAvgTemperature, strconv.Itoa(moteID)).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return 0, err
			}
			temps = append(temps, score)
		}
		if len(temps) == 0 {
			return 0, nil
		}
		return stat.Mean(temps, nil), nil
	}

	leftAvg, err := zoneAvg(left)
	if err != nil {
		return ZoneComparison{}, err
	}
	rightAvg, err := zoneAvg(right)
	if err != nil {
		return ZoneComparison{}, err
	}
	return ZoneComparison{LeftAvg: leftAvg, RightAvg: rightAvg}, nil
}

// Hotspots returns the n warmest sensors with their positions.
func (s *Store) Hotspots(ctx context.Context, n int64) ([]SpatialPoint, error) {
	ranked, err := s.HottestSensors(ctx, n)
	if err != nil {
		return nil, err
	}
	return s.placeSensors(ctx, ranked)
}

// Coldspots returns the n coldest sensors with their positions.
func (s *Store) Coldspots(ctx context.Context, n int64) ([]SpatialPoint, error) {
	ranked, err := s.ColdestSensors(ctx, n)
	if err != nil {
		return nil, err
	}
	return s.placeSensors(ctx, ranked)
}

// SpatialTemperatureMap lists every ranked sensor with position and
// average temperature, ascending by id.
func (s *Store) SpatialTemperatureMap(ctx context.Context) ([]SpatialPoint, error) {
	ids, err := s.Sensors(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]SpatialPoint, 0, len(ids))
	for _, moteID := range ids {
		score, err := s.rdb.ZScore(ctx, datamodel.KeySensorAvgTemperature, strconv.Itoa(moteID)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		sensor, found, err := s.Sensor(ctx, moteID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		points = append(points, SpatialPoint{MoteID: moteID, X: sensor.PosX, Y: sensor.PosY, AvgTemperature: score})
	}
	return points, nil
}

func (s *Store) placeSensors(ctx context.Context, ranked []SensorTemperature) ([]SpatialPoint, error) {
	points := make([]SpatialPoint, 0, len(ranked))
	for _, entry := range ranked {
		sensor, found, err := s.Sensor(ctx, entry.MoteID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		points = append(points, SpatialPoint{
			MoteID:         entry.MoteID,
			X:              sensor.PosX,
			Y:              sensor.PosY,
			AvgTemperature: entry.AvgTemperature,
		})
	}
	return points, nil
}

func toSensorTemperatures(entries []redis.Z) []SensorTemperature {
	ranked := make([]SensorTemperature, 0, len(entries))
	for _, entry := range entries {
		member, _ := entry.Member.(string)
		moteID, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		ranked = append(ranked, SensorTemperature{MoteID: moteID, AvgTemperature: entry.Score})
	}
	return ranked
}

func decodeReadings(raw []string) []datamodel.Reading {
	readings := make([]datamodel.Reading, 0, len(raw))
	for _, payload := range raw {
		var reading datamodel.Reading
		if err := json.Unmarshal([]byte(payload), &reading); err != nil {
			continue
		}
		readings = append(readings, reading)
	}
	return readings
}

// hourOf extracts the hour from a HH:MM:SS.ffff time string.
func hourOf(timeStr string) (int, bool) {
	if len(timeStr) < 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(timeStr[:2])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

func parseFloatField(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

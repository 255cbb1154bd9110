package iot

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

const (
	// The Intel Berkeley Lab deployment has 54 motes.
	sensorCount = 54

	// Voltage below this threshold raises a low battery alert.
	lowBatteryThreshold = 2.0

	// At most this many alerts are kept from one import run.
	alertCap = 1000
)

// Importer bulk loads the Intel Berkeley Lab sensor dataset, or a
// deterministic synthetic deployment when the files are absent.
type Importer struct {
	rdb      *redis.Client
	dataPath string
	limit    int
	shutdown internal.GracefulShutdownHandler
}

func NewImporter(rdb *redis.Client, dataPath string, limit int, shutdown internal.GracefulShutdownHandler) *Importer {
	return &Importer{rdb: rdb, dataPath: dataPath, limit: limit, shutdown: shutdown}
}

func (imp *Importer) reachedLimit(imported uint64) bool {
	return imp.limit > 0 && imported >= uint64(imp.limit)
}

func (imp *Importer) aborted() bool {
	return imp.shutdown != nil && imp.shutdown.ShuttingDown()
}

// InitSensors writes the 54 sensor metadata hashes and the all-sensors
// set. Positions come from mote_locs.txt when present, otherwise from
// the synthetic floor plan.
func (imp *Importer) InitSensors(ctx context.Context) (uint64, error) {
	positions, err := imp.loadPositions()
	if err != nil {
		return 0, err
	}

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for moteID := 1; moteID <= sensorCount; moteID++ {
		pos := positions[moteID]
		sensor := datamodel.Sensor{
			MoteID: moteID,
			PosX:   pos[0],
			PosY:   pos[1],
			Status: datamodel.SensorStatusActive,
			Type:   datamodel.SensorTypeMica2,
		}
		batch.Pipe().HSet(ctx, datamodel.SensorKey(moteID), sensor.HashFields())
		batch.Pipe().SAdd(ctx, datamodel.KeySensorAll, moteID)
		if err := batch.MaybeFlush(ctx); err != nil {
			return 0, err
		}
	}
	return sensorCount, batch.Flush(ctx)
}

// loadPositions reads mote_locs.txt (mote id, x, y per line). Missing
// file or unparsable lines degrade to the synthetic floor plan.
func (imp *Importer) loadPositions() (map[int][2]float64, error) {
	path := filepath.Join(imp.dataPath, "mote_locs.txt")
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, using synthetic sensor positions", path)
		return samplePositions(), nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	positions := make(map[int][2]float64, sensorCount)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			continue
		}
		moteID, errID := strconv.Atoi(parts[0])
		x, errX := strconv.ParseFloat(parts[1], 64)
		y, errY := strconv.ParseFloat(parts[2], 64)
		if errID != nil || errX != nil || errY != nil {
			continue
		}
		positions[moteID] = [2]float64{x, y}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	zap.S().Infof("Loaded %d sensor positions from mote_locs.txt", len(positions))
	return positions, nil
}

// readingAggregates carries the per-sensor state of one readings import:
// temperature sums for the average ranking, the latest reading per
// sensor and the collected low battery alerts.
type readingAggregates struct {
	tempSums   map[int]float64
	tempCounts map[int]int
	latest     map[int]map[string]interface{}
	alerts     []string
}

func newReadingAggregates() *readingAggregates {
	return &readingAggregates{
		tempSums:   make(map[int]float64),
		tempCounts: make(map[int]int),
		latest:     make(map[int]map[string]interface{}),
	}
}

func (agg *readingAggregates) track(moteID int, reading datamodel.Reading, epoch float64) {
	agg.tempSums[moteID] += reading.Temperature
	agg.tempCounts[moteID]++
	agg.latest[moteID] = reading.LatestFields(epoch)
	if reading.Voltage < lowBatteryThreshold {
		agg.alerts = append(agg.alerts,
			fmt.Sprintf("Low battery on sensor %d: %.3fV at %s %s", moteID, reading.Voltage, reading.Date, reading.Time))
	}
}

// flush writes the latest-reading hashes, the average temperature
// ranking and the capped alert list as a final stage.
func (agg *readingAggregates) flush(ctx context.Context, batch *internal.PipelineBatcher) error {
	for moteID, fields := range agg.latest {
		batch.Pipe().HSet(ctx, datamodel.SensorLatestKey(moteID), fields)
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	for moteID, total := range agg.tempSums {
		avg := total / float64(agg.tempCounts[moteID])
		batch.Pipe().ZAdd(ctx, datamodel.KeySensorAvgTemperature, &redis.Z{Score: avg, Member: moteID})
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	alerts := agg.alerts
	if len(alerts) > alertCap {
		alerts = alerts[:alertCap]
	}
	for _, alert := range alerts {
		batch.Pipe().LPush(ctx, datamodel.KeySensorAlerts, alert)
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	return batch.Flush(ctx)
}

// validReading applies the dataset's plausibility ranges. Readings
// outside them are measurement glitches and are skipped.
func validReading(reading datamodel.Reading) bool {
	if reading.Temperature < -40 || reading.Temperature > 60 {
		return false
	}
	if reading.Humidity < 0 || reading.Humidity > 100 {
		return false
	}
	if reading.Voltage < 0 || reading.Voltage > 3.5 {
		return false
	}
	return true
}

// ImportReadings streams data.txt into the per-sensor time series. Each
// valid line becomes a JSON member of the readings sorted set, scored by
// its epoch; averages, latest readings and alerts follow as a final
// aggregation stage.
func (imp *Importer) ImportReadings(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "data.txt")
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic readings", path)
		return imp.importSampleReadings(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	agg := newReadingAggregates()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		moteID, reading, epoch, ok := parseReadingLine(scanner.Text())
		if !ok || !validReading(reading) {
			skipped++
			continue
		}
		if err = queueReading(ctx, batch, moteID, reading, epoch); err != nil {
			return imported, skipped, err
		}
		agg.track(moteID, reading, epoch)
		imported++

		if imported%500000 == 0 {
			fmt.Printf("  -> %d readings imported...\n", imported)
		}
	}
	if err = scanner.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped, agg.flush(ctx, batch)
}

func queueReading(ctx context.Context, batch *internal.PipelineBatcher, moteID int, reading datamodel.Reading, epoch float64) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	batch.Pipe().ZAdd(ctx, datamodel.SensorReadingsKey(moteID), &redis.Z{Score: epoch, Member: string(payload)})
	return batch.MaybeFlush(ctx)
}

// parseReadingLine decodes one whitespace separated line of data.txt:
// date time epoch-counter mote-id temperature humidity light voltage.
func parseReadingLine(line string) (moteID int, reading datamodel.Reading, epoch float64, ok bool) {
	parts := strings.Fields(line)
	if len(parts) < 8 {
		return 0, datamodel.Reading{}, 0, false
	}
	dateStr := parts[0]
	timeStr := parts[1]
	moteID, errID := strconv.Atoi(parts[3])
	temperature, errT := strconv.ParseFloat(parts[4], 64)
	humidity, errH := strconv.ParseFloat(parts[5], 64)
	light, errL := strconv.ParseFloat(parts[6], 64)
	voltage, errV := strconv.ParseFloat(parts[7], 64)
	if errID != nil || errT != nil || errH != nil || errL != nil || errV != nil {
		return 0, datamodel.Reading{}, 0, false
	}

	// The time column carries sub-second digits the epoch does not need
	ts, errTS := time.Parse("2006-01-02 15:04:05", dateStr+" "+strings.Split(timeStr, ".")[0])
	if errTS != nil {
		return 0, datamodel.Reading{}, 0, false
	}

	reading = datamodel.Reading{
		Temperature: round2(temperature),
		Humidity:    round2(humidity),
		Light:       round2(light),
		Voltage:     round3(voltage),
		Date:        dateStr,
		Time:        timeStr,
	}
	return moteID, reading, float64(ts.Unix()), true
}

// ImportConnectivity loads connectivity.txt: transmission success
// probability per directed sensor pair, stored as hash fields.
func (imp *Importer) ImportConnectivity(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "connectivity.txt")
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic connectivity", path)
		return imp.importSampleConnectivity(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			skipped++
			continue
		}
		fromSensor, errFrom := strconv.Atoi(parts[0])
		toSensor, errTo := strconv.Atoi(parts[1])
		probability, errProb := strconv.ParseFloat(parts[2], 64)
		if errFrom != nil || errTo != nil || errProb != nil {
			skipped++
			continue
		}

		batch.Pipe().HSet(ctx, datamodel.SensorConnectivityKey(fromSensor), strconv.Itoa(toSensor), probability)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = scanner.Err(); err != nil {
		return imported, skipped, err
	}
	return imported, skipped, batch.Flush(ctx)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

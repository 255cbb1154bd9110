package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/internal/iot"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func main() {
	InitLogging()
	internal.Initfgtrace()

	ctx := context.Background()
	rdb, err := internal.NewRedisClient(ctx)
	if err != nil {
		zap.S().Fatalf("Failed to connect to redis: %s", err)
	}
	store := iot.NewStore(rdb)

	fmt.Println("==================================================")
	fmt.Println("IoT Sensor Use Case - Queries Demo")
	fmt.Println("==================================================")

	runStatistics(ctx, store)
	runSensorDetails(ctx, store, 1)
	runTemporalAnalysis(ctx, store)
	runSpatialAnalysis(ctx, store)
	runConnectivity(ctx, store)
	runCRUDDemo(ctx, store)
}

func runStatistics(ctx context.Context, store *iot.Store) {
	sensorCount, err := store.SensorCount(ctx)
	fatalOn(err)
	fmt.Printf("\nTotal sensors: %d\n", sensorCount)

	hottest, err := store.HottestSensors(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 hottest sensors (by avg temperature):")
	for _, sensor := range hottest {
		fmt.Printf("  Sensor %2d: %.2f C\n", sensor.MoteID, sensor.AvgTemperature)
	}

	coldest, err := store.ColdestSensors(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 coldest sensors (by avg temperature):")
	for _, sensor := range coldest {
		fmt.Printf("  Sensor %2d: %.2f C\n", sensor.MoteID, sensor.AvgTemperature)
	}

	alertCount, err := store.AlertCount(ctx)
	fatalOn(err)
	fmt.Printf("\nTotal alerts: %d\n", alertCount)
	alerts, err := store.RecentAlerts(ctx, 5)
	fatalOn(err)
	for _, alert := range alerts {
		fmt.Printf("  %s\n", alert)
	}

	inRange, err := store.SensorsInTemperatureRange(ctx, 18.0, 22.0)
	fatalOn(err)
	fmt.Printf("\nSensors averaging between 18.0 C and 22.0 C: %d\n", len(inRange))
}

func runSensorDetails(ctx context.Context, store *iot.Store, moteID int) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Printf("Sensor %d Details\n", moteID)
	fmt.Println("--------------------------------------------------")

	sensor, found, err := store.Sensor(ctx, moteID)
	fatalOn(err)
	if !found {
		fmt.Printf("Sensor %d not found.\n", moteID)
		return
	}
	fmt.Printf("Position: (%.2f, %.2f), status: %s\n", sensor.PosX, sensor.PosY, sensor.Status)

	reading, _, found, err := store.LatestReading(ctx, moteID)
	fatalOn(err)
	if found {
		fmt.Printf("Latest reading: %.2f C, %.2f %% humidity, %.3f V\n",
			reading.Temperature, reading.Humidity, reading.Voltage)
	}

	readingCount, err := store.ReadingCount(ctx, moteID)
	fatalOn(err)
	fmt.Printf("Total readings: %d\n", readingCount)
}

func runTemporalAnalysis(ctx context.Context, store *iot.Store) {
	fmt.Println("\n==================================================")
	fmt.Println("TEMPORAL ANALYSIS")
	fmt.Println("==================================================")

	pattern, err := store.HourlyTemperaturePattern(ctx, 1, 5000)
	fatalOn(err)
	fmt.Println("\nHourly temperature pattern of sensor 1:")
	for _, hour := range sortedHours(len(pattern), pattern) {
		fmt.Printf("  %02d:00  %.2f C\n", hour, pattern[hour])
	}

	cycle, err := store.DailyTemperatureCycle(ctx, 1)
	fatalOn(err)
	fmt.Println("\nDaily temperature cycle of sensor 1 (min/avg/max):")
	hours := make([]int, 0, len(cycle))
	for hour := range cycle {
		hours = append(hours, hour)
	}
	sort.Ints(hours)
	for _, hour := range hours {
		stats := cycle[hour]
		fmt.Printf("  %02d:00  %.2f / %.2f / %.2f C\n", hour, stats.Min, stats.Avg, stats.Max)
	}

	dayNight, err := store.CompareDayNight(ctx, 5)
	fatalOn(err)
	fmt.Println("\nDay vs night averages:")
	for _, comparison := range dayNight {
		fmt.Printf("  Sensor %2d: day %.2f C, night %.2f C (diff %.2f)\n",
			comparison.MoteID, comparison.DayAvg, comparison.NightAvg, comparison.Difference)
	}
}

func runSpatialAnalysis(ctx context.Context, store *iot.Store) {
	fmt.Println("\n==================================================")
	fmt.Println("SPATIAL ANALYSIS")
	fmt.Println("==================================================")

	hotspots, err := store.Hotspots(ctx, 5)
	fatalOn(err)
	fmt.Println("\nHotspots:")
	for _, point := range hotspots {
		fmt.Printf("  Sensor %2d at (%.1f, %.1f): %.2f C\n",
			point.MoteID, point.X, point.Y, point.AvgTemperature)
	}

	coldspots, err := store.Coldspots(ctx, 5)
	fatalOn(err)
	fmt.Println("\nColdspots:")
	for _, point := range coldspots {
		fmt.Printf("  Sensor %2d at (%.1f, %.1f): %.2f C\n",
			point.MoteID, point.X, point.Y, point.AvgTemperature)
	}

	zones, err := store.CompareZoneTemperatures(ctx, 20)
	fatalOn(err)
	fmt.Printf("\nZone comparison at x=20: left %.2f C, right %.2f C\n",
		zones.LeftAvg, zones.RightAvg)
}

func runConnectivity(ctx context.Context, store *iot.Store) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Println("Network Connectivity")
	fmt.Println("--------------------------------------------------")

	connections, err := store.BestConnectedSensors(ctx, 1, 0.5)
	fatalOn(err)
	fmt.Println("Best connections of sensor 1 (success probability >= 0.5):")
	for _, connection := range connections {
		fmt.Printf("  -> Sensor %2d: %.2f\n", connection.Target, connection.Probability)
	}
}

func runCRUDDemo(ctx context.Context, store *iot.Store) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Println("CRUD Demo")
	fmt.Println("--------------------------------------------------")

	fatalOn(store.CreateSensor(ctx, datamodel.Sensor{
		MoteID: 99,
		PosX:   5.0,
		PosY:   5.0,
		Type:   "Test",
		Status: "active",
	}))
	sensor, _, err := store.Sensor(ctx, 99)
	fatalOn(err)
	fmt.Printf("Sensor 99: position (%.1f, %.1f), status %s\n", sensor.PosX, sensor.PosY, sensor.Status)

	fatalOn(store.AddReading(ctx, 99, datamodel.Reading{
		Temperature: 22.5,
		Humidity:    45.0,
		Light:       300,
		Voltage:     2.7,
	}, float64(time.Now().Unix())))
	reading, _, _, err := store.LatestReading(ctx, 99)
	fatalOn(err)
	fmt.Printf("Latest reading: %.1f C\n", reading.Temperature)

	fatalOn(store.UpdateSensorStatus(ctx, 99, "maintenance"))
	sensor, _, err = store.Sensor(ctx, 99)
	fatalOn(err)
	fmt.Printf("After update: status %s\n", sensor.Status)

	fatalOn(store.DeleteSensor(ctx, 99))
	_, found, err := store.Sensor(ctx, 99)
	fatalOn(err)
	fmt.Printf("After delete, sensor found: %t\n", found)
}

func sortedHours(n int, pattern map[int]float64) []int {
	hours := make([]int, 0, n)
	for hour := range pattern {
		hours = append(hours, hour)
	}
	sort.Ints(hours)
	return hours
}

func fatalOn(err error) {
	if err != nil {
		zap.S().Fatalf("Query failed: %s", err)
	}
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	_ = logger.New(logLevel)
}

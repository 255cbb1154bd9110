package iot

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Synthetic deployment shape, used when the dataset files are absent.
const (
	sampleSeed             = 2004
	sampleReadingsPerMote  = 2000
	sampleReadingIntervalS = 31
	// 2004-03-01 00:00:00 UTC, inside the window the real deployment ran
	sampleEpochStart = 1078099200
)

// samplePositions lays the 54 motes out on a lab-sized floor plan,
// roughly 40m x 30m like the original deployment.
func samplePositions() map[int][2]float64 {
	r := internal.NewSampleRand(sampleSeed)
	positions := make(map[int][2]float64, sensorCount)
	for moteID := 1; moteID <= sensorCount; moteID++ {
		positions[moteID] = [2]float64{
			math.Round(r.Float64()*400) / 10,
			math.Round(r.Float64()*300) / 10,
		}
	}
	return positions
}

// importSampleReadings generates a deterministic time series per mote: a
// daily sinusoid peaking mid-afternoon, a per-mote offset, seeded noise
// and a slowly draining battery. A few motes drop below the alert
// threshold so the alert list is populated.
func (imp *Importer) importSampleReadings(ctx context.Context) (imported, skipped uint64, err error) {
	r := internal.NewSampleRand(sampleSeed + 1)
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	agg := newReadingAggregates()

	for moteID := 1; moteID <= sensorCount; moteID++ {
		if imp.aborted() {
			break
		}
		moteOffset := r.Float64()*4 - 2
		startVoltage := 2.4 + r.Float64()*0.4

		for i := 0; i < sampleReadingsPerMote; i++ {
			if imp.reachedLimit(imported) {
				break
			}
			epoch := float64(sampleEpochStart + int64(i)*sampleReadingIntervalS)
			ts := epochToDateTime(epoch)
			hourOfDay := float64((int64(epoch)/3600)%24) + float64((int64(epoch)/60)%60)/60

			temperature := 19 + moteOffset + 3.5*math.Sin((hourOfDay-8)*math.Pi/12) + r.Float64() - 0.5
			humidity := 42 - (temperature-19)*1.5 + r.Float64()*4
			light := 0.0
			if hourOfDay >= 7 && hourOfDay <= 19 {
				light = 200 + 400*math.Sin((hourOfDay-7)*math.Pi/12) + r.Float64()*50
			}
			voltage := startVoltage - float64(i)*0.0003

			reading := datamodel.Reading{
				Temperature: round2(temperature),
				Humidity:    round2(humidity),
				Light:       round2(light),
				Voltage:     round3(voltage),
				Date:        ts[0],
				Time:        ts[1],
			}
			if !validReading(reading) {
				skipped++
				continue
			}
			if err = queueReading(ctx, batch, moteID, reading, epoch); err != nil {
				return imported, skipped, err
			}
			agg.track(moteID, reading, epoch)
			imported++
		}
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped, agg.flush(ctx, batch)
}

// importSampleConnectivity derives transmission probabilities from the
// synthetic floor plan: close motes hear each other well, beyond ~15m
// the link disappears.
func (imp *Importer) importSampleConnectivity(ctx context.Context) (imported, skipped uint64, err error) {
	positions := samplePositions()
	batch := internal.NewPipelineBatcher(imp.rdb, 0)

	for from := 1; from <= sensorCount; from++ {
		if imp.aborted() {
			break
		}
		for to := 1; to <= sensorCount; to++ {
			if from == to || imp.reachedLimit(imported) {
				continue
			}
			dx := positions[from][0] - positions[to][0]
			dy := positions[from][1] - positions[to][1]
			distance := math.Sqrt(dx*dx + dy*dy)
			if distance > 15 {
				continue
			}
			probability := math.Round((1-distance/15)*1000) / 1000

			batch.Pipe().HSet(ctx, datamodel.SensorConnectivityKey(from), strconv.Itoa(to), probability)
			imported++
			if err = batch.MaybeFlush(ctx); err != nil {
				return imported, skipped, err
			}
		}
	}
	return imported, skipped, batch.Flush(ctx)
}

// epochToDateTime splits an epoch into the dataset's date and time
// column format.
func epochToDateTime(epoch float64) [2]string {
	ts := time.Unix(int64(epoch), 0).UTC()
	return [2]string{ts.Format("2006-01-02"), ts.Format("15:04:05")}
}

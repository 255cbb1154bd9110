package iot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func newTestImporter(t *testing.T) (*Importer, *redis.Client, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dataPath := t.TempDir()
	return NewImporter(client, dataPath, 0, nil), client, dataPath
}

func TestInitSensorsFromPositionFile(t *testing.T) {
	imp, client, dataPath := newTestImporter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dataPath, "mote_locs.txt"),
		[]byte("1 21.5 23.0\n2 24.5 20.0\nbroken line\n"), 0o600))

	count, err := imp.InitSensors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(sensorCount), count)

	testCtx := context.Background()
	members, err := client.SCard(testCtx, datamodel.KeySensorAll).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(sensorCount), members)

	fields, err := client.HGetAll(testCtx, datamodel.SensorKey(1)).Result()
	require.NoError(t, err)
	assert.Equal(t, "21.5", fields["pos_x"])
	assert.Equal(t, "active", fields["status"])

	// sensor without a position entry defaults to the origin
	fields, err = client.HGetAll(testCtx, datamodel.SensorKey(3)).Result()
	require.NoError(t, err)
	assert.Equal(t, "0", fields["pos_x"])
}

func TestImportReadingsValidatesAndAggregates(t *testing.T) {
	imp, client, dataPath := newTestImporter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dataPath, "data.txt"), []byte(
		"2004-03-01 10:00:00.123 1 1 20.0 40.0 100.0 2.5\n"+
			"2004-03-01 10:01:00.123 2 1 22.0 40.0 100.0 1.9\n"+
			"2004-03-01 10:02:00.123 3 1 122.6 40.0 100.0 2.5\n"+ // temperature out of range
			"2004-03-01 10:03:00.123 4 2 19.0 140.0 100.0 2.5\n"+ // humidity out of range
			"short line\n"+
			"2004-03-01 10:04:00.123 5 2 18.0 35.0 90.0 2.6\n"), 0o600))

	imported, skipped, err := imp.ImportReadings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), imported)
	assert.Equal(t, uint64(3), skipped)

	testCtx := context.Background()
	count, err := client.ZCard(testCtx, datamodel.SensorReadingsKey(1)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// average of 20.0 and 22.0
	avg, err := client.ZScore(testCtx, datamodel.KeySensorAvgTemperature, "1").Result()
	require.NoError(t, err)
	assert.Equal(t, 21.0, avg)

	// the second valid reading of mote 1 is its latest
	latest, err := client.HGetAll(testCtx, datamodel.SensorLatestKey(1)).Result()
	require.NoError(t, err)
	assert.Equal(t, "22", latest["temperature"])

	// voltage 1.9 was below the alert threshold
	alerts, err := client.LRange(testCtx, datamodel.KeySensorAlerts, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Low battery on sensor 1")
}

func TestImportConnectivityParsesPairs(t *testing.T) {
	imp, client, dataPath := newTestImporter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dataPath, "connectivity.txt"),
		[]byte("1 2 0.85\n1 3 0.4\nnot parsable\n2 1 0.9\n"), 0o600))

	imported, skipped, err := imp.ImportConnectivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), imported)
	assert.Equal(t, uint64(1), skipped)

	fields, err := client.HGetAll(context.Background(), datamodel.SensorConnectivityKey(1)).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2": "0.85", "3": "0.4"}, fields)
}

func TestSamplePositionsDeterministic(t *testing.T) {
	first := samplePositions()
	second := samplePositions()
	require.Len(t, first, sensorCount)
	assert.Equal(t, first, second)
}

func TestSampleReadingsFallback(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	// limit keeps the test fast, sample generation is per mote
	imp := NewImporter(client, t.TempDir(), 300, nil)

	imported, _, err := imp.ImportReadings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(300), imported)

	count, err := client.ZCard(context.Background(), datamodel.SensorReadingsKey(1)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(300), count)
}

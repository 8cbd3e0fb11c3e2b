package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"storage": { "postgres": { "host": "10.0.0.1", "port": "5433" } }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("storage.postgres.host"))
	assert.Equal(t, "5433", viper.GetString("storage.postgres.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000/api", viper.GetString("api.serverUrl"))
	assert.Equal(t, "", viper.GetString("api.apiKey"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, ":5000", viper.GetString("gateway.listen"))
	assert.Equal(t, 30*time.Second, GetDuration("monitor.interval"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)
	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSimulationConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	sc := GetSimulationConfig()
	assert.Equal(t, 5*time.Second, sc.SignalInterval)
	assert.Equal(t, 2*time.Second, sc.ArrivalMin)
	assert.Equal(t, 5*time.Second, sc.ArrivalMax)
	assert.Equal(t, 5*time.Minute, sc.ArrivalTTL)
	assert.Equal(t, 1000, sc.HistoryCapacity)
	assert.True(t, sc.TTLStopsSignals)
	assert.Equal(t, uint64(0), sc.Seed)
	assert.Equal(t, 256, sc.SubscriberBuffer)
}

func TestGetSimulationConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"simulation": {
			"signalInterval": "1s",
			"arrivalTTL": "30s",
			"ttlStopsSignals": false,
			"seed": 42
		}
	}`)))

	sc := GetSimulationConfig()
	assert.Equal(t, time.Second, sc.SignalInterval)
	assert.Equal(t, 30*time.Second, sc.ArrivalTTL)
	assert.False(t, sc.TTLStopsSignals)
	assert.Equal(t, uint64(42), sc.Seed)
	assert.Equal(t, 2*time.Second, sc.ArrivalMin)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, "trafficsim", cfg.Postgres.Database)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m" },
			"websocket": { "url": "ws://collector/ingest", "secret": "s3" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "ws://collector/ingest", sc.WebSocket.URL)
	assert.Equal(t, "s3", sc.WebSocket.Secret)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "trafficsim", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetInfluxAndGatewayConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "bucket": "tests" },
		"gateway": { "listen": ":9000", "allowedOrigins": ["http://localhost:3000"] }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "tests", ic.Bucket)
	assert.Equal(t, "trafficsim", ic.Org)

	gc := GetGatewayConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, ":9000", gc.Listen)
	assert.Equal(t, []string{"http://localhost:3000"}, gc.AllowedOrigins)

	ac := GetAPIConfig()
	assert.False(t, ac.Upload)

	gl := GetGraylogConfig()
	assert.False(t, gl.Enabled)
}

func TestGetSeedIntersections(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"intersections": [
			{ "name": "Main & 1st", "location": "Downtown", "lat": 40.71, "lng": -74.0 },
			{ "name": "Oak & Pine" }
		]
	}`)))

	seeds, err := GetSeedIntersections()
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "Main & 1st", seeds[0].Name)
	assert.InDelta(t, 40.71, seeds[0].Lat, 1e-9)
	assert.Equal(t, "Oak & Pine", seeds[1].Name)
	assert.Zero(t, seeds[1].Lat)
}

func TestGetSeedIntersections_None(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	seeds, err := GetSeedIntersections()
	require.NoError(t, err)
	assert.Empty(t, seeds)
}

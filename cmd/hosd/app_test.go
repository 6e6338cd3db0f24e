package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drivermodels "hoslink/internal/drivers/models"
	"hoslink/internal/events"
	"hoslink/internal/platform/config"
)

func memoryConfig() config.Config {
	return config.Config{
		Log:     config.Log{Level: "error", Format: "json"},
		Storage: config.Storage{Mode: config.StorageMemory},
		Redis:   config.RedisConfig{DedupeTTL: time.Hour},
		Bus: config.Bus{
			Mode:              config.BusMemory,
			EldTopic:          "eld.events",
			PositionTopic:     "position.updates",
			DriverEventsTopic: "driver.events",
			Producer:          "hos-engine",
		},
	}
}

func TestApp_MemoryPipeline(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, memoryConfig(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.close(ctx)

	_, err = a.drivers.Register(ctx, drivermodels.Registration{ID: "D1", Name: "Dana"})
	require.NoError(t, err)

	driving, duty, cycle := 300, 500, 2000
	lat, lon := 41.88, -87.63
	env, err := events.NewEnvelope(ctx, events.EventELDDataReceived, events.CategoryELD, "eld-gateway",
		events.ELDDataReceivedPayload{
			DriverID: "D1",
			HOSData: &events.HOSData{
				Status:                  "DRIVING",
				DrivingMinutesRemaining: &driving,
				DutyMinutesRemaining:    &duty,
				CycleMinutesRemaining:   &cycle,
				Location:                &events.Location{Latitude: &lat, Longitude: &lon},
			},
		})
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, a.bus.Publish(ctx, "eld.events", []byte("D1"), raw))

	workers, err := a.workers()
	require.NoError(t, err)
	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Run(runCtx))
		}()
	}

	require.Eventually(t, func() bool {
		rec, err := a.engine.GetCurrent(ctx, "D1")
		return err == nil && rec.DrivingMinutesRemaining == 300
	}, 2*time.Second, 10*time.Millisecond)

	row, err := a.availability.Get(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, 300, row.DrivingMinutesRemaining)

	var types []events.EventType
	for _, m := range a.bus.Messages("driver.events") {
		out, err := events.Decode(m.Value)
		require.NoError(t, err)
		types = append(types, out.Metadata.EventType)
		assert.Equal(t, "D1", string(m.Key))
	}
	assert.Equal(t, []events.EventType{events.EventDriverCreated, events.EventDriverHOSUpdated}, types)

	cancel()
	for _, w := range workers {
		require.NoError(t, w.Stop(ctx))
	}
	wg.Wait()
}

func TestApp_ReadyWithoutBackends(t *testing.T) {
	a, err := newApp(context.Background(), memoryConfig(), prometheus.NewRegistry())
	require.NoError(t, err)
	assert.NoError(t, a.ready(httptest.NewRequest("GET", "/healthz", nil)))
}

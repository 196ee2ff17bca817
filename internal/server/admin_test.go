package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/models"
	"github.com/wheelibin/hughbridge/internal/server"
)

func newAdmin(t *testing.T) (*server.AdminServer, *metrics.Collectors, *httptest.Server) {
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	collectors := metrics.NewCollectors()
	admin := server.NewAdminServer(logger, collectors.Registry())
	ts := httptest.NewServer(admin.Routes())
	t.Cleanup(func() {
		_ = admin.Close()
		ts.Close()
	})
	return admin, collectors, ts
}

func Test_Health(t *testing.T) {
	_, _, ts := newAdmin(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, string(body))
}

func Test_Metrics(t *testing.T) {
	_, collectors, ts := newAdmin(t)
	collectors.Devices.Set(3)
	collectors.ObserveRequest("/api", 200)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hughbridge_devices 3")
	assert.Contains(t, string(body), `hughbridge_http_requests_total{code="200",route="/api"} 1`)
}

func Test_Events(t *testing.T) {
	admin, _, ts := newAdmin(t)

	// arrange
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	received := make(chan string, 1)
	go func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?stream="+server.LightsStream, nil)
		if err != nil {
			return
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				received <- strings.TrimPrefix(line, "data: ")
				return
			}
		}
	}()

	// act
	// events sent before the subscriber is registered are dropped, so keep sending
	change := models.StateChange{
		Index: 0,
		Name:  "Lamp",
		State: models.LightState{On: true, Brightness: 10, ColorMode: models.ColorModeColorTemperature},
		Time:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	var data string
	for data == "" {
		select {
		case data = <-received:
		case <-ticker.C:
			require.NoError(t, admin.Apply(change))
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}

	// assert
	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, 1.0, event["light"])
	assert.Equal(t, "Lamp", event["name"])
	assert.Equal(t, true, event["on"])
	assert.Equal(t, 10.0, event["bri"])
	assert.Equal(t, "ct", event["colormode"])
	assert.Equal(t, "2024-01-02T03:04:05Z", event["time"])
}

func Test_StartAndClose(t *testing.T) {
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	admin := server.NewAdminServer(logger, metrics.NewCollectors().Registry())

	require.NoError(t, admin.Start("127.0.0.1:0"))
	require.NotNil(t, admin.Addr())

	resp, err := http.Get("http://" + admin.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, admin.Close())
}

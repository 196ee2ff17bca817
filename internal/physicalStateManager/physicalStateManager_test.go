package physicalstatemanager_test

import (
	"errors"
	"net"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/models"
	"github.com/wheelibin/hughbridge/internal/network"
	physicalstatemanager "github.com/wheelibin/hughbridge/internal/physicalStateManager"
	"github.com/wheelibin/hughbridge/internal/registry"
	"github.com/wheelibin/hughbridge/mocks"
)

func newRegistry(t *testing.T, logger *log.Logger) *registry.Registry {
	mac, err := net.ParseMAC("f0:08:d1:d2:cb:4c")
	require.NoError(t, err)
	reg := registry.NewRegistry(logger, network.StaticSource{IP: net.ParseIP("192.168.1.20"), MAC: mac})
	reg.Register("Kitchen")
	reg.Register("Hall")
	return reg
}

func Test_StateChanged(t *testing.T) {

	t.Run("should enrich the change and deliver it to every sink", func(t *testing.T) {
		t.Parallel()

		// arrange
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		reg := newRegistry(t, logger)
		state := models.LightState{On: true, Brightness: 100, ColorTemperature: 300, ColorMode: models.ColorModeColorTemperature}
		isHall := mock.MatchedBy(func(c models.StateChange) bool {
			return c.Index == 1 && c.LightNumber() == 2 &&
				c.Name == "Hall" &&
				c.UniqueID == "F0:08:D1:D2:CB:4C:00:00-01" &&
				c.State == state &&
				!c.Time.IsZero()
		})

		first := mocks.NewMockSink(t)
		first.On("Apply", isHall).Return(nil).Once()
		second := mocks.NewMockSink(t)
		second.On("Apply", isHall).Return(nil).Once()

		collectors := metrics.NewCollectors()
		psm := physicalstatemanager.NewPhysicalStateManager(logger, reg, collectors, first)
		psm.AddSink(second)

		// act
		psm.StateChanged(1, state)

		// assert
		assert.Equal(t, 1.0, testutil.ToFloat64(collectors.StateChanges))
	})

	t.Run("should keep going when a sink fails", func(t *testing.T) {
		t.Parallel()

		// arrange
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		reg := newRegistry(t, logger)

		failing := mocks.NewMockSink(t)
		failing.On("Apply", mock.Anything).Return(errors.New("broker down")).Once()
		failing.On("Name").Return("mqtt")
		healthy := mocks.NewMockSink(t)
		healthy.On("Apply", mock.Anything).Return(nil).Once()

		psm := physicalstatemanager.NewPhysicalStateManager(logger, reg, nil, failing, healthy)

		// act
		psm.StateChanged(0, models.LightState{On: true})
	})

	t.Run("should be wired as the registry subscriber", func(t *testing.T) {
		t.Parallel()

		// arrange
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		reg := newRegistry(t, logger)

		var received []models.StateChange
		psm := physicalstatemanager.NewPhysicalStateManager(logger, reg, nil,
			physicalstatemanager.NewCallbackSink("host", func(c models.StateChange) {
				received = append(received, c)
			}),
		)
		reg.Subscribe(psm)

		// act
		reg.SetState(0, models.LightState{On: true, Brightness: 0, Hue: 10, Saturation: 20, ColorMode: models.ColorModeHueSaturation})

		// assert
		require.Len(t, received, 1)
		assert.Equal(t, "Kitchen", received[0].Name)
		assert.Equal(t, uint8(254), received[0].State.Brightness)
		assert.Equal(t, uint16(10), received[0].State.Hue)
	})

	t.Run("unknown device still reaches the sinks", func(t *testing.T) {
		t.Parallel()
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		reg := newRegistry(t, logger)

		sink := mocks.NewMockSink(t)
		sink.On("Apply", mock.MatchedBy(func(c models.StateChange) bool { return c.Index == 7 && c.Name == "" })).Return(nil).Once()

		physicalstatemanager.NewPhysicalStateManager(logger, reg, nil, sink).StateChanged(7, models.LightState{})
	})
}

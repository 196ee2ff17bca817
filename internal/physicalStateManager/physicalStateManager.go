package physicalstatemanager

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/models"
)

// Sink is somewhere a state change is delivered to: a journal, a broker, a
// live feed or the host's own callback.
type Sink interface {
	Name() string
	Apply(change models.StateChange) error
}

type deviceLookup interface {
	Device(index int) (models.Device, bool)
}

// PhysicalStateManager turns the emulated state into something real. It is the
// registry subscriber and is called synchronously after every mutation.
type PhysicalStateManager struct {
	logger  *log.Logger
	devices deviceLookup
	metrics *metrics.Collectors
	sinks   []Sink
	now     func() time.Time
}

func NewPhysicalStateManager(
	logger *log.Logger,
	devices deviceLookup,
	collectors *metrics.Collectors,
	sinks ...Sink,
) *PhysicalStateManager {
	return &PhysicalStateManager{
		logger:  logger,
		devices: devices,
		metrics: collectors,
		sinks:   sinks,
		now:     time.Now,
	}
}

func (m *PhysicalStateManager) AddSink(sink Sink) {
	m.sinks = append(m.sinks, sink)
}

// StateChanged delivers the change to every sink in the order they were added.
// A failing sink is logged and the rest still get the change.
func (m *PhysicalStateManager) StateChanged(index int, state models.LightState) {
	change := models.StateChange{Index: index, State: state, Time: m.now()}
	if device, ok := m.devices.Device(index); ok {
		change.Name = device.Name
		change.UniqueID = device.UniqueID
	}

	m.logger.Debug("light state changed",
		"light", change.LightNumber(),
		"name", change.Name,
		"on", state.On,
		"bri", state.Brightness,
		"ct", state.ColorTemperature,
		"mode", state.ColorMode.Label(),
	)
	if m.metrics != nil {
		m.metrics.StateChanges.Inc()
	}

	lo.ForEach(m.sinks, func(sink Sink, _ int) {
		if err := sink.Apply(change); err != nil {
			m.logger.Error("Error applying state change", "sink", sink.Name(), "light", change.LightNumber(), "err", err)
		}
	})
}

// CallbackSink hands changes to a host supplied function.
type CallbackSink struct {
	name string
	fn   func(change models.StateChange)
}

func NewCallbackSink(name string, fn func(change models.StateChange)) *CallbackSink {
	return &CallbackSink{name: name, fn: fn}
}

func (s *CallbackSink) Name() string { return s.name }

func (s *CallbackSink) Apply(change models.StateChange) error {
	s.fn(change)
	return nil
}

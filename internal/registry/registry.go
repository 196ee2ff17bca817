package registry

import (
	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/wheelibin/hughbridge/internal/constants"
	"github.com/wheelibin/hughbridge/internal/models"
	"github.com/wheelibin/hughbridge/internal/network"
)

// Subscriber receives the complete state of a device after each mutation.
type Subscriber interface {
	StateChanged(index int, state models.LightState)
}

type SubscriberFunc func(index int, state models.LightState)

func (f SubscriberFunc) StateChanged(index int, state models.LightState) {
	f(index, state)
}

// Registry holds the emulated lights. Devices are addressed by their index and
// are never removed. It is not safe for concurrent use; the bridge only touches
// it from its polling loop.
type Registry struct {
	logger     *log.Logger
	identity   network.Source
	devices    []models.Device
	subscriber Subscriber
}

func NewRegistry(logger *log.Logger, identity network.Source) *Registry {
	return &Registry{logger: logger, identity: identity}
}

// Register adds a light with default state and returns its index.
func (r *Registry) Register(name string) int {
	index := len(r.devices)

	r.devices = append(r.devices, models.Device{
		Index:    index,
		Name:     name,
		UniqueID: r.identity.Current().UniqueID(index),
		State: models.LightState{
			Brightness:       constants.DefaultBrightness,
			ColorTemperature: constants.DefaultColorTemperature,
		},
	})

	r.logger.Info("Device added", "name", name, "index", index)
	return index
}

// Subscribe sets the single subscriber, replacing any previous one.
func (r *Registry) Subscribe(s Subscriber) {
	r.subscriber = s
}

func (r *Registry) Len() int {
	return len(r.devices)
}

// SetState applies a mutation. On, hue, saturation and mode always overwrite,
// a zero brightness or colour temperature leaves the stored value alone. Unknown
// indexes are ignored.
func (r *Registry) SetState(index int, state models.LightState) {
	if index < 0 || index >= len(r.devices) {
		r.logger.Debug("ignoring state for unknown device", "index", index)
		return
	}

	current := &r.devices[index].State
	current.On = state.On
	if state.Brightness != 0 {
		current.Brightness = state.Brightness
	}
	if state.ColorTemperature != 0 {
		current.ColorTemperature = state.ColorTemperature
	}
	current.Hue = state.Hue
	current.Saturation = state.Saturation
	current.ColorMode = state.ColorMode

	if r.subscriber != nil {
		r.subscriber.StateChanged(index, *current)
	}
}

// Device returns a copy of the device at index.
func (r *Registry) Device(index int) (models.Device, bool) {
	if index < 0 || index >= len(r.devices) {
		return models.Device{}, false
	}
	return r.devices[index], true
}

// Describe builds the externally visible shape of the device at index.
func (r *Registry) Describe(index int) (models.Descriptor, bool) {
	d, ok := r.Device(index)
	if !ok {
		return models.Descriptor{}, false
	}
	return models.Descriptor{
		Name:             d.Name,
		UniqueID:         d.UniqueID,
		On:               d.State.On,
		Brightness:       d.State.Brightness,
		Hue:              d.State.Hue,
		Saturation:       d.State.Saturation,
		ColorTemperature: d.State.ColorTemperature,
		ColorMode:        d.State.ColorMode.Label(),
	}, true
}

// DescribeAll returns every descriptor in index order.
func (r *Registry) DescribeAll() []models.Descriptor {
	return lo.Times(len(r.devices), func(i int) models.Descriptor {
		d, _ := r.Describe(i)
		return d
	})
}

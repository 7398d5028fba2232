package audio

import (
	"fmt"
	"log/slog"

	"github.com/alkime/docucast/pkg/collections"
	"github.com/gen2brain/malgo"
)

// FillFunc writes frames of S16LE stereo audio into out.
type FillFunc func(out []byte, frames uint32)

// Output is a started/stopped sink that pulls audio through a FillFunc.
type Output interface {
	Start() error
	Stop() error
	Close()
}

// OutputFactory allocates an Output running at sampleRate.
type OutputFactory func(sampleRate int, fill FillFunc) (Output, error)

type malgoOutput struct {
	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

// NewDeviceOutput opens the default playback device.
func NewDeviceOutput(sampleRate int, fill FillFunc) (Output, error) {
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Playback)
	devCnf.Playback.Format = malgo.FormatS16
	devCnf.Playback.Channels = 2
	devCnf.SampleRate = uint32(sampleRate) //nolint:gosec // decoder rates are small positive ints

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frames uint32) {
			fill(out, frames)
		},
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		uninitializeContext(mgCtx)
		return nil, fmt.Errorf("failed to initialize malgo playback device: %w", err)
	}

	return &malgoOutput{mgCtx: mgCtx, mgDevice: mgDevice}, nil
}

func (o *malgoOutput) Start() error {
	if o.mgDevice.IsStarted() {
		return nil
	}

	if err := o.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

func (o *malgoOutput) Stop() error {
	if !o.mgDevice.IsStarted() {
		return nil
	}

	if err := o.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (o *malgoOutput) Close() {
	if o.mgDevice == nil {
		return
	}

	o.mgDevice.Uninit()
	uninitializeContext(o.mgCtx)
	o.mgDevice = nil
	o.mgCtx = nil
}

type Info struct {
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

// EnumeratePlaybackDevices lists the output devices known to the system.
func EnumeratePlaybackDevices() ([]Info, error) {
	// An empty context is enough for enumeration.
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	playbackDevices, err := devCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to get playback devices: %w", err)
	}

	return collections.Apply(playbackDevices, malgoDeviceInfoToDeviceInfo), nil
}

func malgoDeviceInfoToDeviceInfo(mdi malgo.DeviceInfo) Info {
	count := min(int(mdi.FormatCount), len(mdi.Formats))
	formats := make([]string, 0, count)

	for _, mf := range mdi.Formats[:count] {
		formats = append(formats, fmt.Sprintf("(SampleSizeBytes: %d, Channels: %d, SampleRate: %d)",
			malgo.SampleSizeInBytes(mf.Format), mf.Channels, mf.SampleRate))
	}

	return Info{
		Name:        mdi.Name(),
		IsDefault:   mdi.IsDefault != 0,
		FormatCount: int(mdi.FormatCount),
		Formats:     formats,
	}
}

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}

package bus

// NewInstrument creates an instrument configuration: MIDI input and one
// audio output of the given width. It panics on anything but 1 or 2
// channels; use the Builder to validate host-supplied layouts.
func NewInstrument(channels int32) *Configuration {
	return NewBuilder().
		WithAudioOutput(outputName(channels), channels).
		WithEventInput("MIDI In").
		MustBuild()
}

// NewStereoInstrument is the default sampler layout
func NewStereoInstrument() *Configuration {
	return NewInstrument(2)
}


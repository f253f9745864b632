// Package speakerout plays audio on the system speaker.
package speakerout

import (
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Speaker adapts the process-wide beep speaker to playback.Output.
type Speaker struct{}

func (Speaker) Init(sampleRate beep.SampleRate, bufferSize int) error {
	return speaker.Init(sampleRate, bufferSize)
}

func (Speaker) Play(s beep.Streamer) {
	speaker.Play(s)
}

func (Speaker) Clear() {
	speaker.Clear()
}

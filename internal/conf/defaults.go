package conf

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("audio.samplerate", 44100)
	v.SetDefault("audio.blocksize", 256)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.backend", "oto")
	v.SetDefault("audio.buffered", 4)

	v.SetDefault("samples.dir", "samples")
	v.SetDefault("samples.cachettl", 10*time.Minute)

	v.SetDefault("engine.voices", 16)

	v.SetDefault("reverb.wet", 0.33)
	v.SetDefault("reverb.dry", 0.4)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen", "127.0.0.1:8040")

	v.SetDefault("log.level", "info")
}

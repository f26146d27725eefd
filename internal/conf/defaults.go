// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "NeuroKit")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "neurokit.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("epochs.tmin", -0.2)
	viper.SetDefault("epochs.tmax", 0.5)
	viper.SetDefault("epochs.decim", 1)
	viper.SetDefault("epochs.workers", 0)
	viper.SetDefault("epochs.rejectbyannotation", true)

	viper.SetDefault("container.maxfilesize", 0)
	viper.SetDefault("container.splitnaming", SplitNamingStructured)
	viper.SetDefault("container.maxsplits", 100)
	viper.SetDefault("container.overwrite", false)

	viper.SetDefault("metadata.backend", MetadataBackendSQLite)

	viper.SetDefault("observability.enabled", false)
	viper.SetDefault("observability.listen", "localhost:9090")
}

// defaultSettings returns a Settings struct populated with the defaults,
// without touching the filesystem.
func defaultSettings() *Settings {
	return &Settings{
		Main: MainSettings{
			Name: "NeuroKit",
			Log: LogConfig{
				Enabled:  true,
				Path:     "neurokit.log",
				Rotation: RotationDaily,
				MaxSize:  1048576,
			},
		},
		Epochs: EpochSettings{
			TMin:               -0.2,
			TMax:               0.5,
			Decim:              1,
			Workers:            0,
			RejectByAnnotation: true,
		},
		Container: ContainerSettings{
			MaxFileSize: 0,
			SplitNaming: SplitNamingStructured,
			MaxSplits:   100,
			Overwrite:   false,
		},
		Metadata: MetadataSettings{
			Backend: MetadataBackendSQLite,
		},
		Observability: ObservabilitySettings{
			Enabled: false,
			Listen:  "localhost:9090",
		},
	}
}

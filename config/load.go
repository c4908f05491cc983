package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load, e.g. SUBMISSION_BINDLESS
const EnvPrefix = "SUBMISSION"

// Load reads options from an optional config file and the environment, on top of DefaultOptions. An empty
// cfgFile searches the working directory for submission.yaml and tolerates its absence.
func Load(cfgFile string) (Options, error) {
	v := viper.New()

	options := DefaultOptions()
	setDefaults(v, &options)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("submission")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Options{}, errors.Wrap(err, "reading config")
		}
	}

	if err := v.Unmarshal(&options); err != nil {
		return Options{}, errors.Wrap(err, "unmarshaling config")
	}

	if err := options.Validate(); err != nil {
		return Options{}, errors.Wrap(err, "validating config")
	}

	return options, nil
}

func setDefaults(v *viper.Viper, options *Options) {
	v.SetDefault("generation", options.Generation)
	v.SetDefault("bindless", options.Bindless)
	v.SetDefault("default_heap_size", options.DefaultHeapSize)
	v.SetDefault("force_heap_size", options.ForceHeapSize)
	v.SetDefault("container_command_buffer_size", options.ContainerCommandBufferSize)
	v.SetDefault("queue_command_buffer_size", options.QueueCommandBufferSize)
	v.SetDefault("surface_state_prologue_size", options.SurfaceStatePrologueSize)
	v.SetDefault("limit_blitter_max_width", options.LimitBlitterMaxWidth)
	v.SetDefault("limit_blitter_max_height", options.LimitBlitterMaxHeight)
	v.SetDefault("enable_2d_blit", options.Enable2DBlit)
	v.SetDefault("completion_tracking", options.CompletionTracking)
	v.SetDefault("timestamp_packet_count", options.TimestampPacketCount)
	v.SetDefault("timestamp_tags_per_chunk", options.TimestampTagsPerChunk)
	v.SetDefault("externally_synchronized", options.ExternallySynchronized)
	v.SetDefault("log_level", options.LogLevel)
}

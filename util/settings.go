package util

import (
	"crypto/rand"
	"fmt"
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const ENV_PREFIX = ""

var Config = viper.New()

var config_listeners []func()

// fingerprint of the room model as it was loaded; see modelChanged.
var loaded_model string

func RegisterNewConfigListener(new_listener func()) {
	for _, listener := range config_listeners {
		if reflect.ValueOf(new_listener).Pointer() == reflect.ValueOf(listener).Pointer() {
			Logger.Warn().Msg("config listener already registered")
			return
		}
	}
	config_listeners = append(config_listeners, new_listener)
}

func OnNewConfig() {
	for _, listener := range config_listeners {
		listener()
	}
}

func GetRandString(n int) string {
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		randBytes := make([]byte, 1)
		if _, err := rand.Read(randBytes); err != nil {
			b[i] = letterBytes[i%len(letterBytes)]
		} else {
			b[i] = letterBytes[int(randBytes[0])%len(letterBytes)]
		}
	}
	return string(b)
}

func setDefaults() {
	Config.SetDefault("Broker_URI", "tcp://mqtt:1883")
	Config.SetDefault("Cleansess", false)
	Config.SetDefault("Id_base", "shutter_control")
	Config.SetDefault("Username", "")
	Config.SetDefault("Password", "")
	Config.SetDefault("Qos", 1)
	Config.SetDefault("Online_topic", "shutter-control/online")
	Config.SetDefault("Log_level", "info")
	Config.SetDefault("Details_port", 8080)
	Config.SetDefault("Gpio_chip", "gpiochip0")
	Config.SetDefault("Bootstrap_settle_ms", 250)
	Config.SetDefault("Handler_warn_ms", 500)
	Config.SetDefault("Publish_queue", 64)
	Config.SetDefault("Publish_timeout_ms", 5000)
	Config.SetDefault("Ha_discovery", false)
	Config.SetDefault("Ha_prefix", "homeassistant")
}

func SetupConfig() {
	// a missing .env is the normal case
	if err := godotenv.Load(); err != nil {
		Logger.Trace().Msgf("no .env loaded: %v", err)
	}

	Config.SetEnvPrefix(ENV_PREFIX)
	setDefaults()

	// config file
	Config.SetConfigName("shutter_control")
	Config.AddConfigPath("/")
	Config.AddConfigPath("./")
	Config.AddConfigPath("./config")
	Config.AddConfigPath("/etc")
	Config.AddConfigPath("/shutter_control")
	Config.AddConfigPath("/shutter_control/config")

	err := Config.ReadInConfig()
	if err != nil {
		Logger.Error().Msgf("unable to read config file: %v", fmt.Errorf("%v", err))
	} else {
		Logger.Info().Msgf("using config %s", Config.ConfigFileUsed())
	}

	// environment variables
	Config.AutomaticEnv()

	loaded_model = modelFingerprint()

	// watch for changes
	Config.WatchConfig()
	Config.OnConfigChange(func(e fsnotify.Event) {
		Logger.Info().Msgf("Config file changed: %v", e.Name)
		Logger.Debug().Msgf("Config Additional Info: %v", e.String())
		if modelChanged() {
			Logger.Warn().Msg("room model changed on disk; restart required for it to take effect")
		}
		OnNewConfig()
	})
}

func modelFingerprint() string {
	return fmt.Sprintf("%v|%v", Config.Get("controlledRoomIds"), Config.Get("rooms"))
}

// modelChanged reports whether the room model on disk differs from the one
// the process started with. The running model is never swapped.
func modelChanged() bool {
	return modelFingerprint() != loaded_model
}

package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string `yaml:"env" env:"NL_ENV" env-default:"local"`
	Backend struct {
		BaseURL string `yaml:"base_url" env:"NL_BACKEND_URL" env-default:"http://127.0.0.1:8000"`
		WsURL   string `yaml:"ws_url" env:"NL_BACKEND_WS_URL" env-default:"ws://127.0.0.1:8000"`
		Token   string `yaml:"token" env:"NL_SESSION_TOKEN" env-default:""`
	} `yaml:"backend"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9200"`
	} `yaml:"listen"`
	Chat struct {
		DebounceMs   int `yaml:"debounce_ms" env-default:"500"`
		RefreshSec   int `yaml:"refresh_sec" env-default:"10"`
		ReconnectSec int `yaml:"reconnect_sec" env-default:"5"`
	} `yaml:"chat"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}

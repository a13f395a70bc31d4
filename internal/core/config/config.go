package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Log struct {
	Level      string
	JSON       bool
	File       string // 非空则同时写文件并按大小切割
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App   App
	Log   Log
	JWT   JWT
	DB    DB
	Redis Redis `mapstructure:"redis"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// 文件缺失时仅靠环境变量跑（容器里常见），其它错误直接退出
		if _, statErr := os.Stat(path); statErr == nil {
			log.Fatalf("read config: %v", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	applyDefaults(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.App.HTTP.Port == 0 {
		c.App.HTTP.Port = 8080
	}
	if c.App.HTTP.ReadTimeoutSec == 0 {
		c.App.HTTP.ReadTimeoutSec = 5
	}
	if c.App.HTTP.WriteTimeoutSec == 0 {
		c.App.HTTP.WriteTimeoutSec = 10
	}
	if c.App.HTTP.IdleTimeoutSec == 0 {
		c.App.HTTP.IdleTimeoutSec = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "tripbuddy"
	}
	if c.JWT.AccessTokenTTLMin == 0 {
		c.JWT.AccessTokenTTLMin = 60
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "mysql"
	}
}

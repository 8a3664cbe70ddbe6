package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Debug    bool
	TestMode bool
	Build    string

	AppName         string
	SecretKey       []byte
	FrontendBaseURL string
	DefaultFromName string
	DefaultFromAddr string
	SendgridAPIKey  string
	RollbarToken    string
	GoogleClientID  string

	JWTExpirationDelta        time.Duration
	JWTRefreshExpirationDelta time.Duration
	PasswordResetTimeoutDelta time.Duration

	// AttendanceCodeTTL bounds how long an issued check-in code stays valid.
	AttendanceCodeTTL time.Duration

	Server struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	Redis struct {
		Address  string
		Password string
		DB       int
	}
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.DefaultFromName, Address: conf.DefaultFromAddr}
}

func (conf *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
}

func (conf *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%d", conf.Database.Host, conf.Database.Port)
}

// NewConfig loads the app configuration from the environment;
// a config/.env.<env> file is loaded first if it exists.
func NewConfig(build string) *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Haksa")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Haksa")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("attendanceCodeTTL", 15*time.Minute)
	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "haksa")
	v.SetDefault("dbUser", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("redisAddress", "localhost:6379")
	v.SetDefault("redisDB", 0)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:      env,
		Debug:    v.GetBool("debug"),
		TestMode: env == "TEST",
		Build:    build,

		AppName:         v.GetString("appName"),
		SecretKey:       []byte(v.GetString("secretKey")),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromName: v.GetString("defaultFromName"),
		DefaultFromAddr: v.GetString("defaultFromAddr"),
		SendgridAPIKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		GoogleClientID:  v.GetString("googleClientID"),

		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		AttendanceCodeTTL:         v.GetDuration("attendanceCodeTTL"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Port = v.GetInt("serverPort")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdownTimeout")
	conf.Database.Engine = v.GetString("dbEngine")
	conf.Database.Name = v.GetString("dbName")
	conf.Database.User = v.GetString("dbUser")
	conf.Database.Password = v.GetString("dbPassword")
	conf.Database.AdminUser = v.GetString("dbAdminUser")
	conf.Database.AdminPassword = v.GetString("dbAdminPassword")
	conf.Database.Host = v.GetString("dbHost")
	conf.Database.Port = v.GetInt("dbPort")
	conf.Database.DisableTLS = v.GetBool("dbDisableTLS")
	conf.Redis.Address = v.GetString("redisAddress")
	conf.Redis.Password = v.GetString("redisPassword")
	conf.Redis.DB = v.GetInt("redisDB")
	return conf
}

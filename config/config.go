package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv  string
	AppPort string

	// StoreMode is one of "auto", "remote" or "mirror".
	StoreMode     string
	ForceMock     bool
	MirrorDir     string
	NatsURL       string
	ChangeSubject string

	DBDriver       string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBPath         string
	DBMaxIdleConns int
	DBMaxOpenConns int

	JWTSecret          string
	JWTExpirationHours int
	AllowedOrigins     string

	ReminderInterval time.Duration
	Locale           string
	TimeZone         string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	CalendarEndpoint   string
	CalendarID         string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string
}

var defaults = map[string]interface{}{
	"APP_ENV":              "development",
	"APP_PORT":             "8080",
	"STORE_MODE":           "auto",
	"FORCE_MOCK":           false,
	"MIRROR_DIR":           ".zentask",
	"NATS_URL":             "",
	"CHANGE_SUBJECT":       "zentask.changes",
	"DB_DRIVER":            "postgres",
	"DB_HOST":              "",
	"DB_PORT":              "5432",
	"DB_USER":              "zentask",
	"DB_PASSWORD":          "zentask",
	"DB_NAME":              "zentask",
	"DB_PATH":              "",
	"DB_MAX_IDLE_CONNS":    10,
	"DB_MAX_OPEN_CONNS":    100,
	"JWT_SECRET":           "your-super-secret-key-change-this-in-production",
	"JWT_EXPIRATION_HOURS": 24,
	"ALLOWED_ORIGINS":      "*",
	"REMINDER_INTERVAL":    "1m",
	"LOCALE":               "en",
	"TIME_ZONE":            "Local",
	"GOOGLE_CLIENT_ID":     "",
	"GOOGLE_CLIENT_SECRET": "",
	"GOOGLE_REDIRECT_URL":  "",
	"CALENDAR_ENDPOINT":    "",
	"CALENDAR_ID":          "primary",
	"GEMINI_API_KEY":       "",
	"GEMINI_MODEL":         "gemini-3-flash-preview",
	"GEMINI_ENDPOINT":      "",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// readFile merges an optional YAML config file named by ZENTASK_CONFIG.
// Environment variables still take precedence over file values.
func readFile(v *viper.Viper) {
	path := v.GetString("ZENTASK_CONFIG")
	if path == "" {
		return
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			log.Printf("Config file %s not found, using environment only", path)
			return
		}
		log.Printf("Failed to read config file %s: %v", path, err)
	}
}

func isSet(v *viper.Viper, key string) bool {
	if _, exists := os.LookupEnv(key); exists {
		return true
	}
	return v.InConfig(key)
}

func getEnv(v *viper.Viper, key string) string {
	if !isSet(v, key) {
		log.Printf("%s not set, defaulting to %v", key, defaults[key])
	}
	return v.GetString(key)
}

func getEnvAsInt(v *viper.Viper, key string) int {
	if isSet(v, key) {
		if intVal, err := strconv.Atoi(v.GetString(key)); err == nil {
			return intVal
		}
		log.Printf("Invalid integer value for %s, defaulting to %v", key, defaults[key])
	}
	return defaults[key].(int)
}

func getEnvAsDuration(v *viper.Viper, key string) time.Duration {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil || value <= 0 {
		log.Printf("Invalid duration value for %s, defaulting to %v", key, defaults[key])
		value, _ = time.ParseDuration(defaults[key].(string))
	}
	return value
}

func Load() Config {
	log.Println("Loading configuration...")

	v := newViper()
	readFile(v)

	return Config{
		AppEnv:             getEnv(v, "APP_ENV"),
		AppPort:            getEnv(v, "APP_PORT"),
		StoreMode:          strings.ToLower(getEnv(v, "STORE_MODE")),
		ForceMock:          v.GetBool("FORCE_MOCK"),
		MirrorDir:          getEnv(v, "MIRROR_DIR"),
		NatsURL:            v.GetString("NATS_URL"),
		ChangeSubject:      getEnv(v, "CHANGE_SUBJECT"),
		DBDriver:           strings.ToLower(getEnv(v, "DB_DRIVER")),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             getEnv(v, "DB_PORT"),
		DBUser:             getEnv(v, "DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBName:             getEnv(v, "DB_NAME"),
		DBPath:             v.GetString("DB_PATH"),
		DBMaxIdleConns:     getEnvAsInt(v, "DB_MAX_IDLE_CONNS"),
		DBMaxOpenConns:     getEnvAsInt(v, "DB_MAX_OPEN_CONNS"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTExpirationHours: getEnvAsInt(v, "JWT_EXPIRATION_HOURS"),
		AllowedOrigins:     getEnv(v, "ALLOWED_ORIGINS"),
		ReminderInterval:   getEnvAsDuration(v, "REMINDER_INTERVAL"),
		Locale:             getEnv(v, "LOCALE"),
		TimeZone:           getEnv(v, "TIME_ZONE"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		CalendarEndpoint:   v.GetString("CALENDAR_ENDPOINT"),
		CalendarID:         getEnv(v, "CALENDAR_ID"),
		GeminiAPIKey:       v.GetString("GEMINI_API_KEY"),
		GeminiModel:        getEnv(v, "GEMINI_MODEL"),
		GeminiEndpoint:     v.GetString("GEMINI_ENDPOINT"),
	}
}

// DatabaseConfigured reports whether a remote database was configured.
func (c Config) DatabaseConfigured() bool {
	if c.DBDriver == "sqlite" {
		return c.DBPath != ""
	}
	return c.DBHost != ""
}

// Location resolves TimeZone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("Unknown time zone %s, using local time: %v", c.TimeZone, err)
		return time.Local
	}
	return loc
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type StoreDriver string

const (
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
	StoreMongo    StoreDriver = "mongo"
)

// Built-in development credentials. Online mode refuses to start with them.
const (
	DevAuthSecret    = "supersecret-dev-key"
	DevAdminPassHash = "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"
)

var ErrDevCredentials = errors.New("development credentials in online mode")

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	StoreDriver StoreDriver
	DBDSN       string // sqlite/postgres; the event log also lives here
	MongoURI    string
	MongoDB     string

	RedisAddr     string // empty disables the quiz cache
	RedisPassword string
	RedisDB       int
	QuizCacheTTL  time.Duration

	AMQPURL      string // empty disables broker publishing
	AMQPExchange string

	BlobBasePath string

	AuthSecret      string
	SessionTTL      time.Duration
	EnableLocalAuth bool

	AdminUser     string
	AdminPassHash string // bcrypt

	// Levels that need an active subscription.
	GatedLevels []string

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// Load reads .env files (missing files are fine) and then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		log.Printf("config: %v", err)
	}
	c := FromEnv()
	return c, c.Validate()
}

// Validate rejects the development secret and admin hash in online mode.
func (c Config) Validate() error {
	if c.Mode != ModeOnline {
		return nil
	}
	var bad []string
	if c.AuthSecret == DevAuthSecret {
		bad = append(bad, "AUTH_HMAC_SECRET")
	}
	if c.AdminPassHash == DevAdminPassHash {
		bad = append(bad, "ADMIN_PASS_HASH")
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: set %s", ErrDevCredentials, strings.Join(bad, ", "))
	}
	return nil
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:      mode,
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: os.Getenv("PUBLIC_URL"),

		StoreDriver: StoreDriver(envOr("STORE_DRIVER", string(StoreSQLite))),
		DBDSN:       os.Getenv("DB_DSN"),
		MongoURI:    envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     envOr("MONGO_DB", "french"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		QuizCacheTTL:  envDuration("QUIZ_CACHE_TTL", 5*time.Minute),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: envOr("AMQP_EXCHANGE", "french.events"),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),

		AuthSecret:      envOr("AUTH_HMAC_SECRET", DevAuthSecret),
		SessionTTL:      envDuration("SESSION_TTL", 5*24*time.Hour),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", mode == ModeOffline),

		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", DevAdminPassHash),

		GatedLevels: csvOr("GATED_LEVELS", "B1,B2"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://french.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000"),
	}
}

// CORSOrigins picks the origin list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	LogLevel    string

	BotToken      string
	AdminIDs      []int64
	StorageChatID int64

	AdminHost       string
	AdminPort       int
	AdminSecret     []byte
	AdminAllowedIPs []string
	AdminTokenTTL   time.Duration

	DatabaseURL  string
	SeedProducts bool

	PaymentRequisites string
	WelcomeMessage    string
	Support           Support

	OpenRouterKey   string
	OpenRouterModel string

	ReceiptReminderAge   time.Duration
	ReminderInterval     time.Duration
	MaxReceiptPhotoBytes int

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

type Support struct {
	Telegram  string
	Phone     string
	WhatsApp  string
	Instagram string
}

const defaultRequisites = "Карта: 0000 0000 0000 0000\nПолучатель: Магазин ноутбуков"

func Load() Config {
	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token == "" {
		token = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "shopbot"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		BotToken:      token,
		AdminIDs:      IDs(os.Getenv("ADMIN_IDS")),
		StorageChatID: int64(EnvIntDefault("STORAGE_CHAT_ID", 0)),

		AdminHost:       EnvDefault("ADMIN_HOST", "127.0.0.1"),
		AdminPort:       EnvIntDefault("ADMIN_PORT", 8080),
		AdminSecret:     []byte(strings.TrimSpace(os.Getenv("ADMIN_SECRET"))),
		AdminAllowedIPs: CSV(os.Getenv("ADMIN_ALLOWED_IPS")),
		AdminTokenTTL:   time.Duration(EnvIntDefault("ADMIN_JWT_TTL_HOURS", 7*24)) * time.Hour,

		DatabaseURL:  EnvDefault("DATABASE_URL", "shop.db"),
		SeedProducts: EnvBoolDefault("SEED_PRODUCTS", true),

		PaymentRequisites: EnvDefault("PAYMENT_REQUISITES", defaultRequisites),
		WelcomeMessage:    strings.TrimSpace(os.Getenv("BOT_WELCOME_MESSAGE")),
		Support: Support{
			Telegram:  strings.TrimSpace(os.Getenv("SUPPORT_TELEGRAM")),
			Phone:     strings.TrimSpace(os.Getenv("SUPPORT_PHONE")),
			WhatsApp:  strings.TrimSpace(os.Getenv("SUPPORT_WHATSAPP")),
			Instagram: strings.TrimSpace(os.Getenv("SUPPORT_INSTAGRAM")),
		},

		OpenRouterKey:   strings.TrimSpace(strings.TrimRight(strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")), ">")),
		OpenRouterModel: EnvDefault("OPENROUTER_MODEL", "openai/gpt-4o-mini"),

		ReceiptReminderAge:   time.Duration(EnvIntDefault("RECEIPT_REMINDER_HOURS", 6)) * time.Hour,
		ReminderInterval:     time.Duration(EnvIntDefault("REMINDER_INTERVAL_MINUTES", 30)) * time.Minute,
		MaxReceiptPhotoBytes: EnvIntDefault("MAX_RECEIPT_PHOTO_BYTES", 10*1024*1024),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),
	}
}

// Addr is the listen address of the admin HTTP server.
func (c Config) Addr() string {
	return c.AdminHost + ":" + strconv.Itoa(c.AdminPort)
}

func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IDs parses a comma separated list of numeric chat ids, skipping anything that is not a number.
func IDs(v string) []int64 {
	var out []int64
	for _, p := range CSV(v) {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

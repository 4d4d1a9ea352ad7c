package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"kasirinaja/checkout/internal/domain"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	StoreID                string
	AuthSecret             string
	AccessTokenTTLMinutes  int
	LoyaltyCacheTTLSeconds int
	PersistTimeoutSeconds  int
	POS                    POSSettings
}

// POSSettings are the point-of-sale profile options that shape a payment
// session.
type POSSettings struct {
	Currency                   string
	Precision                  int32
	DisableRoundedTotal        bool
	AllowPartialPayment        bool
	SetGrandTotalToDefaultMode bool
	InvoiceFields              []domain.InvoiceField
}

func (p POSSettings) Settings() Settings {
	return Settings{
		Currency:            p.Currency,
		Precision:           p.Precision,
		RoundingEnabled:     !p.DisableRoundedTotal,
		AllowPartialPayment: p.AllowPartialPayment,
	}
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	loyaltyTTL, err := strconv.Atoi(getEnv("LOYALTY_CACHE_TTL_SECONDS", "30"))
	if err != nil || loyaltyTTL < 1 {
		loyaltyTTL = 30
	}
	persistTimeout, err := strconv.Atoi(getEnv("PERSIST_TIMEOUT_SECONDS", "5"))
	if err != nil || persistTimeout < 1 {
		persistTimeout = 5
	}
	precision, err := strconv.Atoi(getEnv("POS_CURRENCY_PRECISION", "2"))
	if err != nil || precision < 0 || precision > 9 {
		precision = 2
	}

	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		StoreID:                getEnv("DEFAULT_STORE_ID", "main-store"),
		AuthSecret:             strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:  tokenTTL,
		LoyaltyCacheTTLSeconds: loyaltyTTL,
		PersistTimeoutSeconds:  persistTimeout,
		POS: POSSettings{
			Currency:                   strings.ToUpper(getEnv("POS_CURRENCY", "IDR")),
			Precision:                  int32(precision),
			DisableRoundedTotal:        getBool("POS_DISABLE_ROUNDED_TOTAL"),
			AllowPartialPayment:        getBool("POS_ALLOW_PARTIAL_PAYMENT"),
			SetGrandTotalToDefaultMode: getBool("POS_SET_GRAND_TOTAL_TO_DEFAULT_MODE"),
		},
	}
	cfg.POS.InvoiceFields, _ = ParseInvoiceFields(os.Getenv("POS_INVOICE_FIELDS"))

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Validate reports settings a cashier could not work with.
func (c Config) Validate() error {
	if _, err := ParseInvoiceFields(os.Getenv("POS_INVOICE_FIELDS")); err != nil {
		return err
	}
	return ValidateInvoiceFields(c.POS.InvoiceFields)
}

// ParseInvoiceFields reads "fieldname|Label|Fieldtype|reqd|default" entries
// separated by ";". Everything after the fieldname is optional.
func ParseInvoiceFields(raw string) ([]domain.InvoiceField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	fields := make([]domain.InvoiceField, 0, 4)
	for i, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		field := domain.InvoiceField{Fieldname: parts[0], Label: parts[0], Fieldtype: "Data"}
		if field.Fieldname == "" {
			return nil, fmt.Errorf("POS_INVOICE_FIELDS entry %d has no fieldname", i+1)
		}
		if len(parts) > 1 && parts[1] != "" {
			field.Label = parts[1]
		}
		if len(parts) > 2 && parts[2] != "" {
			field.Fieldtype = parts[2]
		}
		if len(parts) > 3 {
			field.Required = parts[3] == "reqd" || parts[3] == "1" || strings.EqualFold(parts[3], "true")
		}
		if len(parts) > 4 {
			field.DefaultValue = parts[4]
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func ValidateInvoiceFields(fields []domain.InvoiceField) error {
	seen := make(map[string]bool, len(fields))
	for i, field := range fields {
		if seen[field.Fieldname] {
			return fmt.Errorf("Row #%d: Field %s is being used more than once", i+1, field.Label)
		}
		seen[field.Fieldname] = true
	}
	return nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && val
}

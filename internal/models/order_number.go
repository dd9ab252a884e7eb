package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber builds ORD-YYYYMMDD-XXXXXXXX from the UTC date and a random suffix.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + now.UTC().Format("20060102") + "-" + suffix
}

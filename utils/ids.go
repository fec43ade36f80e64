package utils

import (
	"strings"

	"github.com/google/uuid"
)

func GetUUID() string {
	return uuid.New().String()
}

// NewOrderID returns a short, unguessable, URL-safe order identifier.
func NewOrderID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:16])
}

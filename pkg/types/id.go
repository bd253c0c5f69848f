package types

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// GenerateRequestID generates a sortable request ID with prefix
func GenerateRequestID() string {
	return fmt.Sprintf("req_%s", ksuid.New().String())
}

// GenerateTokenID generates a unique token ID
func GenerateTokenID() string {
	return ksuid.New().String()
}

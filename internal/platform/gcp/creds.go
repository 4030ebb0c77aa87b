package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// Credentials holds either inline service-account JSON or a path to it.
// Empty means application default credentials.
type Credentials struct {
	JSON string
	File string
}

func ClientOptions(creds Credentials) []option.ClientOption {
	if raw := strings.TrimSpace(creds.JSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(creds.File); path != "" {
		if strings.HasPrefix(path, "{") {
			return []option.ClientOption{option.WithCredentialsJSON([]byte(path))}
		}
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

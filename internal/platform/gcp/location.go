package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

// ObjectLocation is a parsed storage location such as gs://bucket/key.
type ObjectLocation struct {
	Scheme string
	Bucket string
	Key    string
}

func (l ObjectLocation) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

func (l ObjectLocation) IsGCS() bool { return l.Scheme == "gs" }

// ParseLocation accepts gs:// and s3:// URIs as well as virtual-hosted
// https URLs (https://bucket.s3.region.amazonaws.com/key,
// https://storage.googleapis.com/bucket/key).
func ParseLocation(raw string) (ObjectLocation, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ObjectLocation{}, fmt.Errorf("invalid storage location %q", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	switch strings.ToLower(u.Scheme) {
	case "gs", "s3":
		if key == "" {
			return ObjectLocation{}, fmt.Errorf("storage location %q has no object key", raw)
		}
		return ObjectLocation{Scheme: strings.ToLower(u.Scheme), Bucket: u.Host, Key: key}, nil
	case "https", "http":
		host := strings.ToLower(u.Host)
		switch {
		case host == "storage.googleapis.com":
			bucket, obj, ok := strings.Cut(key, "/")
			if !ok || obj == "" {
				return ObjectLocation{}, fmt.Errorf("storage location %q has no object key", raw)
			}
			return ObjectLocation{Scheme: "gs", Bucket: bucket, Key: obj}, nil
		case strings.Contains(host, ".s3.") && strings.HasSuffix(host, ".amazonaws.com"):
			if key == "" {
				return ObjectLocation{}, fmt.Errorf("storage location %q has no object key", raw)
			}
			return ObjectLocation{Scheme: "s3", Bucket: host[:strings.Index(host, ".s3.")], Key: key}, nil
		}
	}
	return ObjectLocation{}, fmt.Errorf("unsupported storage location %q", raw)
}

package gcp

import (
	"errors"
	"testing"
)

func TestParseLocation(t *testing.T) {
	cases := []struct {
		in     string
		scheme string
		bucket string
		key    string
	}{
		{"gs://media/videos/a.mp4", "gs", "media", "videos/a.mp4"},
		{"s3://bucket/v1.mp4", "s3", "bucket", "v1.mp4"},
		{"https://storage.googleapis.com/media/a.mp4", "gs", "media", "a.mp4"},
		{"https://clips.s3.us-east-1.amazonaws.com/u/1.mp4", "s3", "clips", "u/1.mp4"},
	}
	for _, tc := range cases {
		got, err := ParseLocation(tc.in)
		if err != nil {
			t.Fatalf("ParseLocation(%q): %v", tc.in, err)
		}
		if got.Scheme != tc.scheme || got.Bucket != tc.bucket || got.Key != tc.key {
			t.Fatalf("ParseLocation(%q): want=%s/%s/%s got=%+v", tc.in, tc.scheme, tc.bucket, tc.key, got)
		}
	}
	for _, bad := range []string{"", "gs://bucket", "ftp://x/y", "https://example.com/a.mp4"} {
		if _, err := ParseLocation(bad); err == nil {
			t.Fatalf("ParseLocation(%q): expected error", bad)
		}
	}
}

func TestValidateStorageConfig(t *testing.T) {
	if err := ValidateStorageConfig(StorageConfig{Mode: ObjectStorageModeGCS}); err != nil {
		t.Fatalf("gcs mode: %v", err)
	}
	err := ValidateStorageConfig(StorageConfig{Mode: ObjectStorageModeGCSEmulator})
	var cfgErr *ObjectStorageConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != ObjectStorageConfigErrorMissingEmulatorHost {
		t.Fatalf("missing host: want=%s got=%v", ObjectStorageConfigErrorMissingEmulatorHost, err)
	}
	err = ValidateStorageConfig(StorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "fake-gcs"})
	if !errors.As(err, &cfgErr) || cfgErr.Code != ObjectStorageConfigErrorInvalidEmulatorHost {
		t.Fatalf("bad host: want=%s got=%v", ObjectStorageConfigErrorInvalidEmulatorHost, err)
	}
	if err := ValidateStorageConfig(StorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "http://fake-gcs:4443"}); err != nil {
		t.Fatalf("valid emulator: %v", err)
	}
}

func TestResolveStorageMode(t *testing.T) {
	if m, _ := ResolveStorageMode("", ""); m != ObjectStorageModeGCS {
		t.Fatalf("default: want=%s got=%s", ObjectStorageModeGCS, m)
	}
	if m, _ := ResolveStorageMode("", "http://localhost:4443"); m != ObjectStorageModeGCSEmulator {
		t.Fatalf("emulator fallback: want=%s got=%s", ObjectStorageModeGCSEmulator, m)
	}
	if _, err := ResolveStorageMode("s3", ""); err == nil {
		t.Fatalf("invalid mode: expected error")
	}
}

func TestEmulatorEndpoint(t *testing.T) {
	cfg := StorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: " http://fake-gcs:4443/ "}
	if got, want := cfg.EmulatorEndpoint(), "http://fake-gcs:4443/storage/v1/"; got != want {
		t.Fatalf("emulator endpoint: want=%s got=%s", want, got)
	}
	if n := len(cfg.ClientOptions()); n != 2 {
		t.Fatalf("emulator options: want=2 got=%d", n)
	}
	cfg.Mode = ObjectStorageModeGCS
	if got := cfg.EmulatorEndpoint(); got != "" {
		t.Fatalf("gcs endpoint: want empty got=%s", got)
	}
	if n := len(cfg.ClientOptions()); n != 0 {
		t.Fatalf("gcs options without credentials: want=0 got=%d", n)
	}
}

package s3_test

import (
	"testing"

	"hotel/config"
	"hotel/infras/otel/mocks"
	"hotel/infras/s3"

	"github.com/stretchr/testify/assert"
)

func newStore(publicDomain string) s3.S3 {
	cfg := &config.Config{}
	cfg.External.S3.Region = "auto"
	cfg.External.S3.APIEndpoint = "https://storage.example.com"
	cfg.External.S3.BucketName = "hotel"
	cfg.External.S3.PublicDomain = publicDomain

	return s3.New(cfg, mocks.NewOtel())
}

func TestGetObjectNameFromURL(t *testing.T) {
	tests := []struct {
		name         string
		publicDomain string
		url          string
		expected     string
	}{
		{
			name:         "public domain",
			publicDomain: "https://cdn.example.com/",
			url:          "https://cdn.example.com/room/4f1c.png",
			expected:     "4f1c.png",
		},
		{
			name:     "api endpoint when no public domain is set",
			url:      "https://storage.example.com/hotel/room/4f1c.png",
			expected: "4f1c.png",
		},
		{
			name:         "other directory",
			publicDomain: "https://cdn.example.com",
			url:          "https://cdn.example.com/branch/4f1c.png",
		},
		{
			name:         "nested key",
			publicDomain: "https://cdn.example.com",
			url:          "https://cdn.example.com/room/a/4f1c.png",
		},
		{
			name:         "foreign host",
			publicDomain: "https://cdn.example.com",
			url:          "https://elsewhere.example.com/room/4f1c.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, newStore(tt.publicDomain).GetObjectNameFromURL("room", tt.url))
		})
	}
}

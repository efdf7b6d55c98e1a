package permissions_test

import (
	"net/http"
	"testing"

	"hotel/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	data := permissions.Get()
	require.NotNil(t, data)

	assert.Same(t, data, permissions.Get())

	tests := []struct {
		name   string
		path   string
		method string
		want   []string
	}{
		{name: "only admins open branches", path: "/v1/branches", method: http.MethodPost, want: []string{"admin"}},
		{name: "staff edit their branch", path: "/v1/branches/{slug}", method: http.MethodPatch, want: []string{"admin", "staff"}},
		{name: "staff cancel bookings", path: "/v1/staff/branches/{slug}/bookings/{id}", method: http.MethodDelete, want: []string{"admin", "staff"}},
		{name: "unlisted route", path: "/v1/branches", method: http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, data.FindPermissions(tt.path, tt.method).Permissions)
		})
	}
}

func TestParse(t *testing.T) {
	assert.Nil(t, permissions.Parse([]byte(`{"endpoints": [`)))

	data := permissions.Parse([]byte(`{"endpoints": [{"path": "/v1/rooms", "method": "POST", "skip": true}]}`))
	require.NotNil(t, data)

	assert.True(t, data.FindPermissions("/v1/rooms", http.MethodPost).Skip)
	assert.False(t, data.FindPermissions("/v1/rooms", http.MethodDelete).Skip)
}

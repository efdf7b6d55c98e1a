package upload_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	s3Mocks "hotel/infras/s3/mocks"
	"hotel/shared/failure"
	"hotel/shared/upload"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

const pixel = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

func TestImage(t *testing.T) {
	tests := []struct {
		name      string
		dataURI   string
		maxBytes  int
		setupMock func(store *s3Mocks.MockS3)
		wantURL   string
		wantCode  int
	}{
		{
			name:     "stored under a fresh name",
			dataURI:  pixel,
			maxBytes: 1024,
			setupMock: func(store *s3Mocks.MockS3) {
				store.EXPECT().UploadFileBytes(gomock.Any(), "room", gomock.Any(), "image/png", gomock.Len(70)).
					DoAndReturn(func(_ context.Context, _, fileName, _ string, _ []byte) (string, error) {
						assert.True(t, strings.HasSuffix(fileName, ".png"))
						assert.Len(t, fileName, 36+len(".png"))

						return "https://cdn.example.com/room/" + fileName, nil
					})
			},
			wantURL: "https://cdn.example.com/room/",
		},
		{
			name:      "too large",
			dataURI:   pixel,
			maxBytes:  10,
			setupMock: func(_ *s3Mocks.MockS3) {},
			wantCode:  http.StatusRequestEntityTooLarge,
		},
		{
			name:      "not an image",
			dataURI:   "data:text/plain;base64,SGVsbG8=",
			maxBytes:  1024,
			setupMock: func(_ *s3Mocks.MockS3) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:      "not a data URI",
			dataURI:   "https://cdn.example.com/room/a.png",
			maxBytes:  1024,
			setupMock: func(_ *s3Mocks.MockS3) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name:     "storage failure",
			dataURI:  pixel,
			maxBytes: 1024,
			setupMock: func(store *s3Mocks.MockS3) {
				store.EXPECT().UploadFileBytes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", errors.New("connection reset"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := s3Mocks.NewMockS3(gomock.NewController(t))
			tt.setupMock(store)

			url, err := upload.Image(context.Background(), store, "room", tt.dataURI, tt.maxBytes)

			if tt.wantCode != 0 {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Empty(t, url)

				return
			}

			assert.NoError(t, err)
			assert.True(t, strings.HasPrefix(url, tt.wantURL))
		})
	}
}

func TestDiscard(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		setupMock func(store *s3Mocks.MockS3)
	}{
		{
			name:      "nothing stored",
			setupMock: func(_ *s3Mocks.MockS3) {},
		},
		{
			name: "deletes the object",
			url:  "https://cdn.example.com/room/a.png",
			setupMock: func(store *s3Mocks.MockS3) {
				store.EXPECT().GetObjectNameFromURL("room", "https://cdn.example.com/room/a.png").Return("a.png")
				store.EXPECT().DeleteFile(gomock.Any(), "room", "a.png").Return(nil)
			},
		},
		{
			name: "foreign url is left alone",
			url:  "https://elsewhere.example.com/a.png",
			setupMock: func(store *s3Mocks.MockS3) {
				store.EXPECT().GetObjectNameFromURL("room", gomock.Any()).Return("")
			},
		},
		{
			name: "delete failure is swallowed",
			url:  "https://cdn.example.com/room/a.png",
			setupMock: func(store *s3Mocks.MockS3) {
				store.EXPECT().GetObjectNameFromURL("room", gomock.Any()).Return("a.png")
				store.EXPECT().DeleteFile(gomock.Any(), "room", "a.png").Return(errors.New("timeout"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := s3Mocks.NewMockS3(gomock.NewController(t))
			tt.setupMock(store)

			upload.Discard(context.Background(), store, "room", tt.url)
		})
	}
}

// Package upload stores images sent inline as base64 data URIs in object storage.
package upload

import (
	"context"
	"errors"
	"fmt"

	"hotel/infras/s3"
	"hotel/shared/base64"
	"hotel/shared/constant"
	"hotel/shared/failure"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var ErrUnsupportedImage = failure.BadRequestFromString("image must be a JPEG, PNG or WebP data URI")

// Image decodes dataURI, checks it against maxBytes and stores it under directory
// with a fresh name. It returns the public URL of the stored object.
func Image(ctx context.Context, store s3.S3, directory, dataURI string, maxBytes int) (string, error) {
	contentType, data, err := base64.Decode(dataURI, maxBytes)
	if errors.Is(err, base64.ErrTooLarge) {
		return constant.Empty, failure.PayloadTooLarge(fmt.Sprintf("image must be at most %d bytes", maxBytes))
	}

	if err != nil {
		return constant.Empty, ErrUnsupportedImage
	}

	ext, ok := extensions[contentType]
	if !ok {
		return constant.Empty, ErrUnsupportedImage
	}

	url, err := store.UploadFileBytes(ctx, directory, uuid.NewString()+ext, contentType, data)
	if err != nil {
		log.Error().Err(err).Str("directory", directory).Msg("failed to upload image")

		return constant.Empty, fmt.Errorf("failed to upload image: %w", err)
	}

	return url, nil
}

// Discard deletes the object behind url. Failures are logged only.
func Discard(ctx context.Context, store s3.S3, directory, url string) {
	if url == constant.Empty {
		return
	}

	objectName := store.GetObjectNameFromURL(directory, url)
	if objectName == constant.Empty {
		log.Warn().Str("url", url).Msg("failed to extract object name from URL")

		return
	}

	if err := store.DeleteFile(ctx, directory, objectName); err != nil {
		log.Error().Err(err).Str("objectName", objectName).Msg("failed to delete image")
	}
}

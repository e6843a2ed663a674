package services

import (
	"context"
	"errors"
	"io"

	"github.com/tbourn/go-places-market/internal/storage"
)

// ImageStore persists uploaded images and returns their stored names.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(ctx context.Context, name string) error
}

// Upload is an image supplied with a request.
type Upload struct {
	Filename string
	Body     io.Reader
}

// saveImage stores up and translates rejections into validation errors.
// A nil upload stores nothing and returns "".
func saveImage(ctx context.Context, images ImageStore, up *Upload) (string, error) {
	if up == nil || up.Body == nil {
		return "", nil
	}
	if images == nil {
		return "", errors.New("image store not configured")
	}
	name, err := images.Save(ctx, up.Filename, up.Body)
	switch {
	case err == nil:
		return name, nil
	case errors.Is(err, storage.ErrUnsupportedType):
		return "", &Error{Kind: KindValidation, Msg: "image must be a png, jpg, jpeg or gif file", Err: err}
	case errors.Is(err, storage.ErrTooLarge):
		return "", &Error{Kind: KindValidation, Msg: "image is too large", Err: err}
	case errors.Is(err, storage.ErrEmpty):
		return "", &Error{Kind: KindValidation, Msg: "image is empty", Err: err}
	default:
		return "", err
	}
}

// removeImage deletes name if set. Failures only leave an orphan file.
func removeImage(ctx context.Context, images ImageStore, name string) {
	if images == nil || name == "" {
		return
	}
	_ = images.Remove(context.WithoutCancel(ctx), name)
}

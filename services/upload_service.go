package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"store-finder/utils/errors"
)

// PhotoUploader validates, resizes and writes store photos.
type PhotoUploader struct {
	dir      string
	maxWidth int
	timeout  time.Duration
	newName  func() string
	write    func(ctx context.Context, data []byte, name string, format imaging.Format) error
}

func NewPhotoUploader(dir string, maxWidth int, timeout time.Duration) *PhotoUploader {
	u := &PhotoUploader{
		dir:      dir,
		maxWidth: maxWidth,
		timeout:  timeout,
		newName:  func() string { return uuid.New().String() },
	}
	u.write = u.writeFile
	return u
}

func (u *PhotoUploader) Dir() string {
	return u.dir
}

// Process stores the upload and returns its generated filename. Anything that
// is not a decodable image yields ErrUploadRejected and writes nothing.
func (u *PhotoUploader) Process(ctx context.Context, r io.Reader, contentType, originalName string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", errors.ErrUploadRejected
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", errors.ErrUploadRejected
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		ext = detected.Extension()
		if format, err = imaging.FormatFromExtension(ext); err != nil {
			return "", errors.ErrUploadRejected
		}
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	name := u.newName() + ext
	done := make(chan error, 1)
	go func() {
		done <- u.write(ctx, data, name, format)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", err
		}
		logrus.WithFields(logrus.Fields{"photo": name, "type": detected.String()}).Debug("photo stored")
		return name, nil
	case <-ctx.Done():
		// The write may still finish after the deadline; nobody will reference it.
		if err := <-done; err == nil {
			if rmErr := u.Remove(name); rmErr != nil {
				logrus.WithError(rmErr).WithField("photo", name).Warn("failed to remove late photo")
			}
		}
		return "", fmt.Errorf("process upload: %w", ctx.Err())
	}
}

// Remove deletes a stored photo. A photo that is already gone is not an error.
func (u *PhotoUploader) Remove(name string) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("remove photo: invalid name %q", name)
	}
	if err := os.Remove(filepath.Join(u.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove photo: %w", err)
	}
	return nil
}

func (u *PhotoUploader) writeFile(ctx context.Context, data []byte, name string, format imaging.Format) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return errors.ErrUploadRejected
	}
	img = u.fit(img)

	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(u.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := imaging.Encode(tmp, img, format); err != nil {
		tmp.Close()
		return fmt.Errorf("encode photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(u.dir, name)); err != nil {
		return fmt.Errorf("store photo: %w", err)
	}
	return nil
}

// fit shrinks img to maxWidth keeping its aspect ratio. Narrower images are
// left alone.
func (u *PhotoUploader) fit(img image.Image) image.Image {
	if img.Bounds().Dx() <= u.maxWidth {
		return img
	}
	return imaging.Resize(img, u.maxWidth, 0, imaging.Lanczos)
}

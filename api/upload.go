package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/services"
)

const defaultMaxUpload = 32 << 20

// parseMultipart bounds the body and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxUpload int64) error {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewMaxBodySizeExceededError(maxUpload)
		}
		return errs.NewMalformedPayloadError("multipart", err)
	}
	return nil
}

// formImages reads every file of the "images" field.
func formImages(form *multipart.Form) ([]services.Image, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File["images"]
	images := make([]services.Image, 0, len(headers))
	for _, fh := range headers {
		img, err := readImage(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func readImage(fh *multipart.FileHeader) (services.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return services.Image{}, errs.NewMalformedPayloadError("image", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return services.Image{}, errs.NewMalformedPayloadError("image", err)
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return services.Image{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}

// formConfirm reads an optional boolean "confirm" form value.
func formConfirm(r *http.Request) (*bool, error) {
	raw := r.FormValue("confirm")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.NewInvalidFieldError("confirm", "must be true or false")
	}
	return &v, nil
}

package server

import (
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
)

// readUpload returns the multipart "image" file of r.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+MaxJSONBodySize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", errors.Join(errBadRequest, err)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", fmt.Errorf("%w: image field: %v", errBadRequest, err)
	}
	return file, header.Filename, nil
}

// decodeUpload reads and decodes the multipart "image" file of r.
func (s *Server) decodeUpload(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	file, name, err := s.readUpload(w, r)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	img, format, err := s.loader.Decode(file, name)
	if err != nil {
		return nil, "", errors.Join(errBadRequest, err)
	}
	return img, format, nil
}

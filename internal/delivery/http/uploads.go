package http

import (
	"mime/multipart"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/service"
)

// openUploads opens every file part. The returned func closes them all and
// must be called once the service is done reading.
func openUploads(files ...*multipart.FileHeader) ([]service.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

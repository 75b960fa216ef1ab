package download

import "errors"

var (
	// ErrDownloadFailed is returned when every attempt failed.
	ErrDownloadFailed = errors.New("download failed")

	// ErrEmptyDownload is returned when the server sent no bytes.
	ErrEmptyDownload = errors.New("downloaded file is empty")

	// ErrUnstable is returned when the file size keeps changing.
	ErrUnstable = errors.New("downloaded file size did not settle")
)

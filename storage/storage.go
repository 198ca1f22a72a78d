// Package storage pushes rendered documents into the configured Google Drive
// folder.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// ErrorKind distinguishes upload failures the operator can fix by falling
// back to the local download (permission/quota) from everything else.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindPermission
)

type UploadError struct {
	Kind ErrorKind
	Err  error
}

func (e *UploadError) Error() string {
	return e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

type Uploader struct {
	gdrive   *drive.Service
	folderId string
}

func NewUploader(gdrive *drive.Service, folderId string) *Uploader {
	return &Uploader{
		gdrive:   gdrive,
		folderId: folderId,
	}
}

// Upload stores the document bytes as a named file in the destination folder
// and returns the shareable viewing link. No retry - a failed upload is
// reported once and the caller falls back to the local download.
func (u *Uploader) Upload(ctx context.Context, filename string, b []byte) (string, error) {
	f := drive.File{
		Name:     filename,
		Parents:  []string{u.folderId},
		MimeType: "application/pdf",
	}

	file, err := u.gdrive.Files.Create(&f).
		Media(bytes.NewReader(b), googleapi.ContentType("application/pdf")).
		SupportsAllDrives(true).
		Fields("id, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", &UploadError{
			Kind: classify(err),
			Err:  fmt.Errorf("unable to upload report (%w)", err),
		}
	}

	return file.WebViewLink, nil
}

// Access describes what the service account may do with the destination
// folder.
type Access struct {
	FolderName     string
	CanAddChildren bool
}

// Check retrieves the destination folder's name and capabilities. Used as an
// advisory startup check - the usual misconfiguration is a folder that was
// never shared with the service-account email.
func (u *Uploader) Check(ctx context.Context) (Access, error) {
	folder, err := u.gdrive.Files.Get(u.folderId).
		SupportsAllDrives(true).
		Fields("id, name, capabilities").
		Context(ctx).
		Do()
	if err != nil {
		return Access{}, fmt.Errorf("unable to retrieve folder information (%w)", err)
	}

	access := Access{
		FolderName: folder.Name,
	}

	if folder.Capabilities != nil {
		access.CanAddChildren = folder.Capabilities.CanAddChildren
	}

	return access, nil
}

func classify(err error) ErrorKind {
	var gerr *googleapi.Error

	if errors.As(err, &gerr) {
		if gerr.Code == 403 {
			return KindPermission
		}

		for _, e := range gerr.Errors {
			switch e.Reason {
			case "storageQuotaExceeded", "insufficientPermissions", "teamDriveFileLimitExceeded":
				return KindPermission
			}
		}
	}

	if strings.Contains(err.Error(), "quota") {
		return KindPermission
	}

	return KindGeneric
}

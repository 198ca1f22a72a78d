// Package gapi turns the stored service-account credentials into the
// authorized Google API client pair used by the rest of the application.
package gapi

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	SHEETS = "https://www.googleapis.com/auth/spreadsheets"
	DRIVE  = "https://www.googleapis.com/auth/drive"
)

// Clients is the authorized (Sheets, Drive) handle pair. It is constructed
// once at startup and injected wherever a Google API call is made.
type Clients struct {
	Sheets *sheets.Service
	Drive  *drive.Service

	// Email is the service-account address, surfaced so the operator
	// knows which account to share the spreadsheet and folder with.
	Email string
}

// NewClients reads the service-account JSON and builds both services from a
// single authorized HTTP client. A malformed descriptor or insufficient
// scopes are fatal to the whole session.
func NewClients(ctx context.Context, credentials string) (*Clients, error) {
	b, err := os.ReadFile(credentials)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account credentials (%w)", err)
	}

	config, err := google.JWTConfigFromJSON(b, SHEETS, DRIVE)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials (%w)", err)
	}

	client := config.Client(ctx)

	google, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create new Sheets client (%w)", err)
	}

	gdrive, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create new Drive client (%w)", err)
	}

	return &Clients{
		Sheets: google,
		Drive:  gdrive,
		Email:  config.Email,
	}, nil
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/careworks-jp/careform/config"
	"github.com/careworks-jp/careform/gapi"
	"github.com/careworks-jp/careform/history"
	"github.com/careworks-jp/careform/pdf"
	"github.com/careworks-jp/careform/server"
	"github.com/careworks-jp/careform/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CAREFORM_CONFIG"))
	if err != nil {
		log.Fatalf("configuration error (%v)", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clients, err := gapi.NewClients(ctx, cfg.Credentials)
	if err != nil {
		log.Fatalf("Google authentication/authorization error (%v)", err)
	}

	log.Infof("service account %s - share the spreadsheet and the Drive folder with this address as editor", clients.Email)

	store := history.NewStore(clients.Sheets, cfg.SpreadsheetId)
	if err := store.EnsureHeader(ctx); err != nil {
		log.Warnf("unable to initialise history worksheet (%v)", err)
	}

	uploader := storage.NewUploader(clients.Drive, cfg.FolderId)

	// advisory only - a misconfigured folder still lets the operator use
	// the local download
	if access, err := uploader.Check(ctx); err != nil {
		log.Warnf("Drive folder check failed (%v)", err)
	} else if !access.CanAddChildren {
		log.Warnf("folder %q is not writable - share it with %s as editor", access.FolderName, clients.Email)
	} else {
		log.Infof("folder %q is writable", access.FolderName)
	}

	renderer := pdf.Renderer{
		FontPath:     cfg.FontPath,
		Organization: cfg.Organization,
	}

	if cfg.FontPath == "" {
		log.Warnf("no 'font_path' configured - Japanese text will not render legibly")
	}

	srv := server.New(cfg.Password, &renderer, uploader, store)

	if err := srv.Run(ctx, cfg.Addr); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("%v", err)
	}
}

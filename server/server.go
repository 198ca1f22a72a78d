// Package server is the web form: session gate, input form, and the
// render/upload/record pipeline behind the submit button.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/careworks-jp/careform/report"
	"github.com/careworks-jp/careform/storage"
)

//go:embed templates
var templatesFS embed.FS

var log = logrus.StandardLogger()

// Renderer produces the document bytes for a record.
type Renderer interface {
	Render(report.Record) ([]byte, error)
}

// Uploader stores document bytes and returns a viewing link.
type Uploader interface {
	Upload(ctx context.Context, filename string, b []byte) (string, error)
}

// History is the audit-trail adapter.
type History interface {
	Append(ctx context.Context, record report.Record) error
	Fetch(ctx context.Context, subject string) ([]report.Record, error)
}

type Server struct {
	password  string
	renderer  Renderer
	uploader  Uploader
	history   History
	sessions  *sessions
	templates *template.Template
	now       func() time.Time
}

func New(password string, renderer Renderer, uploader Uploader, history History) *Server {
	return &Server{
		password:  password,
		renderer:  renderer,
		uploader:  uploader,
		history:   history,
		sessions:  newSessions(),
		templates: template.Must(template.ParseFS(templatesFS, "templates/*.html")),
		now:       time.Now,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", s.loginForm)
	mux.HandleFunc("POST /login", s.login)

	mux.HandleFunc("GET /{$}", s.gated(s.form))
	mux.HandleFunc("POST /submit", s.gated(s.submit))
	mux.HandleFunc("POST /reset", s.gated(s.reset))
	mux.HandleFunc("GET /history", s.gated(s.historyView))
	mux.HandleFunc("POST /restore", s.gated(s.restore))
	mux.HandleFunc("GET /history/export", s.gated(s.historyExport))
	mux.HandleFunc("GET /download", s.gated(s.download))

	return mux
}

// Run serves the form until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()

	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// gated redirects to the login prompt until the session has passed the
// password check.
func (s *Server) gated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.sessions.get(w, r)
		if !session.authorized() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next(w, r)
	}
}

// outcome is the result of one valid submission.
type outcome struct {
	Filename     string
	PDF          []byte
	Link         string
	UploadNotice string
}

// process runs the render → upload → record sequence. A rendering failure
// aborts the submission; an upload failure is reported but the history row
// is still appended and the rendered bytes are still offered for download.
func (s *Server) process(ctx context.Context, record report.Record) (*outcome, error) {
	b, err := s.renderer.Render(record)
	if err != nil {
		return nil, fmt.Errorf("帳票の作成に失敗しました (%w)", err)
	}

	out := outcome{
		Filename: record.Filename(s.now()),
		PDF:      b,
	}

	if link, err := s.uploader.Upload(ctx, out.Filename, b); err != nil {
		var uerr *storage.UploadError
		if errors.As(err, &uerr) && uerr.Kind == storage.KindPermission {
			out.UploadNotice = "Driveへのアップロード権限（または容量）が不足しています。下のダウンロードをご利用ください。"
		} else {
			out.UploadNotice = fmt.Sprintf("Driveへのアップロードに失敗しました (%v)", err)
		}

		log.Warnf("upload failed for %s (%v)", out.Filename, err)
	} else {
		out.Link = link
	}

	if err := s.history.Append(ctx, record); err != nil {
		log.Warnf("unable to append history row for %s (%v)", record.Subject, err)
	}

	return &out, nil
}

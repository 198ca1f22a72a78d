package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/careworks-jp/careform/history"
	"github.com/careworks-jp/careform/report"
)

type itemView struct {
	Index int
	Label string
	Mode  report.Mode
	Note  string
}

type formView struct {
	Error     string
	Notice    string
	Subject   string
	Author    string
	Date      string
	Narrative string
	Items     []itemView
	Modes     []report.Mode
}

type doneView struct {
	Subject      string
	Filename     string
	Link         string
	UploadNotice string
}

type historyView struct {
	Subject string
	Records []report.Record
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", map[string]string{})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.get(w, r)

	if r.FormValue("password") != s.password {
		s.render(w, "login.html", map[string]string{"Error": "パスワードが違います"})
		return
	}

	session.authorize()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) form(w http.ResponseWriter, r *http.Request) {
	s.render(w, "form.html", s.blankForm())
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	record := s.recordFromForm(r)

	if err := record.Validate(); err != nil {
		view := s.viewFromRecord(record)
		view.Error = err.Error()
		s.render(w, "form.html", view)
		return
	}

	out, err := s.process(r.Context(), record)
	if err != nil {
		view := s.viewFromRecord(record)
		view.Error = err.Error()
		s.render(w, "form.html", view)
		return
	}

	s.sessions.get(w, r).store(out.Filename, out.PDF)

	s.render(w, "done.html", doneView{
		Subject:      record.Subject,
		Filename:     out.Filename,
		Link:         out.Link,
		UploadNotice: out.UploadNotice,
	})
}

func (s *Server) historyView(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.FormValue("subject"))

	view := historyView{
		Subject: subject,
	}

	if subject != "" {
		records, err := s.history.Fetch(r.Context(), subject)
		if err != nil {
			log.Warnf("unable to fetch history for %s (%v)", subject, err)
		} else {
			view.Records = records
		}
	}

	s.render(w, "history.html", view)
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.FormValue("subject"))
	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil || index < 0 {
		http.Redirect(w, r, "/history", http.StatusSeeOther)
		return
	}

	records, err := s.history.Fetch(r.Context(), subject)
	if err != nil {
		log.Warnf("unable to fetch history for %s (%v)", subject, err)
	}

	if index >= len(records) {
		http.Redirect(w, r, "/history?subject="+url.QueryEscape(subject), http.StatusSeeOther)
		return
	}

	view := s.viewFromRecord(records[index])
	view.Notice = "履歴から入力内容を復元しました"
	s.render(w, "form.html", view)
}

func (s *Server) historyExport(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.FormValue("subject"))
	if subject == "" {
		http.Redirect(w, r, "/history", http.StatusSeeOther)
		return
	}

	records, err := s.history.Fetch(r.Context(), subject)
	if err != nil {
		log.Warnf("unable to fetch history for %s (%v)", subject, err)
	}

	b, err := history.ExportXLSX(records)
	if err != nil {
		http.Error(w, "エクスポートに失敗しました", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_履歴.xlsx", subject)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.Write(b)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	filename, pdf := s.sessions.get(w, r).document()
	if len(pdf) == 0 {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.Write(pdf)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Errorf("unable to render %s (%v)", name, err)
	}
}

func (s *Server) blankForm() formView {
	view := formView{
		Date:  s.now().Format("2006-01-02"),
		Modes: report.Modes(),
	}

	for i, label := range report.ItemLabels {
		view.Items = append(view.Items, itemView{
			Index: i,
			Label: label,
			Mode:  report.ModeStandard,
		})
	}

	return view
}

func (s *Server) viewFromRecord(record report.Record) formView {
	view := formView{
		Subject:   record.Subject,
		Author:    record.Author,
		Date:      record.Date.Format("2006-01-02"),
		Narrative: record.Narrative,
		Modes:     report.Modes(),
	}

	for i, label := range report.ItemLabels {
		item := record.Items[label]

		mode := item.Mode
		if mode == "" {
			mode = report.ModeStandard
		}

		view.Items = append(view.Items, itemView{
			Index: i,
			Label: label,
			Mode:  mode,
			Note:  item.Note,
		})
	}

	return view
}

func (s *Server) recordFromForm(r *http.Request) report.Record {
	record := report.Record{
		Subject:   strings.TrimSpace(r.FormValue("subject")),
		Author:    strings.TrimSpace(r.FormValue("author")),
		Narrative: r.FormValue("narrative"),
		Items:     map[string]report.Item{},
	}

	if date, err := time.ParseInLocation("2006-01-02", r.FormValue("date"), time.Local); err == nil {
		record.Date = date
	} else {
		record.Date = s.now()
	}

	for i, label := range report.ItemLabels {
		mode := report.Mode(r.FormValue(fmt.Sprintf("mode%d", i)))

		valid := false
		for _, m := range report.Modes() {
			if mode == m {
				valid = true
			}
		}
		if !valid {
			mode = report.ModeStandard
		}

		record.Items[label] = report.Item{
			Mode: mode,
			Note: strings.TrimSpace(r.FormValue(fmt.Sprintf("note%d", i))),
		}
	}

	return record
}

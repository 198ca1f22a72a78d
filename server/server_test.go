package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careworks-jp/careform/report"
	"github.com/careworks-jp/careform/storage"
)

const testPassword = "himitsu"

type fakeRenderer struct {
	calls int
	pdf   []byte
	err   error
}

func (f *fakeRenderer) Render(record report.Record) ([]byte, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.pdf, nil
}

type fakeUploader struct {
	calls     int
	filenames []string
	link      string
	err       error
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, b []byte) (string, error) {
	f.calls++
	f.filenames = append(f.filenames, filename)

	if f.err != nil {
		return "", f.err
	}

	return f.link, nil
}

type fakeHistory struct {
	appended []report.Record
	records  []report.Record
	fetchErr error
}

func (f *fakeHistory) Append(ctx context.Context, record report.Record) error {
	f.appended = append(f.appended, record)
	return nil
}

func (f *fakeHistory) Fetch(ctx context.Context, subject string) ([]report.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	return f.records, nil
}

type fixture struct {
	renderer *fakeRenderer
	uploader *fakeUploader
	history  *fakeHistory
	ts       *httptest.Server
	client   *http.Client
}

func newFixture(t *testing.T) *fixture {
	f := fixture{
		renderer: &fakeRenderer{pdf: []byte("%PDF-1.4 test")},
		uploader: &fakeUploader{link: "https://drive.google.com/file/d/abc/view"},
		history:  &fakeHistory{},
	}

	s := New(testPassword, f.renderer, f.uploader, f.history)
	f.ts = httptest.NewServer(s.routes())
	t.Cleanup(f.ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	f.client = &http.Client{Jar: jar}

	return &f
}

func (f *fixture) login(t *testing.T) {
	response, err := f.client.PostForm(f.ts.URL+"/login", url.Values{"password": {testPassword}})
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	response, err := f.client.Get(f.ts.URL + path)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response.StatusCode, string(body)
}

func (f *fixture) post(t *testing.T, path string, values url.Values) (int, string) {
	response, err := f.client.PostForm(f.ts.URL+path, values)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response.StatusCode, string(body)
}

func submitValues() url.Values {
	return url.Values{
		"subject":   {"田中"},
		"author":    {"佐藤"},
		"date":      {"2024-01-15"},
		"mode2":     {"積極提供"},
		"note2":     {"シャワーのみ"},
		"narrative": {"経過良好"},
	}
}

func TestGateDeniesUntilPasswordMatches(t *testing.T) {
	f := newFixture(t)

	// ... no session: redirected to the login prompt
	f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	response, err := f.client.Get(f.ts.URL + "/")
	require.NoError(t, err)
	response.Body.Close()
	assert.Equal(t, http.StatusSeeOther, response.StatusCode)
	assert.Equal(t, "/login", response.Header.Get("Location"))

	// ... wrong password: prompt again, still gated
	response, err = f.client.PostForm(f.ts.URL+"/login", url.Values{"password": {"wrong"}})
	require.NoError(t, err)
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	assert.Contains(t, string(body), "パスワードが違います")

	response, err = f.client.Get(f.ts.URL + "/")
	require.NoError(t, err)
	response.Body.Close()
	assert.Equal(t, http.StatusSeeOther, response.StatusCode)

	// ... exact password: granted for the rest of the session
	response, err = f.client.PostForm(f.ts.URL+"/login", url.Values{"password": {testPassword}})
	require.NoError(t, err)
	response.Body.Close()
	assert.Equal(t, http.StatusSeeOther, response.StatusCode)

	f.client.CheckRedirect = nil

	status, page := f.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "支援報告書")
}

func TestSubmitRequiresSubjectAndAuthor(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	values := submitValues()
	values.Set("subject", "")

	status, page := f.post(t, "/submit", values)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "利用者名は必須です")

	values = submitValues()
	values.Set("author", "")

	_, page = f.post(t, "/submit", values)
	assert.Contains(t, page, "記録者名は必須です")

	// no downstream call was made
	assert.Equal(t, 0, f.renderer.calls)
	assert.Equal(t, 0, f.uploader.calls)
	assert.Empty(t, f.history.appended)
}

func TestSubmitEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	status, page := f.post(t, "/submit", submitValues())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "送信完了")
	assert.Contains(t, page, f.uploader.link)

	assert.Equal(t, 1, f.renderer.calls)

	require.Len(t, f.uploader.filenames, 1)
	assert.Regexp(t, regexp.MustCompile(`^田中_20240115_\d{6}\.pdf$`), f.uploader.filenames[0])

	require.Len(t, f.history.appended, 1)
	record := f.history.appended[0]
	assert.Equal(t, "田中", record.Subject)
	assert.Equal(t, "佐藤", record.Author)
	assert.Equal(t, "経過良好", record.Narrative)
	assert.Equal(t, report.Item{Mode: report.ModeProactive, Note: "シャワーのみ"}, record.Items["入浴支援"])

	serialized, err := report.EncodeItems(record.Items)
	require.NoError(t, err)
	assert.Contains(t, serialized, "入浴支援")
}

func TestSubmitRenderFailureAbortsSubmission(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("bad layout")
	f.login(t)

	status, page := f.post(t, "/submit", submitValues())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "帳票の作成に失敗しました")

	assert.Equal(t, 0, f.uploader.calls)
	assert.Empty(t, f.history.appended)
}

func TestSubmitUploadPermissionFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = &storage.UploadError{
		Kind: storage.KindPermission,
		Err:  fmt.Errorf("googleapi: Error 403: insufficient permissions"),
	}
	f.login(t)

	status, page := f.post(t, "/submit", submitValues())
	assert.Equal(t, http.StatusOK, status)

	// classified message, not the raw error text
	assert.Contains(t, page, "ダウンロードをご利用ください")
	assert.NotContains(t, page, "Error 403")

	// history is still recorded, best effort
	require.Len(t, f.history.appended, 1)
	assert.Equal(t, "田中", f.history.appended[0].Subject)

	// the rendered bytes are still offered for download
	response, err := f.client.Get(f.ts.URL + "/download")
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "application/pdf", response.Header.Get("Content-Type"))

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Equal(t, f.renderer.pdf, body)
}

func TestSubmitUploadGenericFailureSurfacesMessage(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = errors.New("connection reset by peer")
	f.login(t)

	_, page := f.post(t, "/submit", submitValues())
	assert.Contains(t, page, "アップロードに失敗しました")
	assert.Contains(t, page, "connection reset by peer")

	require.Len(t, f.history.appended, 1)
}

func TestRestorePrefillsForm(t *testing.T) {
	f := newFixture(t)
	f.history.records = []report.Record{
		{
			Subject: "田中",
			Author:  "佐藤",
			Items: map[string]report.Item{
				"入浴支援": {Mode: report.ModeProactive, Note: "シャワーのみ"},
			},
			Narrative: "経過良好",
		},
	}
	f.login(t)

	status, page := f.post(t, "/restore", url.Values{"subject": {"田中"}, "index": {"0"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "履歴から入力内容を復元しました")
	assert.Contains(t, page, `value="田中"`)
	assert.Contains(t, page, `value="佐藤"`)
	assert.Contains(t, page, "シャワーのみ")
	assert.Contains(t, page, "経過良好")
}

func TestHistoryFetchFailureYieldsEmptyResult(t *testing.T) {
	f := newFixture(t)
	f.history.fetchErr = errors.New("sheet unavailable")
	f.login(t)

	status, page := f.get(t, "/history?subject="+url.QueryEscape("田中"))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "見つかりませんでした")
}

func TestDownloadWithoutSubmission(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	status, _ := f.get(t, "/download")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHistoryExport(t *testing.T) {
	f := newFixture(t)
	f.history.records = []report.Record{
		{Subject: "田中", Author: "佐藤"},
	}
	f.login(t)

	response, err := f.client.Get(f.ts.URL + "/history/export?subject=" + url.QueryEscape("田中"))
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", response.Header.Get("Content-Type"))

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/prompt"
	"prompt-image-editor/internal/transform"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(9 * x), uint8(13 * y), 77, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

type testServer struct {
	t    *testing.T
	srv  *Server
	http *httptest.Server
	mock *prompt.MockInterpreter
}

func newTestServer(t *testing.T, responses ...[]ops.Request) *testServer {
	t.Helper()
	lib, err := transform.New(transform.BildName)
	if err != nil {
		t.Fatal(err)
	}
	mock := prompt.NewMockInterpreter(responses...)
	srv := New(lib, mock, Options{MaxUploadBytes: 1 << 20}, nil)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return &testServer{t: t, srv: srv, http: hs, mock: mock}
}

func (ts *testServer) do(method, path, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()
	req, err := http.NewRequest(method, ts.http.URL+path, body)
	if err != nil {
		ts.t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatal(err)
	}
	ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) postJSON(path string, v any) *http.Response {
	ts.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		ts.t.Fatal(err)
	}
	return ts.do(http.MethodPost, path, "application/json", bytes.NewReader(data))
}

func (ts *testServer) createSession() string {
	ts.t.Helper()
	body, ct := multipartBody(ts.t, pngBytes(ts.t, 20, 16), nil)
	resp := ts.do(http.MethodPost, "/sessions", ct, body)
	if resp.StatusCode != http.StatusOK {
		ts.t.Fatalf("create session status = %d", resp.StatusCode)
	}
	got := decode[sessionResponse](ts.t, resp)
	if got.State.ID == "" || got.State.Image.Width != 20 || got.State.Image.Height != 16 {
		ts.t.Fatalf("create session state = %+v", got.State)
	}
	return got.State.ID
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func logTags(s sessionState) []string {
	out := make([]string, len(s.Log))
	for i, e := range s.Log {
		out[i] = e.String()
	}
	return out
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	base := "/sessions/" + id

	resp := ts.postJSON(base+"/apply", ops.Request{Type: "blur", Intensity: ops.High})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d", resp.StatusCode)
	}
	got := decode[sessionResponse](t, resp)
	if strings.Join(logTags(got.State), ",") != "blur=high" || got.State.History != 1 {
		t.Errorf("state = %+v", got.State)
	}
	if len(got.Notices) != 1 || got.Notices[0].Level != core.NoticeInfo {
		t.Errorf("notices = %+v", got.Notices)
	}

	resp = ts.postJSON(base+"/apply", ops.Request{Type: "blur", Intensity: ops.Low})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second blur status = %d, want 409", resp.StatusCode)
	}
	got = decode[sessionResponse](t, resp)
	if len(got.Notices) != 1 || got.Notices[0].Level != core.NoticeError {
		t.Errorf("notices = %+v", got.Notices)
	}

	resp = ts.postJSON(base+"/clear", clearRequest{Type: "grayscale"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("clear absent status = %d, want 409", resp.StatusCode)
	}

	resp = ts.postJSON(base+"/apply", ops.Request{Type: "posterize"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unsupported status = %d, want 400", resp.StatusCode)
	}

	resp = ts.postJSON(base+"/clear", clearRequest{Type: "blur"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d", resp.StatusCode)
	}
	got = decode[sessionResponse](t, resp)
	if len(got.State.Log) != 0 || got.State.History != 2 {
		t.Errorf("state after clear = %+v", got.State)
	}

	resp = ts.do(http.MethodGet, base+"/image.png", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("image status = %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil || img.Bounds().Dx() != 20 {
		t.Errorf("image decode = %v, %v", img, err)
	}

	resp = ts.do(http.MethodGet, base+"/export.pdf", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Disposition"), "edited_image.pdf") {
		t.Errorf("export status = %d, disposition %q", resp.StatusCode, resp.Header.Get("Content-Disposition"))
	}

	resp = ts.do(http.MethodDelete, base, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = ts.do(http.MethodGet, base, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted status = %d", resp.StatusCode)
	}
}

func TestSessionPrompt(t *testing.T) {
	ts := newTestServer(t, []ops.Request{
		{Type: "blur", Intensity: ops.High},
		{Type: "flip", Direction: ops.Vertical},
	})
	id := ts.createSession()

	resp := ts.postJSON("/sessions/"+id+"/prompt", promptRequest{Prompt: "blur and flip"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prompt status = %d", resp.StatusCode)
	}
	got := decode[sessionResponse](t, resp)
	if strings.Join(logTags(got.State), ",") != "blur=high,flipVertical" {
		t.Errorf("log = %v", logTags(got.State))
	}
	if len(got.Outcomes) != 2 || !got.Outcomes[0].Applied || !got.Outcomes[1].Applied {
		t.Errorf("outcomes = %+v", got.Outcomes)
	}

	ts.mock.Err = prompt.ErrBackendUnavailable
	resp = ts.postJSON("/sessions/"+id+"/prompt", promptRequest{Prompt: "more"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("backend down status = %d, want 502", resp.StatusCode)
	}
	got = decode[sessionResponse](t, resp)
	if len(got.State.Log) != 2 {
		t.Errorf("log changed after backend failure: %v", logTags(got.State))
	}
}

func TestSessionFreehand(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	base := "/sessions/" + id

	resp := ts.postJSON(base+"/freehand", freehandRequest{
		Points:  [][2]int{{20, 20}, {30, 24}},
		Display: &displaySize{W: 40, H: 32},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("freehand status = %d", resp.StatusCode)
	}
	if got := decode[sessionResponse](t, resp); !got.State.Freehand {
		t.Errorf("freehand not logged: %+v", got.State)
	}

	resp = ts.do(http.MethodDelete, base+"/freehand", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear freehand status = %d", resp.StatusCode)
	}
	if got := decode[sessionResponse](t, resp); got.State.Freehand || got.State.History != 2 {
		t.Errorf("state = %+v", got.State)
	}

	resp = ts.postJSON(base+"/freehand", freehandRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty stroke status = %d, want 400", resp.StatusCode)
	}
}

func TestGenerateOperations(t *testing.T) {
	ts := newTestServer(t, []ops.Request{{Type: "sharpen"}})

	resp := ts.postJSON("/generate-operations", promptRequest{Prompt: "crisper"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[operationsResponse](t, resp)
	if len(got.Operations) != 1 || got.Operations[0].Type != "sharpen" {
		t.Errorf("operations = %+v", got.Operations)
	}

	resp = ts.postJSON("/generate-operations", promptRequest{Prompt: ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty prompt status = %d", resp.StatusCode)
	}

	resp = ts.do(http.MethodPost, "/generate-operations", "application/json", strings.NewReader("{"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json status = %d", resp.StatusCode)
	}
}

func TestEditImage(t *testing.T) {
	ts := newTestServer(t, []ops.Request{{Type: "grayscale"}, {Type: "grayscale"}})

	body, ct := multipartBody(t, pngBytes(t, 10, 10), map[string]string{"prompt": "gray", "format": "pdf"})
	resp := ts.do(http.MethodPost, "/edit-image", ct, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Content-Disposition") != "attachment; filename=edited_image.pdf" {
		t.Errorf("disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	if resp.Header.Get("X-Operations-Applied") != "2" {
		t.Errorf("applied = %q", resp.Header.Get("X-Operations-Applied"))
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("body is not a PDF")
	}

	body, ct = multipartBody(t, pngBytes(t, 10, 10), map[string]string{"prompt": "gray", "format": "gif"})
	if resp := ts.do(http.MethodPost, "/edit-image", ct, body); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("gif format status = %d", resp.StatusCode)
	}

	body, ct = multipartBody(t, nil, map[string]string{"prompt": "gray"})
	if resp := ts.do(http.MethodPost, "/edit-image", ct, body); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing image status = %d", resp.StatusCode)
	}

	body, ct = multipartBody(t, []byte("not a png"), map[string]string{"prompt": "gray"})
	if resp := ts.do(http.MethodPost, "/edit-image", ct, body); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("garbage image status = %d", resp.StatusCode)
	}
}

func TestUnknownSessionAndCORS(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/sessions/not-a-uuid", "/sessions/9b2f0f4e-3c1a-4c57-9d39-0f6c3a1b2c3d"} {
		if resp := ts.do(http.MethodGet, path, "", nil); resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d", path, resp.StatusCode)
		}
	}

	resp := ts.do(http.MethodOptions, "/sessions", "", nil)
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight status = %d, origin %q", resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestStoreEvict(t *testing.T) {
	lib, _ := transform.New(transform.BildName)
	st := NewSessionStore(lib, nil, nil)
	a, _ := st.Create()
	b, _ := st.Create()

	a.mu.Lock()
	a.lastUsed = time.Now().Add(-time.Hour)
	a.mu.Unlock()

	if n := st.Evict(time.Minute); n != 1 {
		t.Errorf("Evict() = %d, want 1", n)
	}
	if _, err := st.Get(a.ID()); err == nil {
		t.Error("idle session survived")
	}
	if _, err := st.Get(b.ID()); err != nil {
		t.Errorf("fresh session evicted: %v", err)
	}
}

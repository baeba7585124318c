package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"

	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/export"
	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/prompt"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type operationsResponse struct {
	Operations []ops.Request `json:"operations"`
}

type clearRequest struct {
	Type string `json:"type"`
}

type displaySize struct {
	W int `json:"w"`
	H int `json:"h"`
}

// freehandRequest is one whole gesture. Points are image pixels, or
// surface pixels when Display gives the rendered size.
type freehandRequest struct {
	Points  [][2]int     `json:"points"`
	Display *displaySize `json:"display,omitempty"`
}

type sessionState struct {
	ID       string             `json:"id"`
	Image    core.ImageMetadata `json:"image"`
	Log      []core.LogEntry    `json:"log"`
	History  int                `json:"history"`
	Busy     bool               `json:"busy"`
	Freehand bool               `json:"freehand"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

type sessionResponse struct {
	State    sessionState   `json:"state"`
	Outcomes []core.Outcome `json:"outcomes,omitempty"`
	Notices  []core.Notice  `json:"notices"`
}

func stateOf(e *Entry) sessionState {
	sess := e.Session()
	log := sess.Log()
	if log == nil {
		log = []core.LogEntry{}
	}
	return sessionState{
		ID:       e.ID(),
		Image:    sess.Metadata(),
		Log:      log,
		History:  sess.HistoryLen(),
		Busy:     sess.Busy(),
		Freehand: sess.Applied(ops.FreehandBlur),
		Metrics:  sess.LastMetrics(),
	}
}

// respond writes the session state with the notices produced since seq.
// The status follows err.
func respond(w http.ResponseWriter, e *Entry, seq uint64, outcomes []core.Outcome, err error) {
	notices := e.Session().NoticesSince(seq)
	if notices == nil {
		notices = []core.Notice{}
	}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, sessionResponse{
		State:    stateOf(e),
		Outcomes: outcomes,
		Notices:  notices,
	})
}

func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	e, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		fail(w, err, nil)
		return nil, false
	}
	return e, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

// handleGenerateOperations translates a prompt without touching any image.
func (s *Server) handleGenerateOperations(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err, nil)
		return
	}
	text := strings.TrimSpace(req.Prompt)
	if text == "" {
		fail(w, core.ErrEmptyPrompt, nil)
		return
	}
	if s.interpreter == nil {
		fail(w, prompt.ErrBackendUnavailable, nil)
		return
	}

	reqs, err := s.interpreter.Interpret(r.Context(), text, "")
	if err == nil && len(reqs) == 0 {
		err = fmt.Errorf("%w: no operations returned", prompt.ErrMalformedResponse)
	}
	if err != nil {
		s.logger.Warn("PROMPT: Generate operations failed", "error", err)
		fail(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, operationsResponse{Operations: reqs})
}

// handleEditImage runs a one-shot edit and returns the file.
func (s *Server) handleEditImage(w http.ResponseWriter, r *http.Request) {
	file, name, err := s.readUpload(w, r)
	if err != nil {
		fail(w, err, nil)
		return
	}
	defer file.Close()

	format, err := export.ParseFormat(r.FormValue("format"))
	if err != nil {
		fail(w, err, nil)
		return
	}

	var out bytes.Buffer
	report, err := s.editor.Edit(r.Context(), file, name, r.FormValue("prompt"), format, &out)
	if err != nil {
		fail(w, err, nil)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+format.Filename())
	w.Header().Set("X-Operations-Applied", strconv.Itoa(report.Applied()))
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	w.WriteHeader(http.StatusOK)
	out.WriteTo(w)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	img, format, err := s.decodeUpload(w, r)
	if err != nil {
		fail(w, err, nil)
		return
	}

	e, err := s.store.Create()
	if err != nil {
		fail(w, err, nil)
		return
	}
	if err := e.Session().Load(img, format); err != nil {
		s.store.Delete(e.ID())
		fail(w, errors.Join(errBadRequest, err), nil)
		return
	}
	s.logger.Info("SERVER: Session created", "session", e.ID())
	respond(w, e, 0, nil, nil)
}

// handleUpload replaces the pristine source of an existing session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	img, format, err := s.decodeUpload(w, r)
	if err != nil {
		fail(w, err, nil)
		return
	}

	sess := e.Session()
	seq := sess.NoticeSeq()
	if err := sess.Load(img, format); err != nil {
		if !errors.Is(err, core.ErrBusy) {
			err = errors.Join(errBadRequest, err)
		}
		e.Dispatcher().Report(err)
		respond(w, e, seq, nil, err)
		return
	}
	respond(w, e, seq, nil, nil)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	respond(w, e, since, nil, nil)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(r.PathValue("id")) {
		fail(w, ErrSessionNotFound, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req ops.Request
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err, nil)
		return
	}

	seq := e.Session().NoticeSeq()
	out := e.Dispatcher().Apply(req)
	respond(w, e, seq, []core.Outcome{out}, out.Err())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req clearRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err, nil)
		return
	}

	seq := e.Session().NoticeSeq()
	out := e.Dispatcher().Clear(req.Type)
	respond(w, e, seq, []core.Outcome{out}, out.Err())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	seq := e.Session().NoticeSeq()
	err := e.Dispatcher().Reset()
	respond(w, e, seq, nil, err)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err, nil)
		return
	}

	seq := e.Session().NoticeSeq()
	outcomes, err := e.Dispatcher().Interpret(r.Context(), req.Prompt)
	respond(w, e, seq, outcomes, err)
}

func (s *Server) handleFreehand(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	var req freehandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err, nil)
		return
	}

	sess := e.Session()
	meta := sess.Metadata()
	points := make([]image.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = image.Pt(p[0], p[1])
		if req.Display != nil {
			points[i] = core.ScalePoint(points[i],
				image.Pt(req.Display.W, req.Display.H),
				image.Pt(meta.Width, meta.Height))
		}
	}

	seq := sess.NoticeSeq()
	err := sess.PaintStroke(points)
	if err != nil {
		e.Dispatcher().Report(err)
	}
	respond(w, e, seq, nil, err)
}

func (s *Server) handleClearFreehand(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	seq := e.Session().NoticeSeq()
	out := e.Dispatcher().Clear(ops.FreehandBlur.String())
	respond(w, e, seq, []core.Outcome{out}, out.Err())
}

func (s *Server) handleImagePNG(w http.ResponseWriter, r *http.Request) {
	s.writeCurrent(w, r, export.PNGFormat, false)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.writeCurrent(w, r, export.PDFFormat, true)
}

func (s *Server) writeCurrent(w http.ResponseWriter, r *http.Request, format export.Format, attachment bool) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	img := e.Session().Current()
	if img == nil {
		fail(w, core.ErrNoSourceImage, nil)
		return
	}
	s.writeImage(w, img, format, attachment)
}

// handleHistory serves history snapshot n as PNG.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSuffix(r.PathValue("n"), ".png"))
	img := e.Session().HistoryAt(n)
	if err != nil || img == nil {
		writeError(w, http.StatusNotFound, "no such history entry", nil)
		return
	}
	s.writeImage(w, img, export.PNGFormat, false)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	report, err := e.Session().QualityReport()
	if err != nil {
		fail(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeImage(w http.ResponseWriter, img image.Image, format export.Format, attachment bool) {
	var buf bytes.Buffer
	if err := export.Write(&buf, img, format); err != nil {
		s.logger.Error("SERVER: Export failed", "format", string(format), "error", err)
		fail(w, err, nil)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if attachment {
		w.Header().Set("Content-Disposition", "attachment; filename="+format.Filename())
	}
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

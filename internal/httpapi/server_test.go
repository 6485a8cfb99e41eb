package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmoretti/mirrorme/internal/avatar"
	"github.com/jmoretti/mirrorme/internal/config"
	"github.com/jmoretti/mirrorme/internal/media"
	"github.com/jmoretti/mirrorme/internal/observability"
	"github.com/jmoretti/mirrorme/internal/pipeline"
	"github.com/jmoretti/mirrorme/internal/vault"
)

type stubOrchestrator struct {
	lastRequest pipeline.Request
	result      pipeline.Result
	updates     int
}

func (o *stubOrchestrator) ProcessWithReplica(_ context.Context, req pipeline.Request, onUpdate pipeline.UpdateFunc) pipeline.Result {
	o.lastRequest = req
	if onUpdate != nil {
		onUpdate(1, avatar.VideoStatus{Status: avatar.StatusProcessing, Progress: 40})
		o.updates++
	}
	return o.result
}

func (o *stubOrchestrator) ProcessWithoutReplica(_ context.Context, req pipeline.Request) pipeline.Result {
	o.lastRequest = req
	result := o.result
	result.NoReplica = true
	return result
}

type stubCloner struct {
	voiceID string
	err     error
	sample  []byte
}

func (c *stubCloner) CloneVoice(_ context.Context, sample []byte, _ string) (string, error) {
	c.sample = sample
	return c.voiceID, c.err
}

type stubReplicas struct {
	replica avatar.Replica
	err     error
}

func (s *stubReplicas) CreateReplica(context.Context, string, string) (avatar.Replica, error) {
	return s.replica, s.err
}

func testConfig() config.Config {
	return config.Config{
		DefaultVoiceID:   "default-voice",
		DefaultReplicaID: "default-replica",
		AllowAnyOrigin:   true,
	}
}

func newTestServer(orch *stubOrchestrator) (*Server, *vault.InMemoryStore, *media.InMemoryStore) {
	vaultStore := vault.NewInMemoryStore()
	mediaStore := media.NewInMemoryStore()
	s := New(testConfig(), orch, &stubCloner{voiceID: "v1"}, &stubReplicas{}, nil, vaultStore, mediaStore, nil)
	return s, vaultStore, mediaStore
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMirrorReflect(t *testing.T) {
	orch := &stubOrchestrator{result: pipeline.Result{
		AIReply:      "a\nb\nc",
		DetectedTone: "happy",
		AudioBlob:    []byte("mpeg"),
	}}
	s, _, _ := newTestServer(orch)

	body := `{"input":"I got promoted today!"}`
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/mirror/reflect", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if orch.lastRequest.VoiceID != "default-voice" {
		t.Errorf("VoiceID = %q, want config default applied", orch.lastRequest.VoiceID)
	}
	if orch.lastRequest.ReplicaID != "default-replica" {
		t.Errorf("ReplicaID = %q, want config default applied", orch.lastRequest.ReplicaID)
	}
	if orch.lastRequest.Persona != nil {
		t.Errorf("Persona set on mirror request")
	}

	var result pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.DetectedTone != "happy" || string(result.AudioBlob) != "mpeg" {
		t.Fatalf("result = %+v", result)
	}
}

func TestMirrorReflectMissingInput(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/mirror/reflect", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMirrorReflectSaves(t *testing.T) {
	orch := &stubOrchestrator{result: pipeline.Result{AIReply: "a\nb\nc", DetectedTone: "calm", AudioKey: "tavus-audio/x.mp3"}}
	s, vaultStore, _ := newTestServer(orch)

	body := `{"input":"hello","userId":"u1","save":true}`
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/mirror/reflect", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	sessions, err := vaultStore.List(context.Background(), "u1", vault.Filter{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("vault has %d sessions, want 1", len(sessions))
	}
	if sessions[0].Type != vault.TypeMirror || sessions[0].AudioKey != "tavus-audio/x.mp3" {
		t.Fatalf("saved session = %+v", sessions[0])
	}
}

func TestSoulcastConverse(t *testing.T) {
	orch := &stubOrchestrator{result: pipeline.Result{AIReply: "a\nb\nc", SoulName: "Mom"}}
	s, vaultStore, _ := newTestServer(orch)

	body := `{"input":"I miss you","soulName":"Mom","traits":"my loving mother","userId":"u1","save":true}`
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/soulcast/converse", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if orch.lastRequest.Persona == nil || orch.lastRequest.Persona.Name != "Mom" {
		t.Fatalf("Persona = %+v, want Mom", orch.lastRequest.Persona)
	}

	sessions, _ := vaultStore.List(context.Background(), "u1", vault.Filter{Type: vault.TypeSoulcast})
	if len(sessions) != 1 {
		t.Fatalf("vault has %d soulcast sessions, want 1", len(sessions))
	}
	if sessions[0].Relationship != "mother" {
		t.Errorf("Relationship = %q, want derived mother", sessions[0].Relationship)
	}
}

func cloneForm(t *testing.T, name string, sampleSize int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		mw.WriteField("name", name)
	}
	fw, err := mw.CreateFormFile("sample", "voice_sample.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(bytes.Repeat([]byte("a"), sampleSize))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestVoiceClone(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})

	body, contentType := cloneForm(t, "Mom", 200*1024)
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/clone", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["voiceId"] != "v1" {
		t.Fatalf("voiceId = %q", out["voiceId"])
	}
}

func TestVoiceCloneRejectsSmallSample(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})

	body, contentType := cloneForm(t, "Mom", 10*1024)
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/clone", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var out struct {
		Issues          []string `json:"issues"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Issues) == 0 || len(out.Recommendations) != len(out.Issues) {
		t.Fatalf("body = %s, want issues with paired recommendations", rec.Body.String())
	}
}

func TestCreateReplicaRejectsShortSmallVideo(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	body := `{"faceVideoUrl":"https://cdn.example/f.mp4","replicaName":"Mom","sizeBytes":1000,"durationSeconds":3}`
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/replica", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var out struct {
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Issues) != 2 {
		t.Fatalf("issues = %v, want both violations reported", out.Issues)
	}
}

func TestCreateReplicaMissingFields(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/replica", strings.NewReader(`{"replicaName":"Mom"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVaultEndpoints(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	router := s.Router()

	save := `{"type":"mirror","input":"hi","response":"a\nb\nc"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/vault/sessions?userId=u1", strings.NewReader(save)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}
	var saved vault.Session
	json.Unmarshal(rec.Body.Bytes(), &saved)
	if saved.ID == "" {
		t.Fatalf("saved session has no id")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/vault/sessions?userId=u1&type=mirror", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Sessions []vault.Session `json:"sessions"`
	}
	json.Unmarshal(rec.Body.Bytes(), &listed)
	if len(listed.Sessions) != 1 {
		t.Fatalf("listed %d sessions, want 1", len(listed.Sessions))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/vault/sessions/"+saved.ID+"?userId=u1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/vault/sessions/"+saved.ID+"?userId=u1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestVaultListRejectsBadType(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/vault/sessions?type=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetMedia(t *testing.T) {
	s, _, mediaStore := newTestServer(&stubOrchestrator{})
	mediaStore.Put(context.Background(), media.Blob{
		Key:         "tavus-audio/a.mp3",
		ContentType: "audio/mpeg",
		Data:        []byte("mpeg"),
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/tavus-audio/a.mp3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "mpeg" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/missing.mp3", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing media status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPipelineWS(t *testing.T) {
	orch := &stubOrchestrator{result: pipeline.Result{AIReply: "a\nb\nc", VideoURL: "https://cdn.example/v.mp4"}}
	s, _, _ := newTestServer(orch)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/pipeline/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	run := `{"type":"run","mode":"mirror","input":"hello"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(run)); err != nil {
		t.Fatalf("write: %v", err)
	}

	sawProgress := false
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch msg["type"] {
		case "video_progress":
			sawProgress = true
		case "result":
			if !sawProgress {
				t.Errorf("no video_progress message before result")
			}
			result, _ := msg["result"].(map[string]any)
			if result["videoUrl"] != "https://cdn.example/v.mp4" {
				t.Errorf("result videoUrl = %v", result["videoUrl"])
			}
			return
		case "error":
			t.Fatalf("unexpected error message: %v", msg)
		}
	}
}

func TestPipelineWSRejectsEmptyInput(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/pipeline/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"run","input":""}`))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg["type"] != "error" {
		t.Fatalf("message type = %v, want error", msg["type"])
	}
}

var errBoom = errors.New("boom")

func TestCreateReplicaUpstreamFailure(t *testing.T) {
	vaultStore := vault.NewInMemoryStore()
	mediaStore := media.NewInMemoryStore()
	s := New(testConfig(), &stubOrchestrator{}, &stubCloner{}, &stubReplicas{err: errBoom}, nil, vaultStore, mediaStore, nil)

	body := `{"faceVideoUrl":"https://cdn.example/f.mp4","replicaName":"Mom"}`
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/replica", strings.NewReader(body)))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestPipelineStats(t *testing.T) {
	metrics := &observability.Metrics{Stages: observability.NewStageWindow(16)}
	metrics.Stages.Observe(observability.StageReply, 120*time.Millisecond)
	s := New(testConfig(), &stubOrchestrator{}, &stubCloner{}, &stubReplicas{}, nil, vault.NewInMemoryStore(), media.NewInMemoryStore(), metrics)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats/pipeline", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var snap observability.StageSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Stages) != 1 || snap.Stages[0].Stage != observability.StageReply {
		t.Fatalf("Stages = %+v, want one reply stage", snap.Stages)
	}
}

func TestPipelineStatsUnavailableWithoutMetrics(t *testing.T) {
	s, _, _ := newTestServer(&stubOrchestrator{})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats/pipeline", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestVaultUserIDHeader(t *testing.T) {
	s, vaultStore, _ := newTestServer(&stubOrchestrator{})
	if _, err := vaultStore.Save(context.Background(), vault.Session{UserID: "u-7", Type: vault.TypeMirror, Input: "hi"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/vault/sessions", nil)
	req.Header.Set("X-User-ID", "u-7")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var out struct {
		Sessions []vault.Session `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Sessions) != 1 || out.Sessions[0].UserID != "u-7" {
		t.Fatalf("sessions = %+v, want the header-keyed user's session", out.Sessions)
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"go-stepseq/clock"
	"go-stepseq/scale"
	"go-stepseq/sequencer"
)

func newTestSequencer(t *testing.T) *sequencer.Sequencer {
	t.Helper()
	c := clock.NewManual()
	seq, err := sequencer.New(c, []sequencer.Voice{{Name: "a"}, {Name: "b"}}, scale.MustParse("C", "Minor", scale.DefaultOctave), sequencer.Options{Timers: c})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(seq.Close)
	return seq
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"state", http.MethodGet, "/api/v1/state", "", http.StatusOK},
		{"modes", http.MethodGet, "/api/v1/modes", "", http.StatusOK},
		{"tempo", http.MethodPut, "/api/v1/tempo", `{"bpm": 90}`, http.StatusOK},
		{"tempo zero", http.MethodPut, "/api/v1/tempo", `{"bpm": 0}`, http.StatusBadRequest},
		{"tempo negative", http.MethodPut, "/api/v1/tempo", `{"bpm": -5}`, http.StatusBadRequest},
		{"tempo garbage", http.MethodPut, "/api/v1/tempo", `{"bpm": "fast"}`, http.StatusBadRequest},
		{"steps", http.MethodPut, "/api/v1/steps", `{"steps": 8}`, http.StatusOK},
		{"steps too many", http.MethodPut, "/api/v1/steps", `{"steps": 17}`, http.StatusBadRequest},
		{"toggle gate", http.MethodPost, "/api/v1/grid/1/3/toggle", "", http.StatusOK},
		{"toggle bad voice", http.MethodPost, "/api/v1/grid/x/3/toggle", "", http.StatusBadRequest},
		{"toggle out of range", http.MethodPost, "/api/v1/grid/5/3/toggle", "", http.StatusBadRequest},
		{"key", http.MethodPut, "/api/v1/key", `{"tonic": "D", "mode": "Dorian"}`, http.StatusOK},
		{"key bad mode", http.MethodPut, "/api/v1/key", `{"tonic": "D", "mode": "Nope"}`, http.StatusBadRequest},
		{"key missing tonic", http.MethodPut, "/api/v1/key", `{"mode": "Major"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(newTestSequencer(t))
			w := do(r, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestEditsReachSequencer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seq := newTestSequencer(t)
	r := NewRouter(seq)

	do(r, http.MethodPut, "/api/v1/tempo", `{"bpm": 150}`)
	do(r, http.MethodPut, "/api/v1/steps", `{"steps": 12}`)
	do(r, http.MethodPost, "/api/v1/grid/0/11/toggle", "")
	do(r, http.MethodPut, "/api/v1/key", `{"tonic": "Eb", "mode": "Lydian", "octave": 3}`)

	w := do(r, http.MethodGet, "/api/v1/state", "")
	var st sequencer.State
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Tempo != 150 || st.StepCount != 12 {
		t.Errorf("tempo/steps = %v/%d", st.Tempo, st.StepCount)
	}
	if !st.Voices[0].Gates[11] {
		t.Error("gate 0/11 not set")
	}
	if st.Key != "D# Lydian" {
		t.Errorf("key = %q", st.Key)
	}
}

func TestTransportToggle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seq := newTestSequencer(t)
	r := NewRouter(seq)

	w := do(r, http.MethodPost, "/api/v1/transport/toggle", "")
	var resp struct {
		Playing bool `json:"playing"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Playing || !seq.Playing() {
		t.Error("toggle did not start playback")
	}

	do(r, http.MethodPost, "/api/v1/transport/toggle", "")
	if seq.Playing() {
		t.Error("second toggle did not stop playback")
	}
}

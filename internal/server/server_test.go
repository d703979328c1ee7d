package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/timvw/joke-bot/internal/gateway"
	"github.com/timvw/joke-bot/internal/jokes"
	"github.com/timvw/joke-bot/internal/session"
)

type fakeGenerator struct {
	mu   sync.Mutex
	reqs []jokes.Request
	fn   func(jokes.Request) (jokes.Result, error)
}

func (f *fakeGenerator) Generate(_ context.Context, req jokes.Request) (jokes.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(req)
	}
	return jokes.Result{
		Joke:      jokes.Joke{Text: "Why do Java devs wear glasses?\nBecause they can't **C#**.", Category: req.Category, Language: req.Language},
		Outcome:   jokes.OutcomeApproved,
		Critiques: 1,
	}, nil
}

func validateKey(_ context.Context, key string) error {
	switch key {
	case "gsk_good":
		return nil
	case "gsk_down":
		return fmt.Errorf("groq API call failed: %w", gateway.ErrTransient)
	default:
		return fmt.Errorf("groq API call failed: %w", gateway.ErrAuthentication)
	}
}

func newTestServer(t *testing.T, gen *fakeGenerator) *httptest.Server {
	t.Helper()
	srv, err := New(Config{
		Generator:         gen,
		Validate:          validateKey,
		Sessions:          session.NewStore(0),
		WriterTemperature: 0.8,
		CriticTemperature: 0.3,
		Provider:          "groq",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// startedSession creates a session, validates the good key and starts the bot.
func startedSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	var sess session.Session
	if code := call(t, ts, "POST", "/api/sessions", nil, &sess); code != http.StatusCreated {
		t.Fatalf("create session: status %d", code)
	}
	var v validateResp
	if code := call(t, ts, "POST", "/api/sessions/"+sess.ID+"/validate", validateReq{APIKey: "gsk_good"}, &v); code != http.StatusOK || !v.Valid {
		t.Fatalf("validate: status %d, %+v", code, v)
	}
	if code := call(t, ts, "POST", "/api/sessions/"+sess.ID+"/start", nil, &sess); code != http.StatusOK {
		t.Fatalf("start: status %d", code)
	}
	return sess.ID
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	for _, want := range []string{
		`<option value="dad developer">👨‍💻 Dad Developer</option>`,
		`<option value="German">German</option>`,
		`value="0.8"`,
		`value="0.3"`,
		"powered by groq",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})
	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})
	var got catalogResp
	if code := call(t, ts, "GET", "/api/categories", nil, &got); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(got.Categories) != 15 || len(got.Languages) != 5 {
		t.Fatalf("got %d categories, %d languages", len(got.Categories), len(got.Languages))
	}
	if got.Categories[3].Name != "bug whisperer" || got.Categories[3].Label != "🐛 Bug Whisperer" {
		t.Errorf("category[3] = %+v", got.Categories[3])
	}
}

func TestValidate(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})
	var sess session.Session
	call(t, ts, "POST", "/api/sessions", nil, &sess)
	path := "/api/sessions/" + sess.ID + "/validate"

	tests := []struct {
		name      string
		key       string
		wantCode  int
		wantValid bool
	}{
		{"empty key", "   ", http.StatusBadRequest, false},
		{"rejected key", "gsk_bad", http.StatusOK, false},
		{"provider down", "gsk_down", http.StatusBadGateway, false},
		{"good key", "gsk_good", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp validateResp
			code := call(t, ts, "POST", path, validateReq{APIKey: tt.key}, &resp)
			if code != tt.wantCode {
				t.Fatalf("status %d, want %d", code, tt.wantCode)
			}
			if resp.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", resp.Valid, tt.wantValid)
			}
			if code == http.StatusOK && resp.Session.KeyValid != tt.wantValid {
				t.Errorf("session key_valid = %v", resp.Session.KeyValid)
			}
		})
	}
}

func TestValidateSessionExpiresDuringCheck(t *testing.T) {
	for _, key := range []string{"gsk_good", "gsk_bad"} {
		t.Run(key, func(t *testing.T) {
			store := session.NewStore(0)
			sess := store.Create()
			srv, err := New(Config{
				Generator: &fakeGenerator{},
				Validate: func(ctx context.Context, apiKey string) error {
					store.Delete(sess.ID)
					return validateKey(ctx, apiKey)
				},
				Sessions: store,
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			ts := httptest.NewServer(srv.Routes())
			defer ts.Close()

			var resp errorResp
			code := call(t, ts, "POST", "/api/sessions/"+sess.ID+"/validate", validateReq{APIKey: key}, &resp)
			if code != http.StatusNotFound {
				t.Fatalf("status %d, want %d", code, http.StatusNotFound)
			}
			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	store := session.NewStore(0)
	sess := store.Create()
	if _, err := store.SetKey(sess.ID, "gsk_good", true); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Start(sess.ID); err != nil {
		t.Fatal(err)
	}
	gen := &fakeGenerator{}
	srv, err := New(Config{Generator: gen, Validate: validateKey, Sessions: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := srv.Routes()

	body, _ := json.Marshal(jokeReq{Category: strings.Repeat("x", maxBodyBytes+1)})
	for _, path := range []string{"/api/sessions/" + sess.ID + "/jokes", "/api/sessions/" + sess.ID + "/validate"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s: status %d, want %d", path, rec.Code, http.StatusBadRequest)
		}
	}
	if len(gen.reqs) != 0 {
		t.Errorf("generator called %d times, want 0", len(gen.reqs))
	}
}

func TestStartRequiresValidatedKey(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})
	var sess session.Session
	call(t, ts, "POST", "/api/sessions", nil, &sess)

	var e errorResp
	if code := call(t, ts, "POST", "/api/sessions/"+sess.ID+"/start", nil, &e); code != http.StatusConflict {
		t.Errorf("start without key: status %d, want 409", code)
	}
	if code := call(t, ts, "POST", "/api/sessions/"+sess.ID+"/jokes", jokeReq{}, &e); code != http.StatusConflict {
		t.Errorf("joke before start: status %d, want 409", code)
	}
}

func TestGenerateJoke(t *testing.T) {
	gen := &fakeGenerator{}
	ts := newTestServer(t, gen)
	id := startedSession(t, ts)

	writer := 0.6
	var resp jokeResp
	code := call(t, ts, "POST", "/api/sessions/"+id+"/jokes", jokeReq{
		Category:          "dad developer",
		Language:          "Hindi",
		WriterTemperature: &writer,
	}, &resp)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}

	if resp.Joke.Category != "dad developer" || resp.Joke.Language != "Hindi" {
		t.Errorf("joke = %+v", resp.Joke)
	}
	if resp.Joke.Outcome != jokes.OutcomeApproved || resp.Joke.Critiques != 1 {
		t.Errorf("outcome = %s/%d", resp.Joke.Outcome, resp.Joke.Critiques)
	}
	if !strings.Contains(resp.HTML, "<strong>C#</strong>") || !strings.Contains(resp.HTML, "<br>") {
		t.Errorf("html = %q", resp.HTML)
	}
	if resp.Session.JokeCount != 1 {
		t.Errorf("joke_count = %d, want 1", resp.Session.JokeCount)
	}

	req := gen.reqs[0]
	if req.APIKey != "gsk_good" {
		t.Errorf("APIKey = %q, want session key", req.APIKey)
	}
	if req.WriterTemperature != 0.6 || req.CriticTemperature != 0.3 {
		t.Errorf("temperatures = %v/%v, want 0.6/0.3", req.WriterTemperature, req.CriticTemperature)
	}

	call(t, ts, "POST", "/api/sessions/"+id+"/jokes", jokeReq{}, &resp)
	if resp.Session.JokeCount != 2 {
		t.Errorf("joke_count = %d, want 2", resp.Session.JokeCount)
	}
}

func TestGenerateJokeErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "invalid temperature",
			err:      &jokes.ConfigurationError{Field: "writer_temperature", Reason: "2 is outside [0, 1]"},
			wantCode: http.StatusBadRequest,
			wantMsg:  "writer_temperature",
		},
		{
			name:     "gateway auth failure",
			err:      &jokes.GenerationFailed{Stage: jokes.StageWriting, Attempt: 1, Err: gateway.ErrAuthentication},
			wantCode: http.StatusBadGateway,
			wantMsg:  "API credits",
		},
		{
			name:     "timeout",
			err:      &jokes.GenerationFailed{Stage: jokes.StageCritiquing, Attempt: 2, Err: context.DeadlineExceeded},
			wantCode: http.StatusGatewayTimeout,
			wantMsg:  "timed out",
		},
		{
			name:     "unexpected",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{fn: func(jokes.Request) (jokes.Result, error) { return jokes.Result{}, tt.err }}
			ts := newTestServer(t, gen)
			id := startedSession(t, ts)

			var e errorResp
			code := call(t, ts, "POST", "/api/sessions/"+id+"/jokes", jokeReq{}, &e)
			if code != tt.wantCode {
				t.Errorf("status %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(e.Error, tt.wantMsg) {
				t.Errorf("error %q does not contain %q", e.Error, tt.wantMsg)
			}

			var sess session.Session
			call(t, ts, "GET", "/api/sessions/"+id, nil, &sess)
			if sess.JokeCount != 0 {
				t.Errorf("failed generation must not count, joke_count = %d", sess.JokeCount)
			}
		})
	}
}

func TestResetAndDelete(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})
	id := startedSession(t, ts)
	call(t, ts, "POST", "/api/sessions/"+id+"/jokes", jokeReq{}, nil)

	var sess session.Session
	if code := call(t, ts, "POST", "/api/sessions/"+id+"/reset", nil, &sess); code != http.StatusOK {
		t.Fatalf("reset: status %d", code)
	}
	if sess.Started || sess.JokeCount != 0 || sess.LatestJoke != nil || !sess.KeyValid {
		t.Errorf("after reset: %+v", sess)
	}

	if code := call(t, ts, "DELETE", "/api/sessions/"+id, nil, nil); code != http.StatusNoContent {
		t.Errorf("delete: status %d", code)
	}
	var e errorResp
	if code := call(t, ts, "GET", "/api/sessions/"+id, nil, &e); code != http.StatusNotFound {
		t.Errorf("get after delete: status %d", code)
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{})
	var e errorResp
	for _, p := range []string{"/validate", "/start", "/reset", "/jokes"} {
		if code := call(t, ts, "POST", "/api/sessions/nope"+p, validateReq{APIKey: "gsk_good"}, &e); code != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", p, code)
		}
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Config{Validate: validateKey}); err == nil {
		t.Error("expected error without generator")
	}
	if _, err := New(Config{Generator: &fakeGenerator{}}); err == nil {
		t.Error("expected error without validator")
	}
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	got := renderMarkdown(`<script>alert(1)</script> hi`)
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML leaked: %q", got)
	}
}

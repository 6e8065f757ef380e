package action

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/seerai/krampus-auth/auth"
	"github.com/seerai/krampus-auth/observe"
	"github.com/seerai/krampus-auth/secret"
)

type fixture struct {
	out     bytes.Buffer
	envFile string
	setenv  map[string]string
	deps    Deps
}

func newFixture(t *testing.T, client *http.Client) *fixture {
	t.Helper()
	f := &fixture{
		envFile: newEnvFile(t),
		setenv:  map[string]string{},
	}
	f.deps = Deps{
		Commands: NewCommands(&f.out, f.envFile, WithSetenv(func(k, v string) error {
			f.setenv[k] = v
			return nil
		})),
		HTTPClient: client,
	}
	return f
}

func (f *fixture) lines() []string {
	return strings.Split(strings.TrimSuffix(f.out.String(), "\n"), "\n")
}

func (f *fixture) errorLines() []string {
	var out []string
	for _, l := range f.lines() {
		if strings.HasPrefix(l, "::error::") {
			out = append(out, l)
		}
	}
	return out
}

func tokenServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/krampus/api/v1/auth/token" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRun_Success(t *testing.T) {
	srv, calls := tokenServer(t, http.StatusOK, `{"access_token":"t"}`)
	f := newFixture(t, srv.Client())

	code := Run(context.Background(), Inputs{APIKey: "good-key", Host: srv.URL}, f.deps)
	if code != ExitSuccess {
		t.Fatalf("Run() = %d, want %d; output:\n%s", code, ExitSuccess, f.out.String())
	}
	if *calls != 1 {
		t.Errorf("token requests = %d, want 1", *calls)
	}

	exported := parseEnvFile(t, f.envFile)
	if exported[auth.EnvAPIKey] != "good-key" {
		t.Errorf("%s = %q", auth.EnvAPIKey, exported[auth.EnvAPIKey])
	}
	if exported[auth.EnvHost] != srv.URL {
		t.Errorf("%s = %q, want %q", auth.EnvHost, exported[auth.EnvHost], srv.URL)
	}
	if f.setenv[auth.EnvAPIKey] != "good-key" || f.setenv[auth.EnvHost] != srv.URL {
		t.Errorf("process env = %v", f.setenv)
	}

	lines := f.lines()
	if lines[0] != "::add-mask::good-key" {
		t.Errorf("API key must be masked first, got %q", lines[0])
	}
	if lines[1] != "::debug::Authenticating with Krampus at "+srv.URL+"/krampus" {
		t.Errorf("diagnostic = %q", lines[1])
	}
	if len(f.errorLines()) != 0 {
		t.Errorf("unexpected errors: %v", f.errorLines())
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"invalid key", http.StatusInternalServerError, "denied", "::error::Invalid API key"},
		{"not found", http.StatusNotFound, "", "::error::Invalid Krampus host %s/krampus: Not Found"},
		{"unavailable", http.StatusServiceUnavailable, "", "::error::Invalid Krampus host %s/krampus: Service Unavailable"},
		{"other status", http.StatusTeapot, "", "::error::Failed to authenticate with Krampus: I'm a teapot"},
		{"no token", http.StatusOK, `{}`, "::error::Did not receive a token from Krampus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := tokenServer(t, tt.status, tt.body)
			f := newFixture(t, srv.Client())

			code := Run(context.Background(), Inputs{APIKey: "bad-key", Host: srv.URL}, f.deps)
			if code != ExitFailure {
				t.Fatalf("Run() = %d, want %d", code, ExitFailure)
			}

			errs := f.errorLines()
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error line, got %v", errs)
			}
			want := strings.ReplaceAll(tt.wantErr, "%s", srv.URL)
			if errs[0] != want {
				t.Errorf("error = %q, want %q", errs[0], want)
			}

			data, err := os.ReadFile(f.envFile)
			if err != nil {
				t.Fatal(err)
			}
			if len(data) != 0 {
				t.Errorf("env file must stay untouched on failure, got %q", data)
			}
			if len(f.setenv) != 0 {
				t.Errorf("process env must stay untouched on failure, got %v", f.setenv)
			}
		})
	}
}

func TestRun_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newFixture(t, nil)
	code := Run(context.Background(), Inputs{APIKey: "k", Host: url}, f.deps)
	if code != ExitFailure {
		t.Fatalf("Run() = %d, want %d", code, ExitFailure)
	}
	errs := f.errorLines()
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "::error::Invalid Krampus host "+url+"/krampus") {
		t.Errorf("errors = %v", errs)
	}
}

func TestRun_PlainKeyIsVerbatim(t *testing.T) {
	var gotKey string
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotKey = r.Header.Get(auth.APIKeyHeader)
		_, _ = w.Write([]byte(`{"access_token":"t"}`))
	}))
	defer srv.Close()

	f := newFixture(t, srv.Client())
	code := Run(context.Background(), Inputs{APIKey: "secretref:not-a-provider", Host: srv.URL}, f.deps)
	if code != ExitSuccess {
		t.Fatalf("Run() = %d; output:\n%s", code, f.out.String())
	}
	if calls != 1 {
		t.Errorf("token requests = %d, want 1", calls)
	}
	if gotKey != "secretref:not-a-provider" {
		t.Errorf("Api-Key = %q, want the input unchanged", gotKey)
	}
	if parseEnvFile(t, f.envFile)[auth.EnvAPIKey] != "secretref:not-a-provider" {
		t.Error("exported key should be the input unchanged")
	}
}

func TestRun_PlainHostIsVerbatim(t *testing.T) {
	t.Setenv("KRAMPUS_TEST_HOST", "https://elsewhere.invalid")

	var seen []string
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req.URL.String())
		return nil, errors.New("no route")
	})}

	f := newFixture(t, client)
	code := Run(context.Background(), Inputs{APIKey: "k", Host: "secretref:env:KRAMPUS_TEST_HOST"}, f.deps)
	if code != ExitFailure {
		t.Fatalf("Run() = %d, want %d", code, ExitFailure)
	}
	if len(seen) != 1 || strings.Contains(seen[0], "elsewhere.invalid") {
		t.Fatalf("requests = %v, want one to the literal host", seen)
	}
	errs := f.errorLines()
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "::error::Invalid Krampus host secretref:env:KRAMPUS_TEST_HOST/krampus") {
		t.Errorf("errors = %v", errs)
	}
}

func TestRun_ResolvesRefInputs(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusOK, `{"access_token":"t"}`)
	t.Setenv("KRAMPUS_TEST_KEY", "resolved-key")
	t.Setenv("KRAMPUS_TEST_HOST", srv.URL)

	var gotKey string
	f := newFixture(t, &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotKey = req.Header.Get(auth.APIKeyHeader)
		return srv.Client().Transport.RoundTrip(req)
	})})

	code := Run(context.Background(), Inputs{
		APIKeyRef: "secretref:env:KRAMPUS_TEST_KEY",
		HostRef:   "secretref:env:KRAMPUS_TEST_HOST",
	}, f.deps)
	if code != ExitSuccess {
		t.Fatalf("Run() = %d; output:\n%s", code, f.out.String())
	}
	if gotKey != "resolved-key" {
		t.Errorf("Api-Key = %q, want resolved-key", gotKey)
	}
	exported := parseEnvFile(t, f.envFile)
	if exported[auth.EnvAPIKey] != "resolved-key" || exported[auth.EnvHost] != srv.URL {
		t.Errorf("exports = %v", exported)
	}
	if !strings.Contains(f.out.String(), "::add-mask::resolved-key") {
		t.Error("resolved key must be masked")
	}
}

func TestRun_RefInputErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      Inputs
		wantErr string
	}{
		{
			name:    "unset variable",
			in:      Inputs{APIKeyRef: "secretref:env:KRAMPUS_TEST_UNSET_VAR"},
			wantErr: "::error::Invalid secret reference input: ",
		},
		{
			name:    "not a reference",
			in:      Inputs{HostRef: "https://example.com"},
			wantErr: "::error::Invalid secret reference input: ",
		},
		{
			name:    "key and key ref",
			in:      Inputs{APIKey: "k", APIKeyRef: "secretref:env:X"},
			wantErr: "::error::Invalid api-key-ref input: set only one of api-key and api-key-ref",
		},
		{
			name:    "host and host ref",
			in:      Inputs{APIKey: "k", Host: "https://a", HostRef: "secretref:env:X"},
			wantErr: "::error::Invalid geodesic-host-ref input: set only one of geodesic-host and geodesic-host-ref",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			}))
			defer srv.Close()

			f := newFixture(t, srv.Client())
			f.deps.Resolver = secret.NewResolver(true, secret.NewEnvProvider())

			if code := Run(context.Background(), tt.in, f.deps); code != ExitFailure {
				t.Fatalf("Run() = %d, want %d", code, ExitFailure)
			}
			errs := f.errorLines()
			if len(errs) != 1 || !strings.HasPrefix(errs[0], tt.wantErr) {
				t.Errorf("errors = %v, want prefix %q", errs, tt.wantErr)
			}
			if calls != 0 {
				t.Error("no request should be made when an input is rejected")
			}
		})
	}
}

func TestRun_UsesLoggerAndMiddleware(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusOK, `{"access_token":"t"}`)
	f := newFixture(t, srv.Client())

	var logs bytes.Buffer
	f.deps.Logger = observe.NewLoggerWithWriter("debug", &logs)
	f.deps.Middleware = observe.NewMiddleware(observe.NewNoopTracer(), observe.NewNoopMetrics(), f.deps.Logger)

	if code := Run(context.Background(), Inputs{APIKey: "good-key", Host: srv.URL}, f.deps); code != ExitSuccess {
		t.Fatalf("Run() = %d", code)
	}
	out := logs.String()
	if !strings.Contains(out, "Successfully authenticated with Krampus") {
		t.Errorf("expected auth diagnostics in custom logger, got %s", out)
	}
	if !strings.Contains(out, "operation completed") {
		t.Errorf("expected middleware entry, got %s", out)
	}
	if strings.Contains(f.out.String(), "::debug::") {
		t.Error("diagnostics should go to the custom logger only")
	}
}

func TestRun_EnvFileMissing(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusOK, `{"access_token":"t"}`)
	f := newFixture(t, srv.Client())
	f.deps.Commands = NewCommands(&f.out, f.envFile+".absent", WithSetenv(discardSetenv))

	if code := Run(context.Background(), Inputs{APIKey: "k", Host: srv.URL}, f.deps); code != ExitFailure {
		t.Fatalf("Run() = %d, want %d", code, ExitFailure)
	}
	if len(f.errorLines()) != 1 {
		t.Errorf("errors = %v", f.errorLines())
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type panicTransport struct{}

func (panicTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("boom")
}

func TestRun_RecoversPanic(t *testing.T) {
	f := newFixture(t, &http.Client{Transport: panicTransport{}})

	code := Run(context.Background(), Inputs{APIKey: "k", Host: "https://example.com"}, f.deps)
	if code != ExitFailure {
		t.Fatalf("Run() = %d, want %d", code, ExitFailure)
	}
	errs := f.errorLines()
	if len(errs) != 1 || errs[0] != "::error::Failed to authenticate with Krampus: boom" {
		t.Errorf("errors = %v", errs)
	}
}

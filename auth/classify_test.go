package auth

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		resp      Response
		wantKind  ErrorKind
		wantToken string
		wantMsg   string
	}{
		{
			name:      "200 with token",
			resp:      Response{StatusCode: 200, Status: "OK", Body: []byte(`{"access_token":"t"}`)},
			wantToken: "t",
		},
		{
			name:      "201 with token and extra fields",
			resp:      Response{StatusCode: 201, Status: "Created", Body: []byte(`{"access_token":"t","expires_in":3600}`)},
			wantToken: "t",
		},
		{
			name: "token present but not a string",
			resp: Response{StatusCode: 200, Status: "OK", Body: []byte(`{"access_token":null}`)},
		},
		{
			name:     "200 without token",
			resp:     Response{StatusCode: 200, Status: "OK", Body: []byte(`{"token":"t"}`)},
			wantKind: KindMissingToken,
			wantMsg:  "Did not receive a token from Krampus",
		},
		{
			name:     "hyphenated key is not accepted",
			resp:     Response{StatusCode: 200, Status: "OK", Body: []byte(`{"access-token":"t"}`)},
			wantKind: KindMissingToken,
		},
		{
			name:     "200 with invalid json",
			resp:     Response{StatusCode: 200, Status: "OK", Body: []byte(`not json`)},
			wantKind: KindUnexpectedService,
			wantMsg:  "Failed to authenticate with Krampus: malformed response",
		},
		{
			name:     "200 with empty body",
			resp:     Response{StatusCode: 200, Status: "OK"},
			wantKind: KindUnexpectedService,
		},
		{
			name:     "200 with json array",
			resp:     Response{StatusCode: 200, Status: "OK", Body: []byte(`["access_token"]`)},
			wantKind: KindUnexpectedService,
		},
		{
			name:     "200 with json null",
			resp:     Response{StatusCode: 200, Status: "OK", Body: []byte(`null`)},
			wantKind: KindUnexpectedService,
			wantMsg:  "Failed to authenticate with Krampus: malformed response",
		},
		{
			name:     "200 with json string",
			resp:     Response{StatusCode: 200, Status: "OK", Body: []byte(`"access_token"`)},
			wantKind: KindUnexpectedService,
		},
		{
			name:     "404",
			resp:     Response{StatusCode: 404, Status: "Not Found"},
			wantKind: KindInvalidHost,
			wantMsg:  "Invalid Krampus host: Not Found",
		},
		{
			name:     "503",
			resp:     Response{StatusCode: 503, Status: "Service Unavailable"},
			wantKind: KindInvalidHost,
		},
		{
			name:     "500",
			resp:     Response{StatusCode: 500, Status: "Internal Server Error", Body: []byte("bad key")},
			wantKind: KindInvalidCredential,
			wantMsg:  "Invalid API key",
		},
		{
			name:     "401 is unclassified",
			resp:     Response{StatusCode: 401, Status: "Unauthorized"},
			wantKind: KindUnexpectedService,
			wantMsg:  "Failed to authenticate with Krampus: Unauthorized",
		},
		{
			name:     "redirect is unclassified",
			resp:     Response{StatusCode: 302, Status: "Found"},
			wantKind: KindUnexpectedService,
		},
		{
			name:     "status text is kept verbatim",
			resp:     Response{StatusCode: 418, Status: "Short And Stout"},
			wantKind: KindUnexpectedService,
			wantMsg:  "Failed to authenticate with Krampus: Short And Stout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.resp)

			if tt.wantKind == 0 {
				if err != nil {
					t.Fatalf("Classify() error = %v", err)
				}
				if got.AccessToken != tt.wantToken {
					t.Errorf("AccessToken = %q, want %q", got.AccessToken, tt.wantToken)
				}
				if _, ok := got.Claims[AccessTokenField]; !ok {
					t.Errorf("Claims missing %q", AccessTokenField)
				}
				return
			}

			if got != nil {
				t.Errorf("Classify() = %+v, want nil on failure", got)
			}
			var authErr *Error
			if !errors.As(err, &authErr) {
				t.Fatalf("Classify() error = %v, want *Error", err)
			}
			if authErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", authErr.Kind, tt.wantKind)
			}
			if authErr.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %d, want %d", authErr.StatusCode, tt.resp.StatusCode)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	responses := []Response{
		{StatusCode: 200, Status: "OK", Body: []byte(`{"access_token":"t"}`)},
		{StatusCode: 200, Status: "OK", Body: []byte(`{}`)},
		{StatusCode: 500, Status: "Internal Server Error"},
		{StatusCode: 503, Status: "Service Unavailable"},
		{StatusCode: 429, Status: "Too Many Requests"},
	}

	for _, resp := range responses {
		_, first := Classify(resp)
		for i := 0; i < 5; i++ {
			_, err := Classify(resp)
			if KindOf(err) != KindOf(first) {
				t.Fatalf("status %d: kind changed from %v to %v", resp.StatusCode, KindOf(first), KindOf(err))
			}
		}
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		want string
	}{
		{
			name: "strips code",
			resp: &http.Response{StatusCode: 404, Status: "404 Not Found"},
			want: "Not Found",
		},
		{
			name: "custom reason",
			resp: &http.Response{StatusCode: 500, Status: "500 Key Rejected"},
			want: "Key Rejected",
		},
		{
			name: "no reason falls back to canonical text",
			resp: &http.Response{StatusCode: 503, Status: "503"},
			want: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusText(tt.resp); got != tt.want {
				t.Errorf("statusText() = %q, want %q", got, tt.want)
			}
		})
	}
}

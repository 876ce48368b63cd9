package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"treasury/internal/authz"
	"treasury/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func setupImporterRouter(keyHash string) *gin.Engine {
	r := gin.New()
	r.Use(ImporterAuth(keyHash))
	r.POST("/test", func(c *gin.Context) {
		actor := c.MustGet(ActorKey).(authz.Actor)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "actor": actor.ProfileID})
	})
	return r
}

func doRequest(r *gin.Engine, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", http.NoBody)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	body := parseBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	if got, _ := errObj["code"].(string); got != code {
		t.Errorf("error code = %q, want %q", got, code)
	}
}

func TestImporterAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-importer-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}

	tests := []struct {
		name          string
		configured    string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{
			name:       "valid_api_key",
			configured: string(hash),
			requestKey: "secret-importer-key",
			wantStatus: http.StatusOK,
		},
		{
			name:          "invalid_api_key",
			configured:    string(hash),
			requestKey:    "wrong-key",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "missing_api_key",
			configured:    string(hash),
			requestKey:    "",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "partial_match_rejected",
			configured:    string(hash),
			requestKey:    "secret-importer",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "not_configured",
			configured:    "",
			requestKey:    "any-key",
			wantStatus:    http.StatusServiceUnavailable,
			wantErrorCode: "IMPORTER_NOT_CONFIGURED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(setupImporterRouter(tt.configured), tt.requestKey)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErrorCode != "" {
				assertErrorCode(t, rec, tt.wantErrorCode)
			}
			if tt.wantStatus == http.StatusOK {
				body := parseBody(t, rec)
				if got, _ := body["actor"].(string); got != authz.SystemProfileID {
					t.Errorf("expected system actor, got %q", got)
				}
			}
		})
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"treasury/internal/logger"
	"treasury/internal/middleware"
	"treasury/internal/models"
	"treasury/internal/services"
	"treasury/internal/testutil"
	"treasury/internal/validator"
)

const (
	testSecret    = "test-secret"
	testIssuer    = "treasury-test"
	testImportKey = "importer-key"
)

// testApp holds the full application stack for router tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp builds the router over an isolated in-memory SQLite database,
// with the permission table seeded the way the API server seeds it.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	ctx := context.Background()
	permissions := services.NewPermissionService(db)
	if err := permissions.Seed(ctx, map[models.Role]models.Scope{models.RoleTreasurer: models.ScopeAll}); err != nil {
		t.Fatalf("failed to seed permissions: %v", err)
	}
	policy, err := permissions.LoadPolicy(ctx)
	if err != nil {
		t.Fatalf("failed to load policy: %v", err)
	}

	keyHash, err := bcrypt.GenerateFromPassword([]byte(testImportKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash importer key: %v", err)
	}

	router, err := NewRouter(Config{
		Env:                "test",
		JWTSecret:          testSecret,
		JWTIssuer:          testIssuer,
		ImporterAPIKeyHash: string(keyHash),
		CORSAllowedOrigins: []string{"*"},
		RateLimit:          "10000-M",
	}, NewServices(db, permissions, policy))
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	return &testApp{DB: db, Router: router}
}

// login creates a profile with role and returns a bearer token for it.
func (app *testApp) login(t *testing.T, role models.Role, churchID *string) (token string, profile *models.Profile) {
	t.Helper()
	profile = testutil.CreateTestProfile(t, app.DB, role, churchID)
	token, err := middleware.GenerateAccessToken(testSecret, testIssuer, profile.ID, profile.Email, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token, profile
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// importRequest calls the importer endpoint with apiKey.
func (app *testApp) importRequest(body, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/import/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// createFund creates a fund through the API and returns its id.
func (app *testApp) createFund(t *testing.T, token, name string, initial int64) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"name": name, "type": "special", "initial_balance": initial})
	rec := app.request("POST", "/api/v1/funds", string(body), token)
	if rec.Code != 201 {
		t.Fatalf("create fund failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["fund"].(map[string]interface{})["id"].(string)
}

// fundBalance reads a fund's current balance through the API.
func (app *testApp) fundBalance(t *testing.T, token, fundID string) float64 {
	t.Helper()
	rec := app.request("GET", "/api/v1/funds/"+fundID, "", token)
	if rec.Code != 200 {
		t.Fatalf("get fund failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["fund"].(map[string]interface{})["current_balance"].(float64)
}

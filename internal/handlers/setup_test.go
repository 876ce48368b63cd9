package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"treasury/internal/authz"
	"treasury/internal/logger"
	"treasury/internal/middleware"
	"treasury/internal/models"
	"treasury/internal/validator"
)

const (
	testProfileID = "0190a000-0000-7000-8000-000000000001"
	testFundID    = "0190a000-0000-7000-8000-0000000000f1"
	testFund2ID   = "0190a000-0000-7000-8000-0000000000f2"
	testChurchID  = "0190a000-0000-7000-8000-0000000000c1"
	testEventID   = "0190a000-0000-7000-8000-0000000000e1"
	testItemID    = "0190a000-0000-7000-8000-0000000000b1"
	testReportID  = "0190a000-0000-7000-8000-0000000000a1"
	testPostingID = "0190a000-0000-7000-8000-0000000000d1"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
	logger.Init("test")
}

var (
	adminActor     = authz.Actor{ProfileID: testProfileID, Role: models.RoleAdmin}
	treasurerActor = authz.Actor{ProfileID: testProfileID, Role: models.RoleTreasurer}
)

func injectActor(actor authz.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ActorKey, actor)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]any, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

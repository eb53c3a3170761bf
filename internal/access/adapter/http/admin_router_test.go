package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accesshttp "scl90-gate/internal/access/adapter/http"
	"scl90-gate/internal/access/adapter/persistence/memory"
	"scl90-gate/internal/access/adapter/security"
	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/testutil"
	"scl90-gate/internal/access/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockActivityStore struct {
	mock.Mock
}

func (m *mockActivityStore) Append(ctx context.Context, activity *model.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *mockActivityStore) Recent(ctx context.Context, limit int64) ([]*model.Activity, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Activity), args.Error(1)
}

const adminSecret = "admin-secret"

type AdminHTTPTestSuite struct {
	suite.Suite
	app      *fiber.App
	repo     *memory.AccessRepository
	activity *mockActivityStore
	clock    *testutil.Clock
}

func (s *AdminHTTPTestSuite) SetupTest() {
	cfg := testutil.TestConfig()
	s.repo = memory.NewAccessRepository()
	s.activity = new(mockActivityStore)
	s.clock = testutil.NewClock(testutil.BaseTime)

	tokens, err := security.NewAdminTokenService(cfg)
	s.Require().NoError(err)
	admin := usecase.NewAdminUsecase(s.repo, tokens, cfg, usecase.WithClock(s.clock.Now))
	activity := usecase.NewActivityUsecase(s.activity)

	mw := accesshttp.NewAccessMiddleware(admin, cfg.AdminHeader)
	s.app = fiber.New()
	api := s.app.Group("/api/v1")
	accesshttp.NewAdminHTTPHandler(admin, activity, nil).RegisterRoutes(api, mw)
}

func TestAdminHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(AdminHTTPTestSuite))
}

func (s *AdminHTTPTestSuite) do(method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	req := jsonRequest(method, "/api/v1/admin"+path, body)
	req.Header.Set("X-Admin-Password", adminSecret)
	resp, err := s.app.Test(req)
	s.Require().NoError(err)
	return resp, decode(s.T(), resp)
}

func (s *AdminHTTPTestSuite) TestRequiresSecret() {
	for _, secret := range []string{"", "wrong", adminSecret + " "} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/list", nil)
		if secret != "" {
			req.Header.Set("X-Admin-Password", secret)
		}
		resp, err := s.app.Test(req)
		s.Require().NoError(err)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
		s.Equal("Unauthorized", decode(s.T(), resp)["error"])
	}
}

func (s *AdminHTTPTestSuite) TestUnknownPath() {
	resp, body := s.do(http.MethodGet, "/nope", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("Not found", body["error"])

	// the gate runs before routing
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/nope", nil))
	s.Require().NoError(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *AdminHTTPTestSuite) TestCreateAndList() {
	resp, body := s.do(http.MethodPost, "/create", accesshttp.CodeRequest{Code: "FIRST"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	rows := body["data"].([]interface{})
	s.Require().Len(rows, 1)
	row := rows[0].(map[string]interface{})
	s.Equal("FIRST", row["code"])
	s.Equal(true, row["is_active"])
	s.Nil(row["activated_at"])

	s.clock.Advance(time.Minute)
	resp, _ = s.do(http.MethodPost, "/create", accesshttp.CodeRequest{Code: "SECOND"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/list", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	list := body["data"].([]interface{})
	s.Require().Len(list, 2)
	s.Equal("SECOND", list[0].(map[string]interface{})["code"])
	s.Equal("available", list[0].(map[string]interface{})["status"])
}

func (s *AdminHTTPTestSuite) TestCreate_Duplicate() {
	_, _ = s.do(http.MethodPost, "/create", accesshttp.CodeRequest{Code: "DUP"})
	resp, body := s.do(http.MethodPost, "/create", accesshttp.CodeRequest{Code: "DUP"})

	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("duplicate", body["error"])
	s.Equal("DUPLICATE_CODE", body["code"])
}

func (s *AdminHTTPTestSuite) TestCreate_Empty() {
	resp, body := s.do(http.MethodPost, "/create", accesshttp.CodeRequest{Code: " "})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("INVALID_CODE", body["code"])
}

func (s *AdminHTTPTestSuite) TestReset() {
	code := testutil.ActivatedCode("USED", testutil.BaseTime)
	code.IsActive = false
	s.Require().NoError(s.repo.CreateAccessCode(context.Background(), code))

	resp, body := s.do(http.MethodPost, "/reset", accesshttp.CodeRequest{Code: "USED"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, body["success"])

	stored, err := s.repo.FindAccessCodeByCode(context.Background(), "USED")
	s.Require().NoError(err)
	s.True(stored.IsActive)
	s.Nil(stored.ActivatedAt)
}

func (s *AdminHTTPTestSuite) TestReset_Unknown() {
	resp, body := s.do(http.MethodPost, "/reset", accesshttp.CodeRequest{Code: "GONE"})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("CODE_NOT_FOUND", body["code"])
}

func (s *AdminHTTPTestSuite) TestDisableEnable() {
	s.Require().NoError(s.repo.CreateAccessCode(context.Background(), testutil.NewCode("TOGGLE")))

	resp, _ := s.do(http.MethodPost, "/disable", accesshttp.CodeRequest{Code: "TOGGLE"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	stored, _ := s.repo.FindAccessCodeByCode(context.Background(), "TOGGLE")
	s.False(stored.IsActive)

	resp, _ = s.do(http.MethodPost, "/enable", accesshttp.CodeRequest{Code: "TOGGLE"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	stored, _ = s.repo.FindAccessCodeByCode(context.Background(), "TOGGLE")
	s.True(stored.IsActive)
}

func (s *AdminHTTPTestSuite) TestLoginThenBearer() {
	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/v1/admin/login", accesshttp.LoginRequest{Password: adminSecret}))
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	body := decode(s.T(), resp)
	token, _ := body["token"].(string)
	s.Require().NotEmpty(token)
	s.NotEmpty(body["expiresAt"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/list", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.app.Test(req)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/list", nil)
	req.Header.Set("Authorization", "Bearer "+token+"tampered")
	resp, err = s.app.Test(req)
	s.Require().NoError(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *AdminHTTPTestSuite) TestLogin_WrongPassword() {
	resp, err := s.app.Test(jsonRequest(http.MethodPost, "/api/v1/admin/login", accesshttp.LoginRequest{Password: "guess"}))
	s.Require().NoError(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("Unauthorized", decode(s.T(), resp)["error"])
}

func (s *AdminHTTPTestSuite) TestActivity() {
	s.activity.On("Recent", mock.Anything, int64(5)).Return([]*model.Activity{
		{Type: "access_code.created", Code: "ABC", Source: "admin", OccurredAt: testutil.BaseTime},
	}, nil)

	resp, body := s.do(http.MethodGet, "/activity?limit=5", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	data := body["data"].([]interface{})
	s.Require().Len(data, 1)
	s.Equal("ABC", data[0].(map[string]interface{})["code"])
}

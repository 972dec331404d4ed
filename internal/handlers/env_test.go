package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkarpenko/stores_api/internal/config"
	"github.com/mkarpenko/stores_api/internal/hash"
	"github.com/mkarpenko/stores_api/internal/middleware/auth"
	"github.com/mkarpenko/stores_api/internal/models"
	"github.com/mkarpenko/stores_api/internal/revocation"
	"github.com/mkarpenko/stores_api/internal/service/token"
)

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Tokens   *token.Service
	Registry revocation.Registry
	Gate     *auth.Gate
	A        *AuthHandler
	U        *UserHandler
	S        *StoreHandler
	I        *ItemHandler
	TG       *TagHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	tokens := &token.Service{Secret: []byte("test-jwt-secret")}
	registry := &revocation.GormRegistry{DB: db}

	env := &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       db,
		Tokens:   tokens,
		Registry: registry,
		Gate:     &auth.Gate{Tokens: tokens, Registry: registry},
	}
	env.A = &AuthHandler{DB: db, Tokens: tokens, Registry: registry}
	env.U = &UserHandler{DB: db}
	env.S = &StoreHandler{DB: db}
	env.I = &ItemHandler{DB: db}
	env.TG = &TagHandler{DB: db}

	return env
}

func (env *testEnv) doJSONRequest(method, path string, body any, bearer string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(username, password, role string) models.User {
	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := models.User{Username: username, PasswordHash: pwHash, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func (env *testEnv) login(username, password string) (string, string) {
	rec, c := env.doJSONRequest(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.NoError(env.T, env.A.Login(c))
	require.Equal(env.T, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(env.T, resp.AccessToken)
	require.NotEmpty(env.T, resp.RefreshToken)
	return resp.AccessToken, resp.RefreshToken
}

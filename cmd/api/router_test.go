package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/config"
	usermodel "library-backend/internal/domains/user/model"
	"library-backend/pkg/container"
)

type envelope struct {
	Msg  string              `json:"msg"`
	Data jsoniter.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	router *gin.Engine
}

func (c *client) call(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := jsoniter.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(c.t, jsoniter.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (c *client) login(email, password string) string {
	c.t.Helper()

	code, env := c.call(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, code, env.Msg)

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, jsoniter.Unmarshal(env.Data, &res))
	return res.Token
}

func newTestClient(t *testing.T) (*client, *container.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:     config.AppConfig{Environment: "development"},
		Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
		JWT:     config.JWTConfig{Secret: "test-secret-test-secret-test-secret!", ExpHours: 1},
		Lending: config.LendingConfig{Mode: config.LendingModeSaga},
		Auth:    config.AuthConfig{LoginMaxAttempts: 5},
	}
	c, err := container.NewContainer(cfg)
	require.NoError(t, err)

	return &client{t: t, router: SetupRouter(c)}, c
}

func Test_LendingFlow_EndToEnd(t *testing.T) {
	cl, c := newTestClient(t)

	// Bootstrap an admin the way libraryctl does.
	_, err := c.UserService.CreateUser(t.Context(), usermodel.CreateUserRequest{
		Email: "admin@example.com", Username: "admin", Password: "admin-password", IsAdmin: true,
	})
	require.NoError(t, err)
	adminToken := cl.login("admin@example.com", "admin-password")

	code, env := cl.call(http.MethodPost, "/admin/books", adminToken, map[string]string{"title": "Parable of the Sower", "author": "Octavia E. Butler"})
	require.Equal(t, http.StatusCreated, code, env.Msg)
	var book struct {
		ID string `json:"id"`
	}
	require.NoError(t, jsoniter.Unmarshal(env.Data, &book))

	code, _ = cl.call(http.MethodPost, "/admin/books/"+book.ID+"/stock", adminToken, map[string]int{"delta": 1})
	require.Equal(t, http.StatusOK, code)

	code, _ = cl.call(http.MethodPost, "/auth/register", "", map[string]string{"email": "reader@example.com", "username": "reader", "password": "reader-password"})
	require.Equal(t, http.StatusCreated, code)
	readerToken := cl.login("reader@example.com", "reader-password")

	code, env = cl.call(http.MethodPost, "/books/borrow/"+book.ID, readerToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "successfully borrowed book", env.Msg)

	code, env = cl.call(http.MethodPost, "/books/borrow/"+book.ID, readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no stock available", env.Msg)

	code, _ = cl.call(http.MethodDelete, "/admin/books/"+book.ID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = cl.call(http.MethodPost, "/books/return/"+book.ID, readerToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "successfully returned book", env.Msg)

	code, env = cl.call(http.MethodPost, "/books/return/"+book.ID, readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "book not borrowed by user", env.Msg)

	// Readers cannot reach admin routes.
	code, _ = cl.call(http.MethodGet, "/admin/users", readerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// Logout revokes the token for every later request.
	code, _ = cl.call(http.MethodPost, "/auth/logout", readerToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = cl.call(http.MethodPost, "/books/borrow/"+book.ID, readerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "token has been revoked", env.Msg)
}

func Test_Health_MemoryDriver(t *testing.T) {
	cl, _ := newTestClient(t)

	code, env := cl.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", env.Msg)
}

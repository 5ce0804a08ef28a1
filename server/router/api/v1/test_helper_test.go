package v1

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/usetradechat/tradechat/ai"
	"github.com/usetradechat/tradechat/internal/metrics"
	"github.com/usetradechat/tradechat/internal/profile"
	"github.com/usetradechat/tradechat/store"
	"github.com/usetradechat/tradechat/store/db/sqlite"
)

// testEnv bundles a service wired to a throwaway sqlite database with an
// echo instance routing to it.
type testEnv struct {
	echo    *echo.Echo
	store   *store.Store
	service *APIV1Service
}

func newTestEnv(t *testing.T, responder ai.Responder) *testEnv {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    t.TempDir() + "/tradechat_test.db",
		Secret: "test-secret",
	}

	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)

	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	service := NewAPIV1Service(p.Secret, p, st, responder, metrics.New())
	e := echo.New()
	service.RegisterRoutes(e)

	return &testEnv{echo: e, store: st, service: service}
}

// do performs a request against the test server and returns the recorder.
func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(buf))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

// signUp registers a user and returns the session token.
func (env *testEnv) signUp(t *testing.T, username, password string) string {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp signResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// scriptedResponder returns canned replies or a fixed error.
type scriptedResponder struct {
	reply string
	err   error
	calls []*ai.ReplyRequest
}

func (r *scriptedResponder) Reply(_ context.Context, request *ai.ReplyRequest) (string, error) {
	r.calls = append(r.calls, request)
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

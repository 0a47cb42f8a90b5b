package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
)

func TestBearerIdentityResolver(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    int64
		wantErr bool
	}{
		{"valid", "Bearer 42", 42, false},
		{"missing", "", 0, true},
		{"wrong scheme", "Basic 42", 0, true},
		{"not a number", "Bearer alice", 0, true},
		{"zero", "Bearer 0", 0, true},
		{"negative", "Bearer -3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set(AuthHeader, tt.header)
			}

			got, err := BearerIdentityResolver{}.Resolve(c)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrUnauthorized))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuth_RejectsAnonymous(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/v1/balance/USDT", 0, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w, nil)
	assert.Equal(t, errors.ErrUnauthorized.Code, resp.Code)
	s.ledger.AssertNotCalled(t, "GetWallet")
}

func TestTrace_EchoesHeader(t *testing.T) {
	s := newTestServer()

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(TraceIDHeader))

	w = s.do(http.MethodGet, "/health", 0, "")
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), errors.ErrInternal.Code)
}

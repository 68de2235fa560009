package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"mentorlink/internal/utils"
)

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return router
}

func TestJWTAuth_AcceptsBearerToken(t *testing.T) {
	req := require.New(t)
	router := authTestRouter()

	token, err := utils.GenerateUserJWT("user_1", "Alice", "mentor")
	req.NoError(err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "user_1")
}

func TestJWTAuth_AcceptsQueryToken(t *testing.T) {
	req := require.New(t)
	router := authTestRouter()

	token, err := utils.GenerateUserJWT("user_2", "Bob", "mentee")
	req.NoError(err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	router.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "user_2")
}

func TestJWTAuth_RejectsMissingToken(t *testing.T) {
	req := require.New(t)
	router := authTestRouter()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, r)

	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_RejectsGarbageToken(t *testing.T) {
	req := require.New(t)
	router := authTestRouter()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, r)

	req.Equal(http.StatusUnauthorized, w.Code)
}

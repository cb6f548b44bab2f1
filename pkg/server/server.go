package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jakovmitrovski/zkp-club-login/pkg/auth"
	"github.com/jakovmitrovski/zkp-club-login/pkg/store"
	"github.com/jakovmitrovski/zkp-club-login/pkg/zkp"
)

const sessionName = "session"

type LoginService interface {
	Enabled() bool
	Login(ctx context.Context, req auth.Request, session auth.Session) (*auth.Result, error)
}

type HashChecker interface {
	Status(ctx context.Context, hashID string) (*zkp.HashStatus, error)
	IsValid(ctx context.Context, hashID string) bool
}

type AccountReader interface {
	FindByID(ctx context.Context, id int) (*store.Account, error)
}

type ReadinessProbe interface {
	Ready(ctx context.Context) bool
}

type Deps struct {
	Login         LoginService
	Hashes        HashChecker
	Membership    auth.MembershipChecker
	Accounts      AccountReader
	Chain         ReadinessProbe
	SessionSecret []byte
	Log           zerolog.Logger
}

type Server struct {
	deps Deps
	log  zerolog.Logger
}

// New builds the gin engine serving the login API.
func New(deps Deps) *gin.Engine {
	s := &Server{deps: deps, log: deps.Log}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(sessions.Sessions(sessionName, cookie.NewStore(deps.SessionSecret)))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.POST("/oauth/zkp", s.login)
	api.GET("/zkp/status/:hash", s.hashStatus)

	user := api.Group("/user", s.revalidate)
	user.GET("/self", s.self)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func (s *Server) health(c *gin.Context) {
	if !s.deps.Chain.Ready(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "chain unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

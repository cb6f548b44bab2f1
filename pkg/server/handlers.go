package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/jakovmitrovski/zkp-club-login/pkg/auth"
	"github.com/jakovmitrovski/zkp-club-login/pkg/store"
	"github.com/jakovmitrovski/zkp-club-login/pkg/zkp"
)

const accountKey = "account"

type loginRequest struct {
	ZkpCode string `json:"zkpCode" binding:"required"`
	AffCode string `json:"affCode"`
}

type accountView struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	Role          int    `json:"role"`
	Status        int    `json:"status"`
	Group         string `json:"group"`
	WalletAddress string `json:"walletAddress"`
}

func viewOf(a *store.Account) accountView {
	return accountView{
		ID:            a.ID,
		Username:      a.Username,
		DisplayName:   a.DisplayName,
		Role:          a.Role,
		Status:        a.Status,
		Group:         a.Group,
		WalletAddress: a.WalletAddress,
	}
}

type loginResponse struct {
	Success         bool        `json:"success"`
	Message         string      `json:"message"`
	Account         accountView `json:"account"`
	TransactionHash string      `json:"transactionHash"`
}

type denialResponse struct {
	Success bool        `json:"success"`
	Reason  auth.Reason `json:"reason"`
	Message string      `json:"message"`
}

func writeDenial(c *gin.Context, d *auth.Denial) {
	c.JSON(d.Reason.HTTPStatus(), denialResponse{Reason: d.Reason, Message: d.Message})
}

// cookieSession stores the accepted identity in the request's cookie session.
type cookieSession struct {
	sessions.Session
}

func (s cookieSession) Establish(a *store.Account) error {
	s.Set("id", a.ID)
	s.Set("username", a.Username)
	s.Set("role", a.Role)
	s.Set("status", a.Status)
	s.Set("group", a.Group)
	return s.Save()
}

// POST /api/oauth/zkp
func (s *Server) login(c *gin.Context) {
	if !s.deps.Login.Enabled() {
		writeDenial(c, &auth.Denial{Reason: auth.ReasonFeatureDisabled, Message: "ZKP login is not available", Err: zkp.ErrConfigMissing})
		return
	}

	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		writeDenial(c, &auth.Denial{Reason: auth.ReasonInvalidPayload, Message: "invalid request payload", Err: err})
		return
	}

	res, err := s.deps.Login.Login(c.Request.Context(), auth.Request{
		ProofText:     in.ZkpCode,
		AffiliateCode: in.AffCode,
	}, cookieSession{sessions.Default(c)})
	if err != nil {
		var d *auth.Denial
		if !errors.As(err, &d) {
			s.log.Error().Err(err).Msg("login failed without a denial")
			d = &auth.Denial{Reason: auth.ReasonProofInvalid, Err: err}
		}
		writeDenial(c, d)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Success:         true,
		Account:         viewOf(res.Account),
		TransactionHash: res.TransactionHash.Hex(),
	})
}

// GET /api/zkp/status/:hash
func (s *Server) hashStatus(c *gin.Context) {
	hashID := c.Param("hash")
	st, err := s.deps.Hashes.Status(c.Request.Context(), hashID)
	if errors.Is(err, zkp.ErrInvalidHash) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("hash", hashID).Msg("hash status query failed")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "hash status unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"isActive": st.IsActive,
			"deployer": st.Deployer.Hex(),
			"exists":   st.Exists,
			"isValid":  st.Exists && st.IsActive,
		},
	})
}

// revalidate reloads the session account and re-checks its proof hash and
// club membership on chain before letting the request through.
func (s *Server) revalidate(c *gin.Context) {
	session := sessions.Default(c)
	id, ok := session.Get("id").(int)
	if !ok || id == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "not logged in"})
		return
	}

	ctx := c.Request.Context()
	reject := func(why string) {
		s.log.Info().Int("account", id).Str("cause", why).Msg("session revoked")
		session.Clear()
		session.Options(sessions.Options{Path: "/", MaxAge: -1})
		_ = session.Save()
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": why})
	}

	account, err := s.deps.Accounts.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		reject("account not found")
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Int("account", id).Msg("account lookup failed")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "account lookup unavailable"})
		return
	}
	if !account.Enabled() {
		reject("account disabled")
		return
	}
	if !s.deps.Hashes.IsValid(ctx, account.ZkpHash) {
		reject("proof revoked")
		return
	}
	if !s.deps.Membership.IsMember(ctx, account.WalletAddress) {
		reject("club membership lapsed")
		return
	}

	c.Set(accountKey, account)
	c.Next()
}

// GET /api/user/self
func (s *Server) self(c *gin.Context) {
	account := c.MustGet(accountKey).(*store.Account)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": viewOf(account)})
}

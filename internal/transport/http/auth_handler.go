package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"mailgallery/backend/internal/auth"
	jwtpkg "mailgallery/backend/internal/auth/jwt"
	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/gmail"
	"mailgallery/backend/internal/storage"
)

// OAuthProvider Google OAuth 授权码流程
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// ProfileFetcher 用 access token 查询 Gmail 账户邮箱
type ProfileFetcher func(ctx context.Context, accessToken string) (string, error)

// GmailProfile 使用 Gmail API 查询账户邮箱
func GmailProfile(opts ...option.ClientOption) ProfileFetcher {
	return func(ctx context.Context, accessToken string) (string, error) {
		client, err := gmail.NewClient(ctx, accessToken, opts...)
		if err != nil {
			return "", err
		}
		return client.Profile(ctx)
	}
}

// TokenStore 回调与当前用户查询需要的存储操作
type TokenStore interface {
	SaveToken(ctx context.Context, token *domain.GmailToken) error
	LatestTokenUserEmail(ctx context.Context) (string, error)
}

// AuthHandler 处理登录与 Gmail 授权
type AuthHandler struct {
	authService *auth.Service
	oauth       OAuthProvider
	states      *jwtpkg.StateManager
	profile     ProfileFetcher
	tokens      TokenStore
	frontendURL string
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(deps RouterDependencies) *AuthHandler {
	return &AuthHandler{
		authService: deps.AuthService,
		oauth:       deps.OAuth,
		states:      deps.StateManager,
		profile:     deps.Profile,
		tokens:      deps.Tokens,
		frontendURL: deps.Config.Frontend.URL,
		log:         deps.Logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 处理用户登录
// @Summary 用户登录
// @Description 校验邮箱和密码，返回是否已授权 Gmail
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} domain.LoginResult "登录成功"
// @Failure 400 {object} ErrorResponse "缺少邮箱或密码"
// @Failure 401 {object} ErrorResponse "邮箱或密码错误"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		status, msg, known := mapError(err, MsgInternalError)
		if !known {
			h.log.Error("login failed", zap.String("email", req.Email), zap.Error(err))
		}
		Error(c, status, msg)
		return
	}

	OK(c, result)
}

// GoogleRedirect 跳转到 Google 授权页
// @Summary Gmail 授权
// @Tags 认证
// @Success 302
// @Router /auth/google [get]
func (h *AuthHandler) GoogleRedirect(c *gin.Context) {
	state, err := h.states.Issue(h.frontendURL)
	if err != nil {
		h.log.Error("failed to issue oauth state", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback 处理 Google 授权回调：换取令牌、查询账户邮箱、保存令牌后跳回前端
// @Summary Gmail 授权回调
// @Tags 认证
// @Param code query string true "授权码"
// @Param state query string true "state"
// @Success 302
// @Failure 400 {object} ErrorResponse
// @Router /auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	if oauthErr := c.Query("error"); oauthErr != "" {
		BadRequest(c, MsgOAuthFailed+": "+oauthErr)
		return
	}

	code := c.Query("code")
	if code == "" {
		BadRequest(c, MsgMissingCode)
		return
	}

	claims, err := h.states.Validate(c.Query("state"))
	if err != nil {
		h.log.Warn("rejected oauth callback", zap.Error(err))
		BadRequest(c, MsgInvalidState)
		return
	}

	ctx := c.Request.Context()
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("oauth code exchange failed", zap.Error(err))
		BadRequest(c, MsgOAuthFailed)
		return
	}

	userEmail, err := h.profile(ctx, token.AccessToken)
	if err != nil {
		h.log.Error("failed to load gmail profile", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	if err := h.tokens.SaveToken(ctx, &domain.GmailToken{
		UserEmail:    userEmail,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}); err != nil {
		h.log.Error("failed to save gmail token", zap.String("user_email", userEmail), zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	h.log.Info("gmail authorized", zap.String("user_email", userEmail))

	target := claims.ReturnTo
	if target == "" {
		target = h.frontendURL
	}
	c.Redirect(http.StatusFound, target)
}

// CurrentUser 返回最近授权 Gmail 的用户邮箱
// @Summary 当前用户
// @Tags 认证
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /user/email [get]
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	email, err := h.tokens.LatestTokenUserEmail(c.Request.Context())
	if errors.Is(err, storage.ErrUserNotFound) {
		NotFound(c, MsgNoLoggedInUser)
		return
	}
	if err != nil {
		h.log.Error("failed to load current user", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}
	OK(c, gin.H{"email": email})
}

package vision

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainauth "petvision-server-go/internal/domain/auth"
	"petvision-server-go/internal/utils"
)

const (
	// DefaultCookieName 会话 cookie 名称
	DefaultCookieName = "petvision_session"

	ctxSessionID = "petvision.session_id"
)

// SessionMiddleware 从 cookie 中恢复浏览器会话，缺失或无效时签发新会话。
// 每次请求都会续期 cookie。
func SessionMiddleware(tokens *domainauth.SessionToken, cookieName string, logger *utils.Logger) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}

	return func(c *gin.Context) {
		var sessionID string
		if raw, err := c.Cookie(cookieName); err == nil && raw != "" {
			id, verr := tokens.VerifyToken(raw)
			if verr != nil {
				logger.DebugTag("会话", "会话令牌无效，重新签发: %v", verr)
			} else {
				sessionID = id
			}
		}

		var (
			token string
			err   error
		)
		if sessionID == "" {
			sessionID, token, err = tokens.NewSession()
			if err == nil {
				logger.DebugTag("会话", "新会话 %s", sessionID)
			}
		} else {
			token, err = tokens.GenerateToken(sessionID)
		}
		if err != nil {
			logger.ErrorTag("会话", "签发会话令牌失败: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"data":    nil,
				"message": "failed to establish session",
				"code":    http.StatusInternalServerError,
			})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, token, int(tokens.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
		c.Set(ctxSessionID, sessionID)
		c.Next()
	}
}

// SessionID 返回中间件写入的会话 ID
func SessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey gin.Context 中已认证用户 ID 的键
const UserIDKey = "auth_user_id"

var (
	// ErrMissingToken 请求未携带 Bearer Token
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken Token 校验失败
	ErrInvalidToken = errors.New("invalid bearer token")
)

// TokenVerifier 校验 HS256 签名的 Bearer Token，subject 为用户 ID
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier 创建 Token 校验器
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify 解析并校验 Token，返回用户 ID
func (v *TokenVerifier) Verify(raw string) (uint64, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return userID, nil
}

// Sign 签发 Token，供测试与内部工具使用
func (v *TokenVerifier) Sign(userID uint64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken 从 Authorization 头中取出 Token
func BearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// GinOptionalAuth 携带有效 Token 时写入用户 ID；携带无效 Token 直接 401；未携带则放行
func GinOptionalAuth(verifier *TokenVerifier, onReject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := BearerToken(c)
		if errors.Is(err, ErrMissingToken) {
			c.Next()
			return
		}
		userID, err := verifier.Verify(raw)
		if err != nil {
			onReject(c)
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// AuthenticatedUserID 取出已认证的用户 ID
func AuthenticatedUserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

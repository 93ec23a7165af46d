package vonage

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = 15 * time.Minute

type aclClaim struct {
	Paths map[string]struct{} `json:"paths"`
}

type applicationClaims struct {
	ApplicationID string    `json:"application_id"`
	ACL           *aclClaim `json:"acl,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken 签发 RS256 应用令牌。subject 和 paths 可选：
// 浏览器客户端两者都需要，REST 调用都不需要。
func (c *Client) IssueToken(subject string, paths []string) (string, error) {
	now := c.now()
	claims := applicationClaims{
		ApplicationID: c.applicationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	if len(paths) > 0 {
		acl := &aclClaim{Paths: make(map[string]struct{}, len(paths))}
		for _, p := range paths {
			acl.Paths[p] = struct{}{}
		}
		claims.ACL = acl
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign application token: %w", err)
	}
	return signed, nil
}

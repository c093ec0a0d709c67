package util

import (
	"sync"
	"time"

	"fleetdata/config"
	"fleetdata/logutils"

	jwt "github.com/golang-jwt/jwt/v5"
)

const tokenTTLHours = 24

type (
	JWTClaims struct {
		UserID string `json:"ui"`
		jwt.RegisteredClaims
	}
	JWTMessage struct {
		UserID string `json:"userID"` // User identifier carried into created_by audit fields
	}
)

type TokenManager struct {
	secretKey string
	tokenTTL  int
}

var (
	once     sync.Once
	tokenMgr *TokenManager
)

func GetTokenMgr() *TokenManager {
	once.Do(func() {
		tokenMgr = newTokenManager(config.GetConfig().Auth.TokenSecret, tokenTTLHours)
	})
	return tokenMgr
}

func newTokenManager(secretKey string, tokenTTL int) *TokenManager {
	return &TokenManager{
		secretKey,
		tokenTTL,
	}
}

// CreateToken issues a signed access token for the given message.
func (tm *TokenManager) CreateToken(msg *JWTMessage) (string, error) {
	expiresAt := time.Now().Add(time.Hour * time.Duration(tm.tokenTTL))

	claims := &JWTClaims{
		UserID: msg.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.secretKey))
	if err != nil {
		logutils.Log.Error(err)
		return "", err
	}
	return signed, nil
}

func (tm *TokenManager) CheckToken(requestToken string) (JWTMessage, error) {
	claims := JWTClaims{}
	_, err := jwt.ParseWithClaims(requestToken, &claims, func(_ *jwt.Token) (any, error) {
		return []byte(tm.secretKey), nil
	})
	return JWTMessage{
		UserID: claims.UserID,
	}, err
}

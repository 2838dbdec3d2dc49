package token

import "github.com/golang-jwt/jwt/v5"

// ExtractTokenID pulls the jti claim from a signed token without verifying
// the signature. For flows like logout where revoking an id is harmless even
// when the presented token cannot be fully verified.
func ExtractTokenID(signedToken string) (string, bool) {
	unverified, _, err := jwt.NewParser().ParseUnverified(signedToken, jwt.MapClaims{})
	if err != nil {
		return "", false
	}

	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}

	jti, _ := claims["jti"].(string)
	return jti, jti != ""
}

// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sage-x-project/remoting/rpcerrors"
	"github.com/sage-x-project/remoting/wire"
)

// JWTBearerProvider validates a bearer-token credential against a fixed
// verification key — RS256 against an RSA public key, or HS256 against a
// shared secret. Unlike an OAuth identity-provider client, it never
// fetches a JWKS endpoint: the verification key is supplied at
// construction time, which is all a self-contained RPC runtime needs.
type JWTBearerProvider struct {
	rsaPublicKey *rsa.PublicKey
	hmacSecret   []byte
	issuer       string
	audience     string
}

// NewJWTBearerProviderRS256 validates RS256-signed bearer tokens against
// publicKey, optionally checking issuer/audience claims when non-empty.
func NewJWTBearerProviderRS256(publicKey *rsa.PublicKey, issuer, audience string) *JWTBearerProvider {
	return &JWTBearerProvider{rsaPublicKey: publicKey, issuer: issuer, audience: audience}
}

// NewJWTBearerProviderHS256 validates HS256-signed bearer tokens against
// a shared secret, optionally checking issuer/audience claims.
func NewJWTBearerProviderHS256(secret []byte, issuer, audience string) *JWTBearerProvider {
	return &JWTBearerProvider{hmacSecret: secret, issuer: issuer, audience: audience}
}

// Authenticate implements Provider. The credential named "token" carries
// the raw bearer JWT.
func (p *JWTBearerProvider) Authenticate(_ context.Context, credentials []wire.Credential) (wire.Identity, error) {
	tokenString := strings.TrimPrefix(credentialValue(credentials, "token"), "Bearer ")
	if tokenString == "" {
		return wire.Identity{}, rpcerrors.SecurityError("missing token credential", nil)
	}

	claims := jwt.MapClaims{}
	parserOpts := []jwt.ParserOption{}
	if p.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(p.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, p.keyFunc, parserOpts...)
	if err != nil || !token.Valid {
		return wire.Identity{}, rpcerrors.SecurityError("invalid bearer token", err)
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return wire.Identity{}, rpcerrors.SecurityError("token missing sub claim", nil)
	}

	identity := wire.Identity{Name: sub, Type: "jwt"}
	if iss, ok := claims["iss"].(string); ok {
		identity.Domain = iss
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				identity.Roles = append(identity.Roles, s)
			}
		}
	}
	return identity, nil
}

func (p *JWTBearerProvider) keyFunc(t *jwt.Token) (interface{}, error) {
	switch t.Method.Alg() {
	case "RS256":
		if p.rsaPublicKey == nil {
			return nil, fmt.Errorf("provider is not configured for RS256")
		}
		return p.rsaPublicKey, nil
	case "HS256":
		if p.hmacSecret == nil {
			return nil, fmt.Errorf("provider is not configured for HS256")
		}
		return p.hmacSecret, nil
	default:
		return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
	}
}

package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audiences for the three principal classes. A token minted for one
// audience never validates on another surface.
const (
	AudiencePartner    = "protection-core/partner"
	AudienceCompliance = "protection-core/compliance"
	AudienceGate       = "protection-core/gate"
)

// PartnerPrincipal identifies a verified external-partner caller. Values
// are only produced by PartnerVerifier.Verify; services that demand one as
// a parameter are thereby unreachable from any other credential class.
type PartnerPrincipal struct {
	id string
}

// ID returns the partner's stable identifier.
func (p PartnerPrincipal) ID() string { return p.id }

// CompliancePrincipal identifies a verified compliance/admin caller.
type CompliancePrincipal struct {
	id string
}

// ID returns the compliance principal's stable identifier.
func (p CompliancePrincipal) ID() string { return p.id }

// GatePrincipal identifies the capture-gate service account.
type GatePrincipal struct {
	id string
}

// ID returns the gate service identifier.
func (p GatePrincipal) ID() string { return p.id }

// verifier holds the shared HMAC verification logic.
type verifier struct {
	key      []byte
	issuer   string
	audience string
}

func (v *verifier) subject(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.key, nil
		},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrForbidden
	}
	return sub, nil
}

// PartnerVerifier verifies external-partner tokens.
type PartnerVerifier struct{ v verifier }

// NewPartnerVerifier creates a verifier over the partner signing key.
func NewPartnerVerifier(key, issuer string) *PartnerVerifier {
	return &PartnerVerifier{v: verifier{key: []byte(key), issuer: issuer, audience: AudiencePartner}}
}

// Verify validates a bearer token and mints a PartnerPrincipal.
func (pv *PartnerVerifier) Verify(token string) (PartnerPrincipal, error) {
	sub, err := pv.v.subject(token)
	if err != nil {
		return PartnerPrincipal{}, err
	}
	return PartnerPrincipal{id: sub}, nil
}

// ComplianceVerifier verifies compliance/admin tokens.
type ComplianceVerifier struct{ v verifier }

// NewComplianceVerifier creates a verifier over the compliance signing key.
func NewComplianceVerifier(key, issuer string) *ComplianceVerifier {
	return &ComplianceVerifier{v: verifier{key: []byte(key), issuer: issuer, audience: AudienceCompliance}}
}

// Verify validates a bearer token and mints a CompliancePrincipal.
func (cv *ComplianceVerifier) Verify(token string) (CompliancePrincipal, error) {
	sub, err := cv.v.subject(token)
	if err != nil {
		return CompliancePrincipal{}, err
	}
	return CompliancePrincipal{id: sub}, nil
}

// GateVerifier verifies capture-gate service tokens.
type GateVerifier struct{ v verifier }

// NewGateVerifier creates a verifier over the gate signing key.
func NewGateVerifier(key, issuer string) *GateVerifier {
	return &GateVerifier{v: verifier{key: []byte(key), issuer: issuer, audience: AudienceGate}}
}

// Verify validates a bearer token and mints a GatePrincipal.
func (gv *GateVerifier) Verify(token string) (GatePrincipal, error) {
	sub, err := gv.v.subject(token)
	if err != nil {
		return GatePrincipal{}, err
	}
	return GatePrincipal{id: sub}, nil
}

// BearerToken extracts the bearer token from a request, or ErrNoToken.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrNoToken
	}
	return parts[1], nil
}

// MintToken signs a token for the given key/issuer/audience/subject.
// Used by tests and by the ops tooling that provisions service accounts.
func MintToken(key, issuer, audience, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	salt    = []byte("campus.core.user.token_gen")
	NowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
	errInvalidUID   = errors.New("invalid uid")
)

type tokenGenerator struct {
	secretKey []byte
	timeout   time.Duration
}

// EncodeUID base64 encodes the role and ID of the given Identity.
func EncodeUID(ident Identity) string {
	return base64.RawURLEncoding.EncodeToString([]byte(string(ident.Role) + ":" + ident.ID))
}

// decodeUID reverses EncodeUID.
func decodeUID(uid string) (Role, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", "", errInvalidUID
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", errInvalidUID
	}
	role := Role(parts[0])
	if !role.IsValid() {
		return "", "", errInvalidUID
	}
	return role, parts[1], nil
}

// makeToken generates a password reset token for a given Identity.
func (g tokenGenerator) makeToken(ident Identity) (string, error) {
	return g.makeTokenWithTimestamp(ident, numDaysSince2001(NowFunc()))
}

// verifyToken checks that a password reset token for a given Identity is valid.
func (g tokenGenerator) verifyToken(ident Identity, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := g.makeTokenWithTimestamp(ident, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(time.Now()) - ts) > int(g.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (g tokenGenerator) makeTokenWithTimestamp(ident Identity, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := g.sign(hashValue(ident, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func (g tokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, salt...), g.secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

// hashValue changes whenever the password does, which invalidates used tokens.
func hashValue(ident Identity, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(string(ident.Role))
	val.WriteString(ident.ID)
	val.Write(ident.PasswordHash)
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}

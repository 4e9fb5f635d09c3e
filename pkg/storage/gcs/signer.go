package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	signingHost      = "storage.googleapis.com"
	signingAlgorithm = "GOOG4-RSA-SHA256"
	maxSignedExpiry  = 7 * 24 * time.Hour
)

type urlSigner struct {
	email string
	key   *rsa.PrivateKey
}

func newURLSigner(jsonCreds string) (*urlSigner, error) {
	var creds struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(jsonCreds), &creds); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	key, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &urlSigner{email: creds.ClientEmail, key: key}, nil
}

func (s *urlSigner) signedGetURL(bucket, object string, now time.Time, expires time.Duration) (string, error) {
	if bucket == "" || object == "" {
		return "", errors.New("bucket and object are required")
	}
	if expires <= 0 || expires > maxSignedExpiry {
		return "", fmt.Errorf("signed url expiry must be within (0, %s]", maxSignedExpiry)
	}

	path := "/" + bucket + "/" + escapeObject(object)
	query, stringToSign := s.canonical(path, now, expires)

	hash := sha256.Sum256([]byte(stringToSign))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}
	return fmt.Sprintf("https://%s%s?%s&X-Goog-Signature=%s", signingHost, path, query, hex.EncodeToString(sig)), nil
}

// canonical returns the signed query string and the V4 string-to-sign.
func (s *urlSigner) canonical(path string, now time.Time, expires time.Duration) (string, string) {
	datestamp := now.Format("20060102")
	timestamp := now.Format("20060102T150405Z")
	scope := datestamp + "/auto/storage/goog4_request"

	values := url.Values{}
	values.Set("X-Goog-Algorithm", signingAlgorithm)
	values.Set("X-Goog-Credential", s.email+"/"+scope)
	values.Set("X-Goog-Date", timestamp)
	values.Set("X-Goog-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	values.Set("X-Goog-SignedHeaders", "host")
	query := strings.ReplaceAll(values.Encode(), "+", "%20")

	request := strings.Join([]string{
		"GET",
		path,
		query,
		"host:" + signingHost,
		"",
		"host",
		"UNSIGNED-PAYLOAD",
	}, "\n")
	requestHash := sha256.Sum256([]byte(request))

	stringToSign := strings.Join([]string{
		signingAlgorithm,
		timestamp,
		scope,
		hex.EncodeToString(requestHash[:]),
	}, "\n")
	return query, stringToSign
}

func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		if priv, ok := key.(*rsa.PrivateKey); ok {
			return priv, nil
		}
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unsupported private key format")
	}
	return priv, nil
}

// Package myenergi talks to the myenergi hub servers. The hub API is
// reached through a per-account server (the ASN) discovered from a first
// call to the director, and every request is digest-authenticated with the
// hub serial and password.
package myenergi

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mbruggen/homeflux/pkg/sources"
)

const directorURL = "https://director.myenergi.net"

var ErrNoASN = fmt.Errorf("myenergi ASN not found in director response header")

type Client struct {
	serial   string
	password string
	baseURL  string
	hc       *http.Client
}

// NewClient performs the director handshake and returns a client bound to
// the account's ASN.
func NewClient(serial, password string) (*Client, error) {
	c := &Client{
		serial:   serial,
		password: password,
		baseURL:  directorURL,
		hc:       &http.Client{Timeout: 30 * time.Second},
	}
	if err := c.discover(directorURL); err != nil {
		return nil, err
	}
	return c, nil
}

// discover asks the director which server carries this account and rebinds
// the client to it.
func (c *Client) discover(callURL string) error {
	resp, err := c.do(callURL)
	if err != nil {
		return fmt.Errorf("director handshake failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	asn := resp.Header.Get("X_myenergi-asn")
	if asn == "" {
		return ErrNoASN
	}
	c.baseURL = "https://" + asn
	return nil
}

// ZappiHistory fetches the per-hour charger registers for one day.
func (c *Client) ZappiHistory(zappiSerial string, day time.Time) ([]sources.ChargerHour, error) {
	callURL := fmt.Sprintf("%s/cgi-jdayhour-Z%s-%s",
		c.baseURL, zappiSerial, day.Format("2006-01-02"))

	resp, err := c.do(callURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("charger history returned status %d", resp.StatusCode)
	}

	// The payload is keyed by device: {"U12345678": [ ... ]}
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding charger history: %w", err)
	}
	for key, raw := range payload {
		if !strings.HasPrefix(key, "U") {
			continue
		}
		var hours []sources.ChargerHour
		if err := json.Unmarshal(raw, &hours); err != nil {
			return nil, fmt.Errorf("decoding charger history block %s: %w", key, err)
		}
		return hours, nil
	}
	return nil, nil
}

// do performs a digest-authenticated GET: one bare request to collect the
// challenge, then the authenticated retry.
func (c *Client) do(callURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, callURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Wget/1.20 (linux-gnu)")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	challenge := resp.Header.Get("WWW-Authenticate")
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	auth, err := digestResponse(challenge, c.serial, c.password, http.MethodGet, req.URL.RequestURI())
	if err != nil {
		return nil, err
	}

	req2, err := http.NewRequest(http.MethodGet, callURL, nil)
	if err != nil {
		return nil, err
	}
	req2.Header.Set("User-Agent", "Wget/1.20 (linux-gnu)")
	req2.Header.Set("Authorization", auth)
	return c.hc.Do(req2)
}

// digestResponse answers an RFC 2617 digest challenge (MD5, qop=auth).
func digestResponse(challenge, user, password, method, uri string) (string, error) {
	if !strings.HasPrefix(challenge, "Digest ") {
		return "", fmt.Errorf("unsupported auth challenge %q", challenge)
	}
	params := map[string]string{}
	for _, part := range strings.Split(challenge[len("Digest "):], ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 {
			params[kv[0]] = strings.Trim(kv[1], `"`)
		}
	}
	realm, nonce := params["realm"], params["nonce"]
	if nonce == "" {
		return "", fmt.Errorf("auth challenge carries no nonce")
	}

	cnonceBytes := make([]byte, 8)
	rand.Read(cnonceBytes)
	cnonce := hex.EncodeToString(cnonceBytes)
	nc := "00000001"

	ha1 := md5hex(user + ":" + realm + ":" + password)
	ha2 := md5hex(method + ":" + uri)
	response := md5hex(strings.Join([]string{ha1, nonce, nc, cnonce, "auth", ha2}, ":"))

	return fmt.Sprintf(
		`Digest username=%q, realm=%q, nonce=%q, uri=%q, qop=auth, nc=%s, cnonce=%q, response=%q`,
		user, realm, nonce, uri, nc, cnonce, response), nil
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

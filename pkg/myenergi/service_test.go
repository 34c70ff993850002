package myenergi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return &Client{
		serial:   "12345678",
		password: "hunter2",
		baseURL:  baseURL,
		hc:       &http.Client{Timeout: 5 * time.Second},
	}
}

func authParams(header string) map[string]string {
	params := map[string]string{}
	for _, part := range strings.Split(strings.TrimPrefix(header, "Digest "), ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 {
			params[kv[0]] = strings.Trim(kv[1], `"`)
		}
	}
	return params
}

func TestDo_AnswersDigestChallenge(t *testing.T) {
	const realm, nonce = "MyEnergi Telemetry", "dcd98b7102dd2f0e"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate",
				`Digest realm="`+realm+`", nonce="`+nonce+`", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		// verify the response hash with the client's own cnonce
		p := authParams(auth)
		require.Equal(t, "12345678", p["username"])
		require.Equal(t, "auth", p["qop"])
		ha1 := md5hex("12345678:" + realm + ":hunter2")
		ha2 := md5hex("GET:" + r.URL.RequestURI())
		want := md5hex(strings.Join([]string{ha1, nonce, p["nc"], p["cnonce"], "auth", ha2}, ":"))
		require.Equal(t, want, p["response"])

		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	resp, err := c.do(srv.URL + "/cgi-jdayhour-Z11112222-2026-03-14")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDiscover_BindsToASN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X_myenergi-asn", "s18.myenergi.net")
		w.Write([]byte("redirecting"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	require.NoError(t, c.discover(srv.URL))
	require.Equal(t, "https://s18.myenergi.net", c.baseURL)
}

func TestDiscover_MissingASNHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no header here"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	require.ErrorIs(t, c.discover(srv.URL), ErrNoASN)
}

func TestZappiHistory_DecodesDeviceKeyedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cgi-jdayhour-Z11112222-2026-03-14", r.URL.Path)
		w.Write([]byte(`{"U11112222":[
			{"yr":2026,"mon":3,"dom":14,"hr":0,"imp":3600000},
			{"yr":2026,"mon":3,"dom":14,"hr":1,"imp":1800000,"gep":7200}
		]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	hours, err := c.ZappiHistory("11112222", day)
	require.NoError(t, err)
	require.Len(t, hours, 2)
	require.Equal(t, 1, hours[1].Hour)
	require.Equal(t, float64(1800000), hours[1].Imp)
	require.Equal(t, float64(7200), hours[1].Gep)
}

func TestDigestResponse_RejectsNonDigestChallenge(t *testing.T) {
	_, err := digestResponse(`Basic realm="nope"`, "u", "p", "GET", "/")
	require.Error(t, err)

	_, err = digestResponse(`Digest realm="r"`, "u", "p", "GET", "/")
	require.ErrorContains(t, err, "nonce")
}

package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// HMACSHA1 signs the input string with the given key and returns it base64 encoded.
func HMACSHA1(data, key string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// OAuthParams holds the inputs for a two-legged OAuth 1.0a signature.
type OAuthParams struct {
	ConsumerKey    string
	ConsumerSecret string
	Nonce          string
	Timestamp      int64
}

// OAuthHeader returns the Authorization header value for method and rawURL.
// Query parameters of rawURL take part in the signature; JSON bodies do not.
func OAuthHeader(method, rawURL string, p OAuthParams) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	oauth := map[string]string{
		"oauth_consumer_key":     p.ConsumerKey,
		"oauth_nonce":            p.Nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(p.Timestamp, 10),
		"oauth_version":          "1.0",
	}

	params := u.Query()
	for k, v := range oauth {
		params.Set(k, v)
	}

	base := BaseString(method, u, params)
	oauth["oauth_signature"] = HMACSHA1(base, Encode(p.ConsumerSecret)+"&")

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, `realm=""`)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, Encode(oauth[k])))
	}
	return "OAuth " + strings.Join(parts, ", "), nil
}

// BaseString builds the OAuth signature base string (RFC 5849 section 3.4.1).
func BaseString(method string, u *url.URL, params url.Values) string {
	return strings.ToUpper(method) + "&" +
		Encode(baseURI(u)) + "&" +
		Encode(normalizeParams(params))
}

func baseURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" &&
		!(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

func normalizeParams(params url.Values) string {
	pairs := make([]string, 0, len(params))
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, Encode(k)+"="+Encode(v))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// Encode percent-encodes s per RFC 3986: only unreserved characters are kept.
func Encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	default:
		return false
	}
}

package stackmob

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/iSamMahoozi/stackmob-sdk-go/internal/signature"
	"github.com/iSamMahoozi/stackmob-sdk-go/internal/timeutil"
	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
)

// Scope selects which family of resources a request targets.
type Scope uint8

const (
	// ScopeObject targets an arbitrary object collection.
	ScopeObject Scope = iota
	// ScopeUser targets the user object collection.
	ScopeUser
	// ScopePush targets the push notification endpoints.
	ScopePush
)

func (s Scope) String() string {
	switch s {
	case ScopeObject:
		return "object"
	case ScopeUser:
		return "user"
	case ScopePush:
		return "push"
	default:
		return fmt.Sprintf("Scope(%d)", uint8(s))
	}
}

// Session supplies everything a request needs from the account it runs
// under: where to send it and how to authenticate it.
type Session interface {
	// BaseURL returns the API root without a trailing slash.
	BaseURL(secure bool) string
	// ResourcePrefix is prepended to the method name to form the resource path.
	ResourcePrefix(scope Scope) string
	// HeadersFor returns credential headers for r. They override any header
	// set on the request.
	HeadersFor(r *Request) (http.Header, error)
}

// DefaultHeaderer is implemented by sessions that contribute low-precedence
// headers. Headers set on the request override them.
type DefaultHeaderer interface {
	DefaultHeaders() http.Header
}

const (
	DefaultDomain         = "stackmob.com"
	DefaultUserObjectName = "user"
	DefaultAPIVersion     = 0
	pushPrefix            = "push/"
)

// SessionConfig describes a StackMob application and its OAuth keys.
type SessionConfig struct {
	PublicKey  string
	PrivateKey string
	AppName    string
	Subdomain  string
	Domain     string
	APIVersion int
	// UserObjectName is the schema holding user objects.
	UserObjectName string
	// BaseURL replaces the URL derived from Subdomain, Domain, APIVersion and AppName.
	BaseURL   string
	UserAgent string
}

// OAuthSession signs every request with two-legged OAuth 1.0a.
type OAuthSession struct {
	cfg   SessionConfig
	nonce func() string
	now   func() int64
}

var _ Session = (*OAuthSession)(nil)
var _ DefaultHeaderer = (*OAuthSession)(nil)

// NewOAuthSession validates cfg and fills in defaults.
func NewOAuthSession(cfg SessionConfig) (*OAuthSession, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, configError("NewOAuthSession", "public and private key are required")
	}
	if cfg.BaseURL == "" && (cfg.AppName == "" || cfg.Subdomain == "") {
		return nil, configError("NewOAuthSession", "app name and subdomain are required without a base url")
	}
	if cfg.APIVersion < 0 {
		return nil, configError("NewOAuthSession", fmt.Sprintf("invalid api version %d", cfg.APIVersion))
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.UserObjectName == "" {
		cfg.UserObjectName = DefaultUserObjectName
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "stackmob-sdk-go/" + Version
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &OAuthSession{
		cfg:   cfg,
		nonce: uuid.NewString,
		now:   timeutil.NowUnix,
	}, nil
}

func configError(op, msg string) error {
	return sdkerr.NewSDKError().
		WithSubsys(subsys).
		WithOp(op).
		WithKind(sdkerr.ErrConfiguration).
		WithMessage(msg)
}

// BaseURL returns the API root. Secure requests always use https; an
// explicit https base URL is never downgraded.
func (s *OAuthSession) BaseURL(secure bool) string {
	if s.cfg.BaseURL != "" {
		if secure {
			return upgradeScheme(s.cfg.BaseURL)
		}
		return s.cfg.BaseURL
	}

	scheme := "http"
	if secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s.%s/api/%d/%s", scheme, s.cfg.Subdomain, s.cfg.Domain, s.cfg.APIVersion, s.cfg.AppName)
}

func upgradeScheme(u string) string {
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "https://" + rest
	}
	return u
}

func (s *OAuthSession) ResourcePrefix(scope Scope) string {
	switch scope {
	case ScopeUser:
		return s.cfg.UserObjectName + "/"
	case ScopePush:
		return pushPrefix
	default:
		return ""
	}
}

// HeadersFor returns the OAuth Authorization header for r.
func (s *OAuthSession) HeadersFor(r *Request) (http.Header, error) {
	rawURL, err := r.resolveURL()
	if err != nil {
		return nil, err
	}

	auth, err := signature.OAuthHeader(r.Verb().String(), rawURL, signature.OAuthParams{
		ConsumerKey:    s.cfg.PublicKey,
		ConsumerSecret: s.cfg.PrivateKey,
		Nonce:          s.nonce(),
		Timestamp:      s.now(),
	})
	if err != nil {
		return nil, sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("HeadersFor").
			WithKind(sdkerr.ErrConfiguration).
			WithCause(err)
	}

	h := make(http.Header)
	h.Set("Authorization", auth)
	return h, nil
}

// DefaultHeaders returns the versioned Accept header and User-Agent.
func (s *OAuthSession) DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("Accept", fmt.Sprintf("application/vnd.stackmob+json; version=%d", s.cfg.APIVersion))
	h.Set("User-Agent", s.cfg.UserAgent)
	return h
}

// StaticSession is a Session with a fixed base URL and fixed headers. It
// performs no signing and suits local backends and tests.
type StaticSession struct {
	URL string
	// UserPrefix is used for ScopeUser. Empty means "user/".
	UserPrefix string
	Headers    http.Header
}

var _ Session = (*StaticSession)(nil)

func (s *StaticSession) BaseURL(secure bool) string {
	u := strings.TrimSuffix(s.URL, "/")
	if secure {
		return upgradeScheme(u)
	}
	return u
}

func (s *StaticSession) ResourcePrefix(scope Scope) string {
	switch scope {
	case ScopeUser:
		if s.UserPrefix != "" {
			return s.UserPrefix
		}
		return DefaultUserObjectName + "/"
	case ScopePush:
		return pushPrefix
	default:
		return ""
	}
}

func (s *StaticSession) HeadersFor(*Request) (http.Header, error) {
	return s.Headers.Clone(), nil
}

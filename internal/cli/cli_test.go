package cli

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iSamMahoozi/stackmob-sdk-go/config"
	"github.com/iSamMahoozi/stackmob-sdk-go/internal/testutil"
	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
)

type testApp struct {
	*app
	out    *bytes.Buffer
	errOut *bytes.Buffer
	ring   *keyring.ArrayKeyring
}

func newTestApp(t *testing.T, fake transport.HTTPClient) *testApp {
	t.Helper()
	t.Setenv(config.EnvPublicKey, "pub")
	t.Setenv(config.EnvPrivateKey, "priv")
	t.Setenv(config.EnvBaseURL, "https://api.example.com/v1")
	t.Setenv(config.EnvLogLevel, "error")

	ring := keyring.NewArrayKeyring(nil)
	t.Cleanup(config.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}))

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testApp{
		app: &app{
			out:       out,
			errOut:    errOut,
			in:        strings.NewReader(""),
			transport: fake,
			store:     config.NewCredentialStore(),
		},
		out:    out,
		errOut: errOut,
		ring:   ring,
	}
}

func (ta *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	return ta.execute(context.Background(), args)
}

func TestRequest_PostArguments(t *testing.T) {
	fake := testutil.Respond(201, `{"name":"bob","user_id":"u1"}`)
	ta := newTestApp(t, fake)

	require.NoError(t, ta.run(t, "request", "users", "-X", "post", "--arg", "name=bob", "--arg", "age=30"))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "POST", calls[0].Method)
	assert.Equal(t, "https://api.example.com/v1/users", calls[0].FullURL)
	assert.Equal(t, `{"name":"bob","age":30}`, string(calls[0].Body))
	assert.Contains(t, calls[0].Headers.Get("Authorization"), `oauth_consumer_key="pub"`)

	assert.Equal(t, "{\n  \"name\": \"bob\",\n  \"user_id\": \"u1\"\n}\n", ta.out.String())
}

func TestRequest_JQ(t *testing.T) {
	ta := newTestApp(t, testutil.Respond(200, `[{"name":"a"},{"name":"b"}]`))

	require.NoError(t, ta.run(t, "request", "users", "--jq", ".[].name"))
	assert.Equal(t, "a\nb\n", ta.out.String())
}

func TestRequest_Compact(t *testing.T) {
	ta := newTestApp(t, testutil.Respond(200, `{"b":1,"a":[1,2]}`))

	require.NoError(t, ta.run(t, "request", "users", "--compact"))
	assert.Equal(t, "{\"a\":[1,2],\"b\":1}\n", ta.out.String())
}

func TestRequest_Query(t *testing.T) {
	fake := testutil.Respond(200, `[]`)
	ta := newTestApp(t, fake)

	require.NoError(t, ta.run(t, "request", "users",
		"--where", "age[gt]=18",
		"--where", "city=Berlin",
		"--order-by", "name:desc",
		"--range", "0-9",
		"--expand", "1",
		"--header", "X-Trace=abc",
	))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "age%5Bgt%5D=18&city=Berlin", testutil.RawQuery(t, calls[0].FullURL))
	assert.Equal(t, "name:desc", calls[0].Headers.Get("X-StackMob-OrderBy"))
	assert.Equal(t, "objects=0-9", calls[0].Headers.Get("Range"))
	assert.Equal(t, "1", calls[0].Headers.Get("X-StackMob-Expand"))
	assert.Equal(t, "abc", calls[0].Headers.Get("X-Trace"))
}

func TestRequest_User(t *testing.T) {
	fake := testutil.Respond(200, `{"username":"bob"}`)
	ta := newTestApp(t, fake)

	require.NoError(t, ta.run(t, "request", "profile", "--user", "--jq", ".username"))
	assert.Equal(t, "https://api.example.com/v1/user/profile", fake.Calls()[0].FullURL)
	assert.Equal(t, "bob\n", ta.out.String())
}

func TestRequest_DryRun(t *testing.T) {
	fake := testutil.Respond(200, `{}`)
	ta := newTestApp(t, fake)

	require.NoError(t, ta.run(t, "--dry-run", "request", "users", "-X", "PUT", "--arg", "name=bob"))
	assert.Empty(t, fake.Calls())

	out := ta.out.String()
	assert.Contains(t, out, "PUT")
	assert.Contains(t, out, "https://api.example.com/v1/users")
	assert.Contains(t, out, `{"name":"bob"}`)
	assert.Contains(t, out, "OAuth ***")
	assert.NotContains(t, out, "oauth_signature")
}

func TestRequest_HTTPError(t *testing.T) {
	ta := newTestApp(t, testutil.Respond(404, `{"error":"not found"}`))

	err := ta.run(t, "request", "users/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, sdkerr.ErrHTTP)
	assert.Equal(t, exitHTTP, ExitCode(err))
	assert.Empty(t, ta.out.String())

	stderr := ta.errOut.String()
	logAt := strings.Index(stderr, "failed")
	bodyAt := strings.Index(stderr, `{"error":"not found"}`)
	require.GreaterOrEqual(t, logAt, 0, stderr)
	require.GreaterOrEqual(t, bodyAt, 0, stderr)
	assert.Less(t, logAt, bodyAt, "the failure is logged before the body is printed")
}

func TestRequest_UsageErrors(t *testing.T) {
	ta := newTestApp(t, testutil.Respond(200, `{}`))

	tests := [][]string{
		{"request", "users", "-X", "PATCH"},
		{"request", "users", "--arg", "novalue"},
		{"request", "users", "--range", "9-1"},
		{"request", "users", "--order-by", "name:sideways"},
		{"request", "users", "--jq", ".["},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			err := ta.run(t, args...)
			require.Error(t, err)
			assert.Equal(t, exitUsage, ExitCode(err))
		})
	}
}

func TestRequest_MissingCredentials(t *testing.T) {
	ta := newTestApp(t, testutil.Respond(200, `{}`))
	t.Setenv(config.EnvPrivateKey, "")

	err := ta.run(t, "request", "users")
	assert.ErrorIs(t, err, sdkerr.ErrConfiguration)
	assert.Equal(t, exitUsage, ExitCode(err))
}

func TestRequest_PrivateKeyFromKeyring(t *testing.T) {
	fake := testutil.Respond(200, `{}`)
	ta := newTestApp(t, fake)
	t.Setenv(config.EnvPrivateKey, "")
	require.NoError(t, ta.ring.Set(keyring.Item{Key: "pub", Data: []byte("stored")}))

	require.NoError(t, ta.run(t, "request", "users"))
	assert.Len(t, fake.Calls(), 1)
}

func TestRequest_ConfigFile(t *testing.T) {
	fake := testutil.Respond(200, `{}`)
	ta := newTestApp(t, fake)
	t.Setenv(config.EnvBaseURL, "")

	path := filepath.Join(t.TempDir(), "stackmob.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app_name: demo\nsubdomain: acme\napi_version: 1\n"), 0o600))

	require.NoError(t, ta.run(t, "--config", path, "--secure", "request", "users"))
	assert.Equal(t, "https://acme.stackmob.com/api/1/demo/users", fake.Calls()[0].FullURL)
	assert.Equal(t, "application/vnd.stackmob+json; version=1", fake.Calls()[0].Headers.Get("Accept"))
}

func TestPush(t *testing.T) {
	fake := testutil.Respond(200, ``)
	ta := newTestApp(t, fake)

	require.NoError(t, ta.run(t, "push", "--alert", "hi", "--badge", "2", "--sound", "chime", "--arg", `users=["bob"]`))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "POST", calls[0].Method)
	assert.Equal(t, "https://api.example.com/v1/push/notifications", calls[0].FullURL)
	assert.Equal(t, `{"alert":"hi","badge":2,"sound":"chime","users":["bob"]}`, string(calls[0].Body))
	assert.Empty(t, ta.out.String())
}

func TestBatch(t *testing.T) {
	fake := &testutil.FakeHTTPClient{
		DoFunc: func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if strings.Contains(req.FullURL, "missing") {
				return testutil.JSONResponse(http.StatusNotFound, `{"error":"not found"}`), nil
			}
			return testutil.JSONResponse(http.StatusOK, `{}`), nil
		},
	}
	ta := newTestApp(t, fake)

	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
requests:
  - name: create bob
    method: users
    verb: POST
    args:
      name: bob
  - name: my profile
    method: profile
    user: true
  - method: users/missing
  - name: notify
    method: notifications
    push: true
    verb: POST
    args:
      alert: hi
`), 0o600))

	err := ta.run(t, "batch", path, "-p", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 4 requests failed")
	assert.Len(t, fake.Calls(), 4)

	out := ta.out.String()
	assert.Contains(t, out, "create bob")
	assert.Contains(t, out, "user/profile")
	assert.Contains(t, out, "push/notifications")
	assert.Contains(t, out, "404")
}

func TestBatch_BadFile(t *testing.T) {
	ta := newTestApp(t, testutil.Respond(200, `{}`))

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requests: []\n"), 0o600))

	err := ta.run(t, "batch", path)
	assert.Equal(t, exitUsage, ExitCode(err))
}

func TestAuth_SetAndDeleteKey(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.in = strings.NewReader("from-stdin\n")

	require.NoError(t, ta.run(t, "auth", "set-key"))
	assert.Contains(t, ta.out.String(), "Stored private key for pub")

	item, err := ta.ring.Get("pub")
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", string(item.Data))

	require.NoError(t, ta.run(t, "auth", "set-key", "--public-key", "other", "--private-key", "k2"))
	item, err = ta.ring.Get("other")
	require.NoError(t, err)
	assert.Equal(t, "k2", string(item.Data))

	require.NoError(t, ta.run(t, "auth", "delete-key"))
	_, err = ta.ring.Get("pub")
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

package redact_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gitlab.com/tozd/go/errors"

	"github.com/dianlight/focuslog/redact"
)

type RedactSuite struct {
	suite.Suite
}

func TestRedactSuite(t *testing.T) {
	suite.Run(t, new(RedactSuite))
}

// --- IsSensitiveKey ---

func (s *RedactSuite) TestIsSensitiveKey() {
	for _, key := range []string{"password", "PASSWORD", "db_password", "X-Auth-Token", "api_key", "client_secret", "Authorization"} {
		s.True(redact.IsSensitiveKey(key), key)
	}
	for _, key := range []string{"", "user", "name", "request_id", "amount"} {
		s.False(redact.IsSensitiveKey(key), key)
	}
}

// --- Value ---

func (s *RedactSuite) TestValueLeaf() {
	s.Equal(redact.Mask, redact.Value("hunter2", "password"))
	s.Equal(redact.Mask, redact.Value(1234, "pin_token"))
	s.Equal("bob", redact.Value("bob", "user"))
	s.Nil(redact.Value(nil, "password"))
}

func (s *RedactSuite) TestValueNestedMap() {
	in := map[string]any{
		"user": "bob",
		"auth": map[string]any{"token": "abc", "scheme": "bearer-less"},
		"tags": []any{"a", "b"},
	}
	out := redact.Value(in, "")

	s.Equal(map[string]any{
		"user": "bob",
		"auth": map[string]any{"token": redact.Mask, "scheme": "bearer-less"},
		"tags": []any{"a", "b"},
	}, out)
	s.Equal("abc", in["auth"].(map[string]any)["token"], "the input is not modified")
}

func (s *RedactSuite) TestValueStruct() {
	type credentials struct {
		User     string `json:"user"`
		Password string `json:"password,omitempty"`
		hidden   string
	}
	in := &credentials{User: "bob", Password: "hunter2", hidden: "x"}

	out, ok := redact.Value(in, "").(*credentials)
	s.Require().True(ok, "the masked copy keeps the original type")
	s.Equal(&credentials{User: "bob", Password: redact.Mask, hidden: "x"}, out)
	s.NotSame(in, out)
	s.Equal("hunter2", in.Password, "the input is not modified")
}

func (s *RedactSuite) TestValueUnchangedKeepsInput() {
	type opaque struct{ id int }
	s.Equal(opaque{id: 7}, redact.Value(opaque{id: 7}, ""))

	in := &struct{ Name string }{Name: "bob"}
	out, ok := redact.Value(in, "").(*struct{ Name string })
	s.Require().True(ok)
	s.Same(in, out)

	s.Equal(map[int]string{1: "a"}, redact.Value(map[int]string{1: "a"}, ""))
}

func (s *RedactSuite) TestValueStructFallsBackToMap() {
	type pin struct {
		User     string
		PinToken int
	}
	s.Equal(map[string]any{"User": "bob", "PinToken": redact.Mask}, redact.Value(pin{User: "bob", PinToken: 1234}, ""))

	type conn struct {
		Host     string
		password string
	}
	s.Equal(map[string]any{"Host": "db", "password": redact.Mask}, redact.Value(conn{Host: "db", password: "pw"}, ""))
}

func (s *RedactSuite) TestValueAnyKeyedMap() {
	in := map[any]any{"password": "pw", 7: "seven", "user": "bob"}
	s.Equal(map[any]any{"password": redact.Mask, 7: "seven", "user": "bob"}, redact.Value(in, ""))
	s.Equal("pw", in["password"])
}

func (s *RedactSuite) TestValueCycles() {
	type node struct {
		Name     string
		Password string
		Next     *node
	}
	n := &node{Name: "a", Password: "pw"}
	n.Next = n
	s.Equal(map[string]any{"Name": "a", "Password": redact.Mask, "Next": redact.Cycle}, redact.Value(n, ""))

	m := map[string]any{"token": "abc"}
	m["self"] = m
	s.Equal(map[string]any{"token": redact.Mask, "self": redact.Cycle}, redact.Value(m, ""))

	list := []any{"x", nil}
	list[1] = list
	s.Equal([]any{"x", redact.Cycle}, redact.Value(list, ""))
}

func (s *RedactSuite) TestValueSharedValueIsNotACycle() {
	shared := map[string]any{"token": "abc"}
	out := redact.Value(map[string]any{"a": shared, "b": shared}, "")
	masked := map[string]any{"token": redact.Mask}
	s.Equal(map[string]any{"a": masked, "b": masked}, out)
}

func (s *RedactSuite) TestValueDepthLimit() {
	var deep any = "leaf"
	for i := 0; i < 100; i++ {
		deep = []any{deep}
	}
	out := redact.Value(deep, "")
	for i := 0; i < 32; i++ {
		list, ok := out.([]any)
		s.Require().True(ok, "level %d", i)
		out = list[0]
	}
	s.Equal(redact.TooDeep, out)
}

func (s *RedactSuite) TestValueSliceUnderSensitiveKey() {
	s.Equal([]string{redact.Mask, redact.Mask}, redact.Value([]string{"a", "b"}, "tokens"))
	s.Equal([]any{redact.Mask, redact.Mask}, redact.Value([]int{1, 2}, "tokens"))
	s.Equal(redact.Mask, redact.Value([]byte("raw"), "secret"))
}

func (s *RedactSuite) TestValueStringerIsLeaf() {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Equal(ts, redact.Value(ts, "created_at"))
}

// --- Attr ---

func (s *RedactSuite) TestAttrGroup() {
	a := redact.Attr(slog.Group("db", slog.String("host", "localhost"), slog.String("password", "pw")))
	s.Equal(slog.KindGroup, a.Value.Kind())
	group := a.Value.Group()
	s.Require().Len(group, 2)
	s.Equal("localhost", group[0].Value.String())
	s.Equal(redact.Mask, group[1].Value.String())
}

func (s *RedactSuite) TestAttrErrorUntouched() {
	err := errors.New("token expired")
	a := redact.Attr(slog.Any("error", err))
	s.Equal(err, a.Value.Any())
}

// --- Handler ---

func (s *RedactSuite) TestHandler() {
	var buf bytes.Buffer
	logger := slog.New(redact.NewHandler(slog.NewJSONHandler(&buf, nil)))

	logger.With("api_key", "k-123").Info("login", "user", "bob", "password", "hunter2",
		slog.Group("session", slog.String("cookie", "c"), slog.Int("ttl", 60)))

	var rec map[string]any
	s.Require().NoError(json.Unmarshal(buf.Bytes(), &rec))
	s.Equal(redact.Mask, rec["api_key"])
	s.Equal("bob", rec["user"])
	s.Equal(redact.Mask, rec["password"])
	s.Equal(map[string]any{"cookie": redact.Mask, "ttl": float64(60)}, rec["session"])
}

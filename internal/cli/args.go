package cli

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/iSamMahoozi/stackmob-sdk-go/stackmob"
)

// parseArguments turns k=v pairs into ordered arguments. Values that parse
// as JSON (numbers, booleans, arrays, objects, null) keep their type; the
// rest are strings. A value can be forced to a string with k:=v.
func parseArguments(pairs []string) (*stackmob.Arguments, error) {
	args := stackmob.NewArguments()
	for _, p := range pairs {
		if k, v, ok := strings.Cut(p, ":="); ok && !strings.Contains(k, "=") {
			if k == "" {
				return nil, usageErrorf("empty argument name in %q", p)
			}
			args.Set(k, v)
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, usageErrorf("argument %q is not in key=value form", p)
		}
		args.Set(k, parseValue(v))
	}
	return args, nil
}

func parseValue(s string) any {
	if s == "" {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func parseHeaders(pairs []string) (http.Header, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	h := make(http.Header)
	for _, p := range pairs {
		i := strings.IndexAny(p, "=:")
		if i <= 0 || strings.TrimSpace(p[:i]) == "" {
			return nil, usageErrorf("header %q is not in name=value form", p)
		}
		h.Add(strings.TrimSpace(p[:i]), strings.TrimSpace(p[i+1:]))
	}
	return h, nil
}

// parseRange reads "start-end" or "start-".
func parseRange(s string) (int, int, error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, usageErrorf("range %q is not in start-end form", s)
	}
	start, err := strconv.Atoi(a)
	if err != nil || start < 0 {
		return 0, 0, usageErrorf("invalid range start %q", a)
	}
	if b == "" {
		return start, -1, nil
	}
	end, err := strconv.Atoi(b)
	if err != nil || end < start {
		return 0, 0, usageErrorf("invalid range end %q", b)
	}
	return start, end, nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/olekukonko/tablewriter"

	"github.com/iSamMahoozi/stackmob-sdk-go/transport"
)

var errUsage = errors.New("usage error")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// applyJQ runs expr against data and returns every value it produces.
func applyJQ(data any, expr string) ([]any, error) {
	if expr == "" {
		return []any{data}, nil
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, usageErrorf("invalid jq expression: %v", err)
	}

	var results []any
	iter := query.Run(data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

// printResult writes data, filtered by the --jq expression, as JSON.
// A nil result (empty response body) prints nothing.
func (a *app) printResult(data any) error {
	if data == nil && a.flags.JQ == "" {
		return nil
	}
	results, err := applyJQ(data, a.flags.JQ)
	if err != nil {
		return err
	}
	for _, v := range results {
		if s, ok := v.(string); ok && a.flags.JQ != "" {
			fmt.Fprintln(a.out, s)
			continue
		}
		var b []byte
		if a.flags.Compact {
			b, err = json.Marshal(v)
		} else {
			b, err = json.MarshalIndent(v, "", "  ")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(b))
	}
	return nil
}

// renderRequest prints a resolved request as a two column table.
func renderRequest(w io.Writer, req *transport.Request) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "Value"})

	rows := [][]string{
		{"Method", req.Method},
		{"URL", req.FullURL},
	}

	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := strings.Join(req.Headers.Values(k), ", ")
		if k == "Authorization" {
			value = redact(value)
		}
		rows = append(rows, []string{"Header " + k, value})
	}
	if len(req.Body) > 0 {
		rows = append(rows, []string{"Body", string(req.Body)})
	}

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func redact(auth string) string {
	scheme, _, ok := strings.Cut(auth, " ")
	if !ok {
		return "***"
	}
	return scheme + " ***"
}

// batchRow is one line of the batch summary table.
type batchRow struct {
	Name   string
	Verb   string
	Path   string
	Status int
	Err    error
}

func renderBatch(w io.Writer, rows []batchRow) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Name", "Verb", "Path", "Status", "Result"})
	for i, r := range rows {
		result := "ok"
		if r.Err != nil {
			result = r.Err.Error()
		}
		status := "-"
		if r.Status != 0 {
			status = fmt.Sprint(r.Status)
		}
		if err := table.Append([]string{fmt.Sprint(i + 1), r.Name, r.Verb, r.Path, status, result}); err != nil {
			return err
		}
	}
	return table.Render()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
	"github.com/iSamMahoozi/stackmob-sdk-go/stackmob"
)

type requestFlags struct {
	Verb    string
	Args    []string
	Headers []string
	User    bool

	Where   []string
	OrderBy []string
	Range   string
	Expand  int
}

func (f *requestFlags) hasQuery() bool {
	return len(f.Where) > 0 || len(f.OrderBy) > 0 || f.Range != "" || f.Expand > 0
}

func (a *app) newRequestCmd() *cobra.Command {
	var f requestFlags

	cmd := &cobra.Command{
		Use:   "request [METHOD]",
		Short: "Send a CRUD request to an object or user method",
		Example: `  smcli request users --verb POST --arg name=bob --arg age=30
  smcli request users --where age[gt]=18 --order-by name --range 0-9
  smcli request profile --user --jq .username`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			verb, err := stackmob.ParseVerb(f.Verb)
			if err != nil {
				return usageErrorf("%v", err)
			}
			args, err := parseArguments(f.Args)
			if err != nil {
				return err
			}
			headers, err := parseHeaders(f.Headers)
			if err != nil {
				return err
			}
			query, err := f.query()
			if err != nil {
				return err
			}

			client, closeFn, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			method := ""
			if len(posArgs) > 0 {
				method = posArgs[0]
			}

			var r *stackmob.Request
			switch {
			case query != nil && f.User:
				r = client.UserRequestForMethodWithQuery(method, query, verb)
			case query != nil:
				r = client.RequestForMethodWithQuery(method, query, verb)
			case f.User:
				r = client.UserRequestForMethodWithArguments(method, args, verb)
			default:
				r = client.RequestForMethodWithArguments(method, args, verb)
			}

			if query != nil && args.Len() > 0 {
				if err := r.SetArguments(r.Arguments().Merge(args)); err != nil {
					return err
				}
			}
			if len(headers) > 0 {
				merged := r.Headers()
				if merged == nil {
					merged = headers
				} else {
					for k, vs := range headers {
						merged[k] = vs
					}
				}
				if err := r.SetHeaders(merged); err != nil {
					return err
				}
			}
			return a.send(cmd.Context(), r)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.Verb, "verb", "X", "GET", "HTTP verb: GET|POST|PUT|DELETE")
	fl.StringArrayVarP(&f.Args, "arg", "a", nil, "Argument as key=value (repeatable; key:=value forces a string)")
	fl.StringArrayVarP(&f.Headers, "header", "H", nil, "Header as name=value (repeatable)")
	fl.BoolVarP(&f.User, "user", "u", false, "Target the user collection")
	fl.StringArrayVar(&f.Where, "where", nil, "Query condition as field=value or field[op]=value (repeatable)")
	fl.StringArrayVar(&f.OrderBy, "order-by", nil, "Sort field, optionally field:desc (repeatable)")
	fl.StringVar(&f.Range, "range", "", "Result range as start-end")
	fl.IntVar(&f.Expand, "expand", 0, "Expand related objects to this depth")
	return cmd
}

// query builds a Query from the query flags, or returns nil if none is set.
func (f *requestFlags) query() (*stackmob.Query, error) {
	if !f.hasQuery() {
		return nil, nil
	}
	q := stackmob.NewQuery()

	conds, err := parseArguments(f.Where)
	if err != nil {
		return nil, err
	}
	conds.Each(func(k string, v any) { q.Where(k, v) })

	for _, o := range f.OrderBy {
		field, dir, _ := strings.Cut(o, ":")
		switch strings.ToLower(dir) {
		case "", "asc":
			q.OrderBy(field, stackmob.Ascending)
		case "desc":
			q.OrderBy(field, stackmob.Descending)
		default:
			return nil, usageErrorf("invalid sort order %q", dir)
		}
	}
	if f.Range != "" {
		start, end, err := parseRange(f.Range)
		if err != nil {
			return nil, err
		}
		q.Range(start, end)
	}
	if f.Expand > 0 {
		q.Expand(f.Expand)
	}
	return q, nil
}

// send dispatches r and prints its outcome, or prints the resolved request
// with --dry-run.
func (a *app) send(ctx context.Context, r *stackmob.Request) error {
	if a.flags.DryRun {
		wire, err := r.Resolve()
		if err != nil {
			return err
		}
		return renderRequest(a.out, wire)
	}

	if err := r.Send(); err != nil {
		return err
	}
	v, err := r.Wait(ctx)
	if err != nil {
		if !r.Finished() {
			r.Cancel()
		}
		var httpErr *sdkerr.HTTPError
		if errors.As(err, &httpErr) && len(httpErr.Body) > 0 {
			fmt.Fprintln(a.errOut, string(httpErr.Body))
		}
		return err
	}
	return a.printResult(v)
}

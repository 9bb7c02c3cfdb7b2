package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/iSamMahoozi/stackmob-sdk-go/stackmob"
)

const defaultConcurrency = 4

// batchFile is the YAML document read by "smcli batch".
type batchFile struct {
	Requests []batchEntry `yaml:"requests"`
}

type batchEntry struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	Verb    string            `yaml:"verb"`
	User    bool              `yaml:"user"`
	Push    bool              `yaml:"push"`
	Args    map[string]any    `yaml:"args"`
	Headers map[string]string `yaml:"headers"`
}

func (a *app) newBatchCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Send the requests listed in a YAML file concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			entries, err := readBatch(posArgs[0])
			if err != nil {
				return err
			}
			requests := make([]*stackmob.Request, len(entries))

			client, closeFn, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			for i, e := range entries {
				if requests[i], err = e.build(client); err != nil {
					return fmt.Errorf("request %d (%s): %w", i+1, e.label(), err)
				}
			}

			if a.flags.DryRun {
				for _, r := range requests {
					if err := a.send(cmd.Context(), r); err != nil {
						return err
					}
				}
				return nil
			}

			rows := runBatch(cmd.Context(), requests, concurrency)
			for i := range rows {
				rows[i].Name = entries[i].label()
			}
			if err := renderBatch(a.out, rows); err != nil {
				return err
			}

			failed := 0
			for _, r := range rows {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(rows))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "p", defaultConcurrency, "Requests in flight at once")
	return cmd
}

func readBatch(path string) ([]batchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, usageErrorf("parse %s: %v", path, err)
	}
	if len(f.Requests) == 0 {
		return nil, usageErrorf("%s lists no requests", path)
	}
	return f.Requests, nil
}

func (e batchEntry) label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Method
}

func (e batchEntry) build(c *stackmob.Client) (*stackmob.Request, error) {
	verbName := e.Verb
	if verbName == "" {
		verbName = "GET"
	}
	verb, err := stackmob.ParseVerb(verbName)
	if err != nil {
		return nil, usageErrorf("%v", err)
	}
	if e.User && e.Push {
		return nil, usageErrorf("user and push are exclusive")
	}

	args := stackmob.ArgumentsFromMap(e.Args)
	var r *stackmob.Request
	switch {
	case e.Push:
		r = c.PushRequestForMethod(e.Method, args, verb)
	case e.User:
		r = c.UserRequestForMethodWithArguments(e.Method, args, verb)
	default:
		r = c.RequestForMethodWithArguments(e.Method, args, verb)
	}

	if len(e.Headers) > 0 {
		h := make(map[string][]string, len(e.Headers))
		for k, v := range e.Headers {
			h[k] = []string{v}
		}
		if err := r.SetHeaders(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// runBatch sends requests with at most concurrency in flight. One failure
// does not stop the others.
func runBatch(ctx context.Context, requests []*stackmob.Request, concurrency int) []batchRow {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	rows := make([]batchRow, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, r := range requests {
		g.Go(func() error {
			rows[i] = batchRow{Verb: r.Verb().String(), Path: r.ResourcePath()}
			if err := r.Send(); err != nil {
				rows[i].Err = err
				return nil
			}
			if _, err := r.Wait(ctx); err != nil {
				if !r.Finished() {
					r.Cancel()
				}
				rows[i].Err = err
			}
			rows[i].Status = r.StatusCode()
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

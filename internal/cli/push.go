package cli

import (
	"github.com/spf13/cobra"

	"github.com/iSamMahoozi/stackmob-sdk-go/stackmob"
)

func (a *app) newPushCmd() *cobra.Command {
	var (
		alert    string
		badge    int
		sound    string
		endpoint string
		verb     string
		extra    []string
	)

	cmd := &cobra.Command{
		Use:     "push",
		Short:   "Send a push notification",
		Example: `  smcli push --alert "Hello" --badge 1 --sound default --arg users='["bob"]'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := stackmob.ParseVerb(verb)
			if err != nil {
				return usageErrorf("%v", err)
			}

			args := stackmob.NewArguments()
			if alert != "" {
				args.Set("alert", alert)
			}
			if cmd.Flags().Changed("badge") {
				args.Set("badge", badge)
			}
			if sound != "" {
				args.Set("sound", sound)
			}
			more, err := parseArguments(extra)
			if err != nil {
				return err
			}
			args.Merge(more)

			client, closeFn, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			return a.send(cmd.Context(), client.PushRequestForMethod(endpoint, args, v))
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&alert, "alert", "", "Alert text")
	fl.IntVar(&badge, "badge", 0, "Badge number")
	fl.StringVar(&sound, "sound", "", "Sound name")
	fl.StringVar(&endpoint, "endpoint", "notifications", "Push endpoint below push/")
	fl.StringVarP(&verb, "verb", "X", "POST", "HTTP verb")
	fl.StringArrayVarP(&extra, "arg", "a", nil, "Extra argument as key=value (repeatable)")
	return cmd
}

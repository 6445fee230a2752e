package main

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/gptstar/pkg/actions"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var experimental bool
	cmd := &cobra.Command{
		Use:   "parse <reply>",
		Short: "Show how a model reply would be interpreted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			answer, err := decision.Parse(reply)
			if err != nil {
				fmt.Fprintf(out, "error (%s): %v\naction: %s\n", decision.Kind(err), err, actions.Wait)
				return nil
			}

			names := append([]string(nil), actions.CoreActions...)
			if experimental {
				names = append(names, actions.ExperimentalActions...)
			}
			menu, err := actions.DefaultRegistry().Menu(names...)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "index: %d\n", answer.Index)
			if action, err := menu.Resolve(answer.Index); err != nil {
				fmt.Fprintf(out, "error (%s): %v\naction: %s\n", decision.Kind(err), err, actions.Wait)
			} else {
				fmt.Fprintf(out, "action: %s\n", action.Name)
			}
			fmt.Fprintf(out, "reasoning: %q\n", answer.Reasoning)
			return nil
		},
	}
	cmd.Flags().BoolVar(&experimental, "experimental", false, "resolve against the experimental menu")
	return cmd
}

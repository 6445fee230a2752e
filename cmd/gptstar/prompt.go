package main

import (
	"fmt"

	"github.com/jwebster45206/gptstar/internal/agent"
	"github.com/jwebster45206/gptstar/pkg/actions"
	"github.com/jwebster45206/gptstar/pkg/game/sim"
	"github.com/jwebster45206/gptstar/pkg/prompts"
	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	var (
		experimental bool
		loops        int
	)
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompt the bot would send for a fresh match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := sim.New(sim.Options{Seed: 1, Difficulty: sim.Easy})
			if loops > 0 {
				if _, err := g.Step(cmd.Context(), loops); err != nil {
					return err
				}
			}
			snap, err := g.Observe(cmd.Context())
			if err != nil {
				return err
			}

			names := append([]string(nil), actions.CoreActions...)
			if experimental {
				names = append(names, actions.ExperimentalActions...)
			}
			menu, err := actions.DefaultRegistry().Menu(names...)
			if err != nil {
				return err
			}

			b := agent.WriteObservations(prompts.New(), snap, experimental)
			menu.WritePrompt(b)
			for _, msg := range b.Build() {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n%s\n\n", msg.Role, msg.Content)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&experimental, "experimental", false, "include experimental observations and actions")
	cmd.Flags().IntVar(&loops, "loops", 0, "advance the simulated match before observing")
	return cmd
}

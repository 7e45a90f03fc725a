package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playmixer/fala/ipc"
)

// sender is swapped in tests.
var sender = ipc.Send

func NewRootCommand(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fala-ctl",
		Short:         "Control a running fala daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringP("socket", "s", ipc.DefaultSocketPath, "Daemon control socket")

	rootCmd.AddCommand(
		newCommand("listen", "Start a listening session", cobra.NoArgs, ipc.CmdListen),
		newCommand("stop", "Stop listening, speech and pending opens", cobra.NoArgs, ipc.CmdStop),
		newCommand("say <text...>", "Handle text as if it was spoken", cobra.MinimumNArgs(1), ipc.CmdSay),
		newCommand("phrase <text...>", "Speak a quick phrase as is", cobra.MinimumNArgs(1), ipc.CmdPhrase),
		newCommand("back", "Go one level up on the board", cobra.NoArgs, ipc.CmdBack),
		newCommand("go <category-id>", "Open a board category", cobra.ExactArgs(1), ipc.CmdGo),
		newCommand("select <item-id>", "Speak a board item", cobra.ExactArgs(1), ipc.CmdSelect),
	)
	return rootCmd
}

func newCommand(use, short string, args cobra.PositionalArgs, cmd string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(c *cobra.Command, argv []string) error {
			socket, err := c.Flags().GetString("socket")
			if err != nil {
				return err
			}
			reply, err := sender(socket, ipc.ControlMessage{Cmd: cmd, Text: strings.Join(argv, " ")})
			if err != nil {
				return fmt.Errorf("fala daemon not running: %w", err)
			}
			if reply.Message != "" {
				fmt.Fprintln(c.OutOrStdout(), reply.Message)
			}
			if !reply.OK {
				return errors.New(cmd + " failed")
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/roffe/gocan/adapter"
	"github.com/roffe/txdiag/pkg/config"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

func cautionColor(c protocols.CautionLevel) func(a ...any) string {
	switch c {
	case protocols.CautionAlert:
		return red
	case protocols.CautionWarn:
		return yellow
	}
	return green
}

func (a *app) commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the command set of the protocol, safest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proto, err := protocols.ParseDiagProtocol(a.v.GetString(config.KeyProtocol))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range protocols.SortByCaution(commandsFor(proto)) {
				fmt.Fprintf(out, "0x%02X %-40s %s  %s\n", c.Byte(), c.Name(), cautionColor(c.CautionLevel())(fmt.Sprintf("%-5s", c.CautionLevel())), c.Desc())
			}
			return nil
		},
	}
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serial.GetPortsList()
			if err != nil {
				return err
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func adaptersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List CAN adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range adapter.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

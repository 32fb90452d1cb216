package main

import (
	"fmt"
	"net/url"

	"github.com/fatih/color"
	"github.com/roffe/txdiag/pkg/config"
	"github.com/roffe/txdiag/pkg/diagserver"
	"github.com/roffe/txdiag/pkg/dtc"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

const lookupURL = "https://www.google.com/search?q="

// openURL opens the browser. Tests replace it.
var openURL = open.Run

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

func stateColor(s protocols.DTCState) func(a ...any) string {
	switch s {
	case protocols.DTCStatePermanent, protocols.DTCStateStored:
		return red
	case protocols.DTCStatePending:
		return yellow
	}
	return fmt.Sprint
}

func (a *app) dtcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dtc",
		Short: "Read stored diagnostic trouble codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(func(p *config.Profile, d *diagserver.DiagServer) error {
				dtcs, err := d.ReadErrors()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(dtcs) == 0 {
					fmt.Fprintln(out, green("No DTCs stored"))
					return nil
				}
				for _, e := range dtcs {
					fmt.Fprintln(out, stateColor(e.State)(e.String()))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear stored diagnostic trouble codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(func(p *config.Profile, d *diagserver.DiagServer) error {
				if err := d.ClearErrors(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), green("DTCs cleared"))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "env <code>",
		Short: "Read the environment data of a DTC, e.g. P0101",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hi, lo, ok := dtc.Encode(args[0])
			if !ok {
				return fmt.Errorf("invalid DTC code %q", args[0])
			}
			return a.withServer(func(p *config.Profile, d *diagserver.DiagServer) error {
				code := protocols.DTC{Error: dtc.Decode(hi, lo), ID: uint32(hi)<<8 | uint32(lo)}
				if d.Protocol() == protocols.UDS {
					code.ID <<= 8
				}
				data, err := d.GetDTCEnvData(code)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: % X\n", cyan(code.Error), data)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <code>",
		Short: "Search the web for a DTC code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hi, lo, ok := dtc.Encode(args[0])
			if !ok {
				return fmt.Errorf("invalid DTC code %q", args[0])
			}
			return openURL(lookupURL + url.QueryEscape(dtc.Decode(hi, lo)+" DTC"))
		},
	})
	return cmd
}

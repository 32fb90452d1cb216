package main

import (
	"fmt"

	"github.com/roffe/txdiag/pkg/config"
	"github.com/roffe/txdiag/pkg/diagserver"
	"github.com/spf13/cobra"
)

func (a *app) identCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ident",
		Short: "Print the ECU variant id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(func(p *config.Profile, d *diagserver.DiagServer) error {
				out := cmd.OutOrStdout()
				id, err := d.GetVariantID()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s variant id: %s\n", d.Name(), cyan(fmt.Sprintf("0x%08X", id)))
				if kwp, ok := d.IntoKWP(); ok {
					mmc, err := kwp.ReadDCXMMCID()
					if err != nil {
						return err
					}
					fmt.Fprintln(out, mmc)
				}
				return nil
			})
		},
	}
}

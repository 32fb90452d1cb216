package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roffe/txdiag/pkg/config"
	"github.com/roffe/txdiag/pkg/diagserver"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/roffe/txdiag/pkg/protocols/kwp2000"
	"github.com/roffe/txdiag/pkg/protocols/uds"
	"github.com/spf13/cobra"
)

func commandsFor(p protocols.DiagProtocol) []protocols.ECUCommand {
	switch p {
	case protocols.KWP2000:
		return kwp2000.Commands()
	case protocols.UDS:
		return uds.Commands()
	}
	return nil
}

func parseByte(s string) (byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

func (a *app) runCmd() *cobra.Command {
	var force, broadcast bool
	cmd := &cobra.Command{
		Use:   "run <opcode> [args...]",
		Short: "Run a raw diagnostic command, bytes in hex",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := make([]byte, 0, len(args))
			for _, s := range args {
				b, err := parseByte(s)
				if err != nil {
					return err
				}
				payload = append(payload, b)
			}
			p, err := config.Load(a.v)
			if err != nil {
				return err
			}
			opcode := payload[0]
			if c, ok := protocols.FindCommand(commandsFor(p.Protocol), opcode); ok {
				if c.CautionLevel() == protocols.CautionAlert && !force {
					return fmt.Errorf("%s is rated %s, use --force to run it", c.Name(), c.CautionLevel())
				}
			} else if !force {
				return fmt.Errorf("unknown %s command 0x%02X, use --force to run it", p.Protocol, opcode)
			}
			return a.withServer(func(p *config.Profile, d *diagserver.DiagServer) error {
				if broadcast {
					if err := d.Broadcast(opcode, payload[1:]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "sent to 0x%03X\n", *p.GlobalID)
					return nil
				}
				resp, err := d.RunCmd(opcode, payload[1:])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "% X\n", resp)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "run commands rated Alert or unknown")
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "send to the global id without waiting for answers")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/roffe/gocan"
	"github.com/roffe/txdiag/pkg/config"
	"github.com/roffe/txdiag/pkg/diagserver"
	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/iface/caniface"
	"github.com/roffe/txdiag/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// comServer opens the transport for a profile. Tests replace it.
var comServer = func(p *config.Profile, log *zap.Logger) iface.ComServer {
	return caniface.NewServer(p.Adapter.Name, &gocan.AdapterConfig{
		Port:         p.Adapter.Port,
		PortBaudrate: p.Adapter.Baudrate,
		CANRate:      p.Adapter.CANRate,
		CANFilter:    []uint32{p.RecvID},
	}, log)
}

type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "txdiag",
		Short:         "KWP2000 and UDS diagnostics over CAN",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(a.v, cfgFile); err != nil {
				return err
			}
			log, err := logging.New(a.v.GetBool(config.KeyDebug))
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "profile file (yaml, toml or json)")
	pf.StringP("protocol", "p", "", "diagnostic protocol, kwp2000 or uds")
	pf.String("send-id", "", "request CAN id, e.g. 0x7E0")
	pf.String("recv-id", "", "response CAN id, e.g. 0x7E8")
	pf.String("global-id", "", "functional request CAN id")
	pf.StringP("adapter", "a", "", "gocan adapter name")
	pf.String("port", "", "adapter serial port")
	pf.Float64("canrate", 0, "CAN rate in kbit/s")
	pf.Bool("debug", false, "enable debug logging")

	for key, flag := range map[string]string{
		config.KeyProtocol:       "protocol",
		config.KeySendID:         "send-id",
		config.KeyRecvID:         "recv-id",
		config.KeyGlobalID:       "global-id",
		config.KeyAdapterName:    "adapter",
		config.KeyAdapterPort:    "port",
		config.KeyAdapterCANRate: "canrate",
		config.KeyDebug:          "debug",
	} {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		a.dtcCmd(),
		a.identCmd(),
		a.runCmd(),
		a.commandsCmd(),
		portsCmd(),
		adaptersCmd(),
	)
	return root
}

// withServer opens a session for the loaded profile, runs fn and ends the
// session.
func (a *app) withServer(fn func(p *config.Profile, d *diagserver.DiagServer) error) error {
	p, err := config.Load(a.v)
	if err != nil {
		return err
	}
	return diagserver.Run(p.Protocol, comServer(p, a.log), p.InterfaceType(), p.InterfaceConfig(), p.TxFlags(), p.DiagCfg(),
		func(d *diagserver.DiagServer) error {
			return fn(p, d)
		}, p.SessionOptions(a.log)...)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"emovox/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: emovox-ctl [flags] toggle|start|stop|say <text>\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{Cmd: ipc.Command(args[0])}
	if msg.Cmd == ipc.CmdSay {
		msg.Text = strings.Join(args[1:], " ")
	}

	if err := ipc.SendCommand(*socket, msg); err != nil {
		fmt.Fprintln(os.Stderr, "emovox-daemon:", err)
		os.Exit(1)
	}
}

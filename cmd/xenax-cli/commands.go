package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/motionlab/xenax"
)

type sessionFlags struct {
	address    string
	timeout    time.Duration
	limitLeft  int
	limitRight int
	speed      int
	accel      int
	verbose    bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.address, "address", "", "controller address, e.g. 192.168.2.120:10001")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Second, "per-command response timeout")
	cmd.Flags().IntVar(&f.limitLeft, "limit-left", 0, "left travel limit in increments")
	cmd.Flags().IntVar(&f.limitRight, "limit-right", 0, "right travel limit in increments")
	cmd.Flags().IntVar(&f.speed, "speed", xenax.DefaultSpeed, "speed in increments per second")
	cmd.Flags().IntVar(&f.accel, "accel", xenax.DefaultAcceleration, "acceleration in increments per second squared")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log the wire traffic")
	_ = cmd.MarkFlagRequired("address")
}

// open connects a session; with initialize set it also runs the
// initialization sequence so motion commands are accepted.
func (f *sessionFlags) open(initialize bool) (xenax.Client, *slog.Logger, error) {
	logger := newLogger(f.verbose)
	opts := []xenax.TCPClientHandlerOption{xenax.WithTimeout(f.timeout)}
	if f.verbose {
		opts = append(opts, xenax.WithLogger(&debugAdapter{logger}))
	}
	handler := xenax.NewTCPClientHandler(f.address, opts...)

	client, err := xenax.NewClient(handler,
		xenax.WithLimits(f.limitLeft, f.limitRight),
		xenax.WithSpeed(f.speed),
		xenax.WithAcceleration(f.accel),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, nil, err
	}
	if initialize {
		logger.Info("initializing controller", "address", f.address)
		if err := client.Initialize(); err != nil {
			_ = client.Disconnect()
			return nil, nil, err
		}
	}
	return client, logger, nil
}

func newDiscoverCmd() *cobra.Command {
	var (
		port    int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "discover <host|cidr>...",
		Short: "Probe hosts for a listening controller service port",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found := xenax.Discover(cmd.Context(), expandHosts(args), port, timeout)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tPORT")
			for _, e := range found {
				fmt.Fprintf(w, "%s\t%d\n", e.Host, e.Port)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&port, "port", xenax.DefaultPort, "controller service port")
	cmd.Flags().DurationVar(&timeout, "timeout", 500*time.Millisecond, "per-host probe timeout")
	return cmd
}

func newPositionCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Read the current axis position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := flags.open(false)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			pos, err := client.Position()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pos)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newMoveCmd() *cobra.Command {
	var (
		flags       sessionFlags
		wait        bool
		waitTimeout time.Duration
		tolerance   int
	)
	cmd := &cobra.Command{
		Use:   "move <target>",
		Short: "Command an absolute move within the travel limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid target position %q", args[0])
			}
			client, logger, err := flags.open(true)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			if err := client.SetPosition(target); err != nil {
				return err
			}
			if !wait {
				return nil
			}
			return waitForPosition(cmd.Context(), client, logger, target, tolerance, waitTimeout)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the target position is reached")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 30*time.Second, "give up waiting after this long")
	cmd.Flags().IntVar(&tolerance, "tolerance", 10, "acceptable distance to the target in increments")
	return cmd
}

// waitForPosition polls the axis until it settles within tolerance of
// the target. The device offers no completion event, polling is the
// only way to observe the end of a move.
func waitForPosition(ctx context.Context, client xenax.Client, logger *slog.Logger, target, tolerance int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		pos, err := client.Position()
		if err != nil {
			return err
		}
		logger.Debug("polling position", "position", pos, "target", target)
		if diff := pos - target; -tolerance <= diff && diff <= tolerance {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("axis did not reach %d within %v, last position %d", target, timeout, pos)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func newJogCmd() *cobra.Command {
	var (
		flags    sessionFlags
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "jog {positive|negative}",
		Short: "Jog the axis for a fixed duration, then stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := flags.open(true)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			switch args[0] {
			case "positive":
				err = client.JogPositive()
			case "negative":
				err = client.JogNegative()
			default:
				return fmt.Errorf("invalid direction %q, expected positive or negative", args[0])
			}
			if err != nil {
				return err
			}
			select {
			case <-cmd.Context().Done():
			case <-time.After(duration):
			}
			return client.Stop()
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&duration, "for", 1*time.Second, "how long to jog before stopping")
	return cmd
}

func newPowerCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "power {on|off}",
		Short: "Switch the axis power stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := flags.open(true)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			switch args[0] {
			case "on":
				return client.PowerOn()
			case "off":
				return client.PowerOff()
			}
			return fmt.Errorf("invalid power state %q, expected on or off", args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

func newInputCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "input <pin>",
		Short: "Read a digital input pin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pin %q", args[0])
			}
			client, _, err := flags.open(true)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			on, err := client.Input(pin)
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintln(cmd.OutOrStdout(), "1")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "0")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newOutputCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "output <pin> {on|off}",
		Short: "Drive a digital output pin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pin %q", args[0])
			}
			var on bool
			switch args[1] {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("invalid output state %q, expected on or off", args[1])
			}
			client, _, err := flags.open(true)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			return client.SetOutput(pin, on)
		},
	}
	flags.register(cmd)
	return cmd
}

func newExecCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Send a raw command and print its reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := flags.open(false)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			reply, err := client.Exec(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// expandHosts turns a mix of plain hosts and CIDR blocks into a flat
// host list. Anything that does not parse as a CIDR is taken as a
// plain host. Blocks wider than /31 contribute host addresses only;
// the network and broadcast addresses are skipped.
func expandHosts(args []string) []string {
	var hosts []string
	for _, arg := range args {
		_, network, err := net.ParseCIDR(arg)
		if err != nil {
			hosts = append(hosts, arg)
			continue
		}
		var block []string
		for ip := network.IP.Mask(network.Mask); network.Contains(ip); incIP(ip) {
			block = append(block, ip.String())
		}
		if ones, bits := network.Mask.Size(); bits-ones > 1 && len(block) > 2 {
			block = block[1 : len(block)-1]
		}
		hosts = append(hosts, block...)
	}
	return hosts
}

func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"go-stepseq/midi"
)

var watchPorts bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports, or watch for controllers being plugged in",
	RunE:  runPorts,
}

func init() {
	portsCmd.Flags().BoolVarP(&watchPorts, "watch", "w", false, "Keep running and report controller connects/disconnects")
}

func runPorts(cmd *cobra.Command, args []string) error {
	defer midi.CloseDriver()

	fmt.Println("(waiting up to 3 seconds...)")
	ins, outs, err := midi.Ports(midi.ScanTimeout)
	if err != nil {
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}

	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range midi.PortNames(ins) {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range midi.PortNames(outs) {
		fmt.Printf("  %d: %s\n", i, name)
	}

	if !watchPorts {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dm := midi.NewDeviceManager(cfg.LaunchpadAutoConnect(), cfg.KeyboardPorts())
	go dm.Run(ctx)

	fmt.Println("\nWatching for controllers (Ctrl+C to stop)...")
	for ev := range dm.Events() {
		switch ev.Type {
		case midi.DeviceConnected:
			fmt.Printf("+ %s (%s)\n", ev.ID, ev.Controller.Type())
		case midi.DeviceDisconnected:
			fmt.Printf("- %s\n", ev.ID)
		}
	}
	return nil
}

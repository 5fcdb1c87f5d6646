// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"iter"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezrec/assembunny/cpu"
	"github.com/ezrec/assembunny/emulator"
	"github.com/ezrec/assembunny/internal"
	"github.com/ezrec/assembunny/manifest"
	"github.com/ezrec/assembunny/trace"
)

var verbose bool

// loadEmulator loads an Assembunny source file into a fresh emulator;
// emulator defines are visible to $(...) operand expressions.
func loadEmulator(path string) (emu *emulator.Emulator) {
	emu = emulator.NewEmulator()
	emu.Verbose = verbose

	dec := &cpu.Decoder{Verbose: verbose}
	for name, value := range emu.Defines() {
		dec.Predefine(name, value)
	}

	inf, err := os.Open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	emu.Program, err = dec.Parse(inf)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	return
}

func printRegisters(reg [cpu.REGISTER_COUNT]int) {
	for index, value := range reg {
		fmt.Printf("%s=%d\n", cpu.RegisterName(index), value)
	}
}

func runCommand() (cmd *cobra.Command) {
	var file string
	var initial [cpu.REGISTER_COUNT]int

	cmd = &cobra.Command{
		Use:   "run",
		Short: "Run a program to halt and print the final registers",
		Run: func(cmd *cobra.Command, args []string) {
			emu := loadEmulator(file)
			emu.Tape.Output = os.Stdout

			final, err := emu.Run(initial)
			if len(emu.Tape.Values) > 0 {
				fmt.Println()
			}
			if err != nil {
				log.Fatalf("%v: %v", file, err)
			}

			printRegisters(final)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Assembunny source file")
	cmd.MarkFlagRequired("file")
	for index := range initial {
		name := cpu.RegisterName(index)
		cmd.Flags().IntVarP(&initial[index], name, name,
			0, "Initial value of register "+name)
	}

	return
}

func signalCommand() (cmd *cobra.Command) {
	var file string
	var initialA int

	cmd = &cobra.Command{
		Use:   "signal",
		Short: "Report whether a program emits the alternating clock signal",
		Run: func(cmd *cobra.Command, args []string) {
			emu := loadEmulator(file)

			ok := emu.TestSignal(initialA)
			fmt.Printf("signal: %v\n", ok)
			if !ok {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Assembunny source file")
	cmd.MarkFlagRequired("file")
	cmd.Flags().IntVarP(&initialA, "a", "a", 0, "Initial value of register a")

	return
}

func searchCommand() (cmd *cobra.Command) {
	var file string
	var limit int

	cmd = &cobra.Command{
		Use:   "search",
		Short: "Find the smallest initial a that emits the clock signal",
		Run: func(cmd *cobra.Command, args []string) {
			emu := loadEmulator(file)

			a, ok := emu.Search(limit)
			if !ok {
				log.Fatalf("%v: no clock signal for any a in [0, %d]", file, limit)
			}

			fmt.Printf("a=%d\n", a)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Assembunny source file")
	cmd.MarkFlagRequired("file")
	cmd.Flags().IntVar(&limit, "limit", emulator.SEARCH_LIMIT,
		"Largest initial a to try")

	return
}

// checkResult is the outcome of a single suite case.
type checkResult struct {
	Name   string
	Ok     bool
	Detail string
}

// runChecks runs every [[run]] case of a suite.
func runChecks(suite *manifest.Suite) iter.Seq[checkResult] {
	return func(yield func(checkResult) bool) {
		for n, tcase := range suite.Run {
			result := checkResult{
				Name: fmt.Sprintf("run[%d] %s", n, tcase.Program),
				Ok:   true,
			}

			emu := loadEmulator(suite.Path(tcase.Program))

			var initial [cpu.REGISTER_COUNT]int
			for name, value := range tcase.Registers {
				index, ok := cpu.RegisterIndex(name)
				if !ok {
					result.Ok = false
					result.Detail = fmt.Sprintf("unknown register %q", name)
					break
				}
				initial[index] = value
			}

			if result.Ok {
				final, err := emu.Run(initial)
				if err != nil {
					result.Ok = false
					result.Detail = err.Error()
				} else {
					for name, want := range tcase.Expect {
						index, ok := cpu.RegisterIndex(name)
						if !ok {
							result.Ok = false
							result.Detail = fmt.Sprintf("unknown register %q", name)
							break
						}
						if final[index] != want {
							result.Ok = false
							result.Detail = fmt.Sprintf("%s=%d, expected %d",
								name, final[index], want)
							break
						}
					}
				}
			}

			if !yield(result) {
				return
			}
		}
	}
}

// signalChecks runs every [[signal]] case of a suite.
func signalChecks(suite *manifest.Suite) iter.Seq[checkResult] {
	return func(yield func(checkResult) bool) {
		for n, tcase := range suite.Signal {
			result := checkResult{
				Name: fmt.Sprintf("signal[%d] %s", n, tcase.Program),
				Ok:   true,
			}

			emu := loadEmulator(suite.Path(tcase.Program))

			a, ok := emu.Search(tcase.Limit)
			if !ok {
				result.Ok = false
				result.Detail = fmt.Sprintf("no clock signal in [0, %d]", tcase.Limit)
			} else if a != tcase.Expect {
				result.Ok = false
				result.Detail = fmt.Sprintf("a=%d, expected %d", a, tcase.Expect)
			}

			if !yield(result) {
				return
			}
		}
	}
}

func checkCommand() (cmd *cobra.Command) {
	var file string

	cmd = &cobra.Command{
		Use:   "check",
		Short: "Run a TOML suite of programs against expected results",
		Run: func(cmd *cobra.Command, args []string) {
			suite, err := manifest.Load(file)
			if err != nil {
				log.Fatalf("%v: %v", file, err)
			}

			failed := 0
			for result := range internal.IterSeqConcat(
				runChecks(suite),
				signalChecks(suite),
			) {
				if result.Ok {
					fmt.Printf("ok   %s\n", result.Name)
				} else {
					fmt.Printf("FAIL %s: %s\n", result.Name, result.Detail)
					failed++
				}
			}

			if failed > 0 {
				log.Fatalf("%v: %d case(s) failed", file, failed)
			}
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Suite TOML file")
	cmd.MarkFlagRequired("file")

	return
}

// applyControl adjusts the paused flag for one viewer control message.
func applyControl(ctl string, paused *bool) {
	switch ctl {
	case "pause":
		*paused = true
	case "resume":
		*paused = false
	}
}

// pollControls drains pending viewer controls, blocking while paused.
func pollControls(hub *trace.Hub, paused *bool) {
	for {
		if *paused {
			applyControl(<-hub.Control, paused)
			continue
		}

		select {
		case ctl := <-hub.Control:
			applyControl(ctl, paused)
		default:
			return
		}
	}
}

func watchCommand() (cmd *cobra.Command) {
	var file string
	var listen string
	var delay time.Duration

	cmd = &cobra.Command{
		Use:   "watch",
		Short: "Run a program while streaming snapshots to websocket viewers",
		Run: func(cmd *cobra.Command, args []string) {
			emu := loadEmulator(file)

			hub := trace.NewHub()
			go hub.Run()

			emu.Watch = func(snap emulator.Snapshot) {
				hub.Send(snap)
			}

			go func() {
				emu.Reset()

				paused := false
				for {
					pollControls(hub, &paused)

					done, err := emu.Tick()
					if err != nil {
						log.Fatalf("%v: %v", file, err)
					}
					if done {
						break
					}

					time.Sleep(delay)
				}

				log.Printf("watch: %v: halted after %d ticks", file, emu.Cpu.Ticks)
				printRegisters(emu.Cpu.Reg)
			}()

			mux := http.NewServeMux()
			mux.Handle("/ws", hub.Handler())

			log.Printf("watch: listening on %s", listen)
			err := http.ListenAndServe(listen, mux)
			if err != nil {
				log.Fatalf("%v: %v", listen, err)
			}
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Assembunny source file")
	cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&listen, "listen", ":8080", "Websocket listen address")
	cmd.Flags().DurationVar(&delay, "delay", 10*time.Millisecond,
		"Delay between ticks")

	return
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "assembunny",
		Short: "Assembunny register machine tools",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Verbose mode")

	rootCmd.AddCommand(
		runCommand(),
		signalCommand(),
		searchCommand(),
		checkCommand(),
		watchCommand(),
	)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

package cli

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"touchctl/internal/version"
	"touchctl/pkg/config"
	"touchctl/pkg/device"
	"touchctl/pkg/errors"
	"touchctl/pkg/logging"
	"touchctl/pkg/powershell"
	"touchctl/pkg/prompt"
	"touchctl/pkg/registry"
)

type rootFlags struct {
	verbosity int
	assumeYes bool
	assumeNo  bool
	elevate   bool
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "touchctl",
		Short: "Control touch input devices",
		Long: `touchctl enables, disables and inspects touch input devices (the
touchscreen and the precision touchpad) at three levels: the device
instance itself, the machine-wide registry policy and the per-user
registry policy.`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(flags.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&flags.assumeYes, "yes", false, "Approve elevation requests without asking")
	rootCmd.PersistentFlags().BoolVar(&flags.assumeNo, "no", false, "Decline elevation requests without asking")
	rootCmd.PersistentFlags().BoolVar(&flags.elevate, "elevate", false, "Run external commands elevated from the start")

	// Add all commands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newStatusCmd(flags))
	rootCmd.AddCommand(newToggleCmd(flags, "enable", "Enable a touch device", device.StateEnable, string(device.ModeDevice)))
	rootCmd.AddCommand(newToggleCmd(flags, "disable", "Disable a touch device", device.StateDisable, string(device.ModeDevice)))
	rootCmd.AddCommand(newToggleCmd(flags, "clear", "Remove a registry policy for a touch device", device.StateNone, string(device.ModeUser)))
	rootCmd.AddCommand(newDevicesCmd(flags))
	rootCmd.AddCommand(newDoctorCmd(flags))
	rootCmd.AddCommand(newGenConfigCmd())

	return rootCmd
}

// appEnv wires the layers together for one command invocation.
type appEnv struct {
	settings *config.Settings
	shell    *powershell.Shell
	devices  map[string]*device.Device
	order    []string
}

func buildEnv(flags *rootFlags) (*appEnv, error) {
	if flags.assumeYes && flags.assumeNo {
		return nil, errors.New(errors.ErrInvalidInput, "--yes and --no are mutually exclusive")
	}

	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	mode, err := prompt.ParseMode(settings.Prompt.Mode)
	if err != nil {
		return nil, err
	}
	if flags.assumeYes {
		mode = prompt.ModeAssumeYes
	}
	if flags.assumeNo {
		mode = prompt.ModeAssumeNo
	}

	asker := prompt.New(mode)
	shell := powershell.New(asker)
	store := registry.New(shell, asker)

	return &appEnv{
		settings: settings,
		shell:    shell,
		devices: map[string]*device.Device{
			"touchscreen": device.Touchscreen(shell, store, asker, settings.Match("touchscreen")...),
			"touchpad":    device.Touchpad(shell, store, asker, settings.Match("touchpad")...),
		},
		order: []string{"touchscreen", "touchpad"},
	}, nil
}

func (e *appEnv) device(name string) (*device.Device, error) {
	d, ok := e.devices[strings.ToLower(name)]
	if !ok {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"unknown device %q, want one of: %s", name, strings.Join(e.order, ", "))
	}
	return d, nil
}

func (e *appEnv) options(flags *rootFlags) device.Options {
	return device.Options{
		Elevate:     flags.elevate,
		AutoElevate: e.settings.Elevation.Auto && !flags.elevate,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("touchctl version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Printf("Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Printf("Built:  %s\n", version.Date)
			}
		},
	}
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [device]",
		Short: "Show the state of the touch devices at every level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(flags)
			if err != nil {
				return err
			}

			names := env.order
			if len(args) == 1 {
				if _, err := env.device(args[0]); err != nil {
					return err
				}
				names = []string{strings.ToLower(args[0])}
			}

			table := pterm.TableData{{"Device", "Instance", "System", "User", "Effective"}}
			for _, name := range names {
				row, err := deviceRow(env.devices[name])
				if err != nil {
					return err
				}
				table = append(table, row)
			}
			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		},
	}
}

func newToggleCmd(flags *rootFlags, use, short string, state device.State, defaultMode string) *cobra.Command {
	var modeStr string

	cmd := &cobra.Command{
		Use:   use + " <device>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(flags)
			if err != nil {
				return err
			}
			d, err := env.device(args[0])
			if err != nil {
				return err
			}
			mode, err := device.ParseMode(modeStr)
			if err != nil {
				return err
			}

			d.Attach(&statusPrinter{})
			return d.Toggle(state, mode, env.options(flags))
		},
	}
	cmd.Flags().StringVarP(&modeStr, "mode", "m", defaultMode, "Level to act on: device, system or user")
	return cmd
}

func newDevicesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List all HID input devices",
		Long:  `List every HID-class device the system enumerates, matched or not.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(flags)
			if err != nil {
				return err
			}

			all, err := env.devices[env.order[0]].InfoAll(env.options(flags))
			if err != nil {
				return err
			}

			table := pterm.TableData{{"Description", "Instance ID", "Status"}}
			for _, fields := range all {
				desc, _ := fields.Lookup("Device Description")
				id, _ := fields.Lookup("Instance ID")
				status, _ := fields.Lookup("Status")
				table = append(table, []string{desc, id, status})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		},
	}
}

func newDoctorCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can control touch devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(flags)
			if err != nil {
				return err
			}

			ok := true
			if env.shell.Probe() {
				pterm.Success.Println("PowerShell is usable")
			} else {
				pterm.Error.Println("PowerShell is unavailable or disabled by policy")
				ok = false
			}

			for _, name := range env.order {
				exists, err := env.devices[name].Exists()
				switch {
				case err != nil:
					pterm.Error.Printfln("%s: enumeration failed: %v", name, err)
					ok = false
				case exists:
					pterm.Success.Printfln("%s found", name)
				default:
					pterm.Warning.Printfln("%s not present on this machine", name)
				}
			}

			if !ok {
				return errors.New(errors.ErrInternal, "environment checks failed")
			}
			return nil
		},
	}
}

func newGenConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genconfig",
		Short: "Print the default configuration",
		Long:  "Print the built-in defaults as a starting point for " + config.DefaultPath(),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.DefaultsContent())
		},
	}
}

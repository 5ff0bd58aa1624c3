package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/Yulian302/lfusys-renewal-map/auth/oauth"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/Yulian302/lfusys-renewal-map/geo"
	"github.com/Yulian302/lfusys-renewal-map/orchestrator"
	"github.com/Yulian302/lfusys-renewal-map/services"
	stypes "github.com/Yulian302/lfusys-renewal-map/services/types"
	"github.com/spf13/cobra"
)

var version = "0.1.0" // set at build time with -ldflags

type rootFlags struct {
	lat, lng     float64
	hasLocation  bool
	denyLocation bool
}

// NewRootCommand builds the todmap CLI. setup turns the flag-derived devices
// into an App and is swapped in tests.
func NewRootCommand(setup SetupFunc) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "todmap",
		Short: "Renewal-zone and TOD stop map client",
		Long: `todmap drives the renewal-map client core from a terminal.

It restores and edits the signed-in profile, fetches the renewal zones and
lists the transit-oriented-development stops near a location.

Location comes from --lat/--lng. Without them the default location
(Tucheng) is used, and --deny-location behaves like a browser with location
access blocked.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			flags.hasLocation = cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")
		},
	}
	root.PersistentFlags().Float64Var(&flags.lat, "lat", 0, "device latitude")
	root.PersistentFlags().Float64Var(&flags.lng, "lng", 0, "device longitude")
	root.PersistentFlags().BoolVar(&flags.denyLocation, "deny-location", false, "report location permission as denied")

	root.AddCommand(
		zonesCommand(setup, flags),
		nearbyCommand(setup, flags),
		sessionCommand(setup, flags),
		loginCommand(setup, flags),
		logoutCommand(setup, flags),
		watchCommand(setup, flags),
		versionCommand(),
	)
	return root
}

func (f *rootFlags) devices() Devices {
	d := Devices{}
	switch {
	case f.denyLocation:
		d.Locator = geo.DeniedLocator{}
	case f.hasLocation:
		d.Locator = geo.StaticLocator{Point: geo.GeoPoint{Lat: f.lat, Lng: f.lng}}
	}
	return d
}

// withApp runs fn against a freshly set up App with the restored session.
func withApp(cmd *cobra.Command, setup SetupFunc, devices Devices, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	app, err := setup(ctx, devices)
	if err != nil {
		return err
	}
	defer app.Shutdown(context.WithoutCancel(ctx))

	if err := app.Services.Session.Init(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}

func zonesCommand(setup SetupFunc, flags *rootFlags) *cobra.Command {
	var directory string

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List renewal zones with their centers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, setup, flags.devices(), func(ctx context.Context, app *App) error {
				if directory == "" {
					directory = app.Config.ZonesDirectory
				}
				zones := app.Services.Zones.GetZones(ctx, directory)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d zones in %s\n", len(zones), directory)
				for _, z := range zones {
					c := z.Center()
					fmt.Fprintf(out, "  #%d  %d points  center %.5f, %.5f\n", z.ID, len(z.Boundary()), c[0], c[1])
				}
				if err := app.Services.Zones.LastError(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&directory, "directory", "", "zones dataset (default from ZONES_DIRECTORY)")
	return cmd
}

func nearbyCommand(setup SetupFunc, flags *rootFlags) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List TOD stops near the current location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, setup, flags.devices(), func(ctx context.Context, app *App) error {
				loc := app.Services.Location
				_ = loc.Acquire(ctx)
				st := loc.Status()

				stops := services.FilterStops(app.Services.Nearby.GetNearby(ctx, st.Point), query)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "location %.4f, %.4f (%s)\n", st.Point.Lat, st.Point.Lng, st.Source)
				if st.Denied {
					fmt.Fprintln(out, geo.DeniedMessage)
				}
				printStops(out, stops)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter stops by name")
	return cmd
}

func sessionCommand(setup SetupFunc, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the restored profile and the screen it leads to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, setup, flags.devices(), func(ctx context.Context, app *App) error {
				snap := app.Services.Orchestrator.Refresh(ctx)
				printSnapshot(cmd.OutOrStdout(), app, snap)
				return nil
			})
		},
	}
}

func loginCommand(setup SetupFunc, flags *rootFlags) *cobra.Command {
	var (
		credential string
		fbToken    string
		guest      bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Google credential and bind Facebook or continue as guest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices := flags.devices()
			devices.Google = &oauth.StaticGoogleSDK{Credential: credential}
			devices.Facebook = &oauth.StaticFacebookSDK{AccessToken: fbToken}

			return withApp(cmd, setup, devices, func(ctx context.Context, app *App) error {
				mgr := app.Services.Session
				if credential != "" {
					if err := mgr.MountGoogle(ctx, "googleBtn"); err != nil {
						return err
					}
					if mgr.Profile().Google == nil {
						return errors.New("google credential was rejected")
					}
				}

				switch {
				case guest:
					if err := mgr.LoginGuest(ctx); err != nil {
						return err
					}
				case fbToken != "":
					if err := mgr.LoginFacebook(ctx); err != nil {
						if errors.Is(err, apperror.ErrSDKUnavailable) {
							fmt.Fprintln(cmd.ErrOrStderr(), oauth.BlockedSDKMessage)
						}
						return err
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "state: %s\n", mgr.State())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&credential, "google-credential", "", "Google ID token (JWT)")
	cmd.Flags().StringVar(&fbToken, "fb-token", "", "Facebook access token")
	cmd.Flags().BoolVar(&guest, "guest", false, "skip Facebook and continue as guest")
	cmd.MarkFlagsMutuallyExclusive("fb-token", "guest")
	return cmd
}

func logoutCommand(setup SetupFunc, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, setup, flags.devices(), func(ctx context.Context, app *App) error {
				if err := app.Services.Session.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func watchCommand(setup SetupFunc, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the session and location, printing every state change",
		Long: `watch runs the expiry watchdog and the orchestrator until interrupted.
The session is logged out as soon as its expiry passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, setup, flags.devices(), func(ctx context.Context, app *App) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				go func() { _ = app.Services.Session.Run(ctx) }()
				go func() { _ = app.Services.Orchestrator.Run(ctx) }()

				out := cmd.OutOrStdout()
				changes := app.Services.Orchestrator.Changes()
				for {
					select {
					case <-ctx.Done():
						app.Services.Orchestrator.Wait()
						return nil
					case snap := <-changes:
						printSnapshot(out, app, snap)
					}
				}
			})
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of todmap",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "todmap v%s\n", version)
		},
	}
}

func printSnapshot(out io.Writer, app *App, snap orchestrator.Snapshot) {
	fmt.Fprintf(out, "state: %s\n", app.Services.Session.State())
	fmt.Fprintf(out, "screen: %s\n", snap.Screen)

	if g := snap.Profile.Google; g != nil {
		fmt.Fprintf(out, "google: %s <%s>\n", g.Name, g.Email)
	}
	if f := snap.Profile.Facebook; f != nil {
		label := "facebook"
		if snap.Profile.IsFBGuest {
			label = "guest"
		}
		fmt.Fprintf(out, "%s: %s\n", label, f.Name)
	}
	if snap.Profile.Exp != nil {
		fmt.Fprintf(out, "expires: %d\n", *snap.Profile.Exp)
	}
	if snap.Screen != orchestrator.MainReady {
		return
	}

	fmt.Fprintf(out, "zones: %d\n", len(snap.Zones))
	fmt.Fprintf(out, "location: %.4f, %.4f (%s)\n", snap.Point.Lat, snap.Point.Lng, snap.Source)
	if snap.LocationDenied {
		fmt.Fprintln(out, geo.DeniedMessage)
	}
	printStops(out, snap.FilteredStops)
}

func printStops(out io.Writer, stops []stypes.NearbyItem) {
	fmt.Fprintf(out, "stops: %d\n", len(stops))
	for _, s := range stops {
		tod := ""
		if s.IsTOD == 1 {
			tod = " [TOD]"
		}
		fmt.Fprintf(out, "  %-12s %-24s %8.0fm%s\n", s.StopName, s.Name, s.Distance, tod)
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"workmap/internal/auth"
	"workmap/internal/cli"
	"workmap/internal/common/config"
	"workmap/internal/common/contextx"
	"workmap/internal/common/log"
	"workmap/internal/contracts"
	"workmap/internal/credstore"
	"workmap/internal/device"
	"workmap/internal/domain/geo"
	"workmap/internal/domain/user"
	"workmap/internal/mapterm"
	"workmap/internal/realtime"
	"workmap/internal/restapi"
	"workmap/internal/session"
)

func run(ctx context.Context, logger *slog.Logger, mode string, args []string) error {
	ctx = contextx.WithNewRequestID(ctx)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch mode {
	case cli.ModeRegister:
		return runRegister(ctx, logger, cfg, args)
	case cli.ModeLogin:
		return runLogin(ctx, logger, cfg, args)
	case cli.ModeLogout:
		return runLogout()
	case cli.ModeMap:
		return runMap(ctx, logger, cfg, args)
	default:
		cli.PrintUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", mode)
	}
}

func runRegister(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet(cli.ModeRegister, flag.ContinueOnError)
	cli.AttachUsage(fs, cli.ModeRegister)
	var req contracts.RegisterRequest
	fs.StringVar(&req.Nombre, "nombre", "", "first name")
	fs.StringVar(&req.Apellido, "apellido", "", "last name")
	fs.StringVar(&req.DNI, "dni", "", "national ID, 8 digits")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Password, "password", "", "password, 6+ characters")
	fs.StringVar(&req.Tipo, "tipo", "cliente", "account type: trabajador | cliente")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := validateRegistration(req); err != nil {
		return err
	}

	api := restapi.New(logger, cfg.API.BaseURL, cfg.API.Timeout)
	if err := api.Register(ctx, req); err != nil {
		return err
	}
	fmt.Println("registered, now log in:")
	fmt.Printf("  ./workmap login --email=%s --password=...\n", req.Email)
	return nil
}

func runLogin(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet(cli.ModeLogin, flag.ContinueOnError)
	cli.AttachUsage(fs, cli.ModeLogin)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	api := restapi.New(logger, cfg.API.BaseURL, cfg.API.Timeout)
	token, err := api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	// The client trusts its own token for identity display; the server
	// re-validates the signature on every call.
	claims, err := auth.ParseUnverified(token)
	if err != nil {
		return fmt.Errorf("decode access token: %w", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return fmt.Errorf("decode access token: %w", err)
	}

	store, err := credstore.Open(cachePath())
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(credstore.Saved{
		Token:   token,
		UserID:  userID,
		Roles:   strings.Join(claims.Roles, ","),
		SavedAt: time.Now(),
	}); err != nil {
		return err
	}

	log.Info(ctx, logger, "login_ok", "Session cached", slog.Int64("user_id", userID))
	fmt.Println("logged in")
	return nil
}

func runLogout() error {
	store, err := credstore.Open(cachePath())
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func runMap(ctx context.Context, logger *slog.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet(cli.ModeMap, flag.ContinueOnError)
	cli.AttachUsage(fs, cli.ModeMap)
	allowLocation := fs.Bool("allow-location", false, "skip the permission prompt and grant location access")
	lat := fs.Float64("lat", -12.0464, "simulated start latitude")
	lng := fs.Float64("lng", -77.0428, "simulated start longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}
	origin := geo.Point{Lat: *lat, Lng: *lng}
	if err := origin.Validate(); err != nil {
		return err
	}

	// A cached login enables presence publishing; without one the map
	// still works, anonymously.
	var identity *user.Identity
	var token string
	store, err := credstore.Open(cachePath())
	if err != nil {
		return err
	}
	saved, err := store.Load()
	store.Close()
	switch {
	case err == nil:
		token = saved.Token
		if role, ok := user.PrimaryRole(strings.Split(saved.Roles, ",")); ok {
			identity = &user.Identity{ID: saved.UserID, Role: role}
		}
	case errors.Is(err, credstore.ErrNoSession):
		log.Warn(ctx, logger, "anonymous_map", "No cached login, presence publishing disabled")
	default:
		return err
	}

	api := restapi.New(logger, cfg.API.BaseURL, cfg.API.Timeout)
	api.SetToken(token)
	channel := realtime.New(logger, cfg.Realtime.URL, token)
	feed := device.NewSimFeed(logger, origin)
	view := mapterm.New(os.Stdout, origin)

	var perm session.PermissionService
	if *allowLocation {
		perm = device.StaticPermission{Decision: session.DecisionGranted}
	} else {
		perm = device.NewTerminalPrompt(os.Stdin, os.Stdout)
	}

	sess := session.New(logger, session.Config{
		Watch: session.WatchOptions{
			HighAccuracy:      cfg.Location.HighAccuracy,
			MinDistanceMeters: cfg.Location.MinDistanceMeters,
			MinInterval:       cfg.Location.MinInterval,
			FastestInterval:   cfg.Location.FastestInterval,
			Timeout:           cfg.Location.Timeout,
			MaxFixAge:         cfg.Location.MaxFixAge,
		},
		RadiusKm: cfg.Location.RadiusKm,
	}, identity, perm, feed, channel, api, view)

	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Stop()

	view.Open()
	return commandLoop(ctx, os.Stdin, api, view, sess)
}

// commandLoop drives the map from in until quit or cancellation.
func commandLoop(ctx context.Context, in io.Reader, api *restapi.Client, view *mapterm.View, sess *session.Session) error {
	fmt.Println("commands: pan <dlat> <dlng> | tap <lat> <lng> | recenter | profile <titulo> <descripcion> | post <titulo> <descripcion> [precio] | quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "quit", "q", "exit":
				return nil
			case "recenter":
				sess.Recenter()
			case "pan":
				if len(fields) != 3 {
					fmt.Println("usage: pan <dlat> <dlng>")
					continue
				}
				dlat, err1 := strconv.ParseFloat(fields[1], 64)
				dlng, err2 := strconv.ParseFloat(fields[2], 64)
				if err1 != nil || err2 != nil {
					fmt.Println("usage: pan <dlat> <dlng>")
					continue
				}
				c := view.Center()
				view.Pan(geo.Point{Lat: c.Lat + dlat, Lng: c.Lng + dlng})
			case "tap":
				if len(fields) != 3 {
					fmt.Println("usage: tap <lat> <lng>")
					continue
				}
				tlat, err1 := strconv.ParseFloat(fields[1], 64)
				tlng, err2 := strconv.ParseFloat(fields[2], 64)
				if err1 != nil || err2 != nil {
					fmt.Println("usage: tap <lat> <lng>")
					continue
				}
				view.Tap(geo.Point{Lat: tlat, Lng: tlng})
			case "profile":
				if len(fields) < 3 {
					fmt.Println("usage: profile <titulo> <descripcion>")
					continue
				}
				err := api.SaveProfile(ctx, contracts.ProfileRequest{
					Titulo:      fields[1],
					Descripcion: strings.Join(fields[2:], " "),
				})
				if err != nil {
					fmt.Println("profile save failed:", err)
					continue
				}
				fmt.Println("profile saved")
			case "post":
				if len(fields) < 3 {
					fmt.Println("usage: post <titulo> <descripcion> [precio]")
					continue
				}
				req := contracts.PostingRequest{Titulo: fields[1], Descripcion: fields[2]}
				if len(fields) > 3 {
					if precio, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
						req.Precio = precio
						req.Descripcion = strings.Join(fields[2:len(fields)-1], " ")
					} else {
						req.Descripcion = strings.Join(fields[2:], " ")
					}
				}
				if err := api.CreatePosting(ctx, req); err != nil {
					fmt.Println("posting failed:", err)
					continue
				}
				fmt.Println("posting published")
			default:
				fmt.Println("unknown command:", fields[0])
			}
		}
	}
}

var dniPattern = regexp.MustCompile(`^\d{8}$`)

// validateRegistration rejects obviously bad input before the request
// leaves the machine; the server applies the same rules.
func validateRegistration(req contracts.RegisterRequest) error {
	if req.Nombre == "" || req.Apellido == "" {
		return errors.New("nombre and apellido are required")
	}
	if !dniPattern.MatchString(req.DNI) {
		return errors.New("dni must be exactly 8 digits")
	}
	if !strings.Contains(req.Email, "@") {
		return errors.New("email looks invalid")
	}
	if len(req.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if _, err := user.ParseRole(req.Tipo); err != nil {
		return errors.New("tipo must be trabajador or cliente")
	}
	return nil
}

// cachePath puts the credential cache under the user config dir, falling
// back to the working directory.
func cachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "workmap-session.db"
	}
	dir = filepath.Join(dir, "workmap")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "workmap-session.db"
	}
	return filepath.Join(dir, "session.db")
}

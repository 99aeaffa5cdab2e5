// cmd/droplink/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/droplink-app/droplink/internal/config"
	"github.com/droplink-app/droplink/internal/domain"
	"github.com/droplink-app/droplink/internal/service"
	"github.com/droplink-app/droplink/pkg/logger"
)

func newConfigDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Usage:   "Directory holding credentials and settings",
		EnvVars: []string{"DROPLINK_CONFIG_DIR"},
	}
}

func main() {
	// Load .env so flag EnvVars can pick values up
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "droplink",
		Usage: "Share files: validate, pack, upload, get a link",
		Flags: []cli.Flag{
			newConfigDirFlag(),
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			dropCommand(),
			validateCommand(),
			configCommand(),
			demoCommand(),
			deleteCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("Command failed")
	}
}

// newDropService builds the service stack shared by all commands. The
// config-dir flag wins over APP_CONFIG_DIR.
func newDropService(c *cli.Context) (*service.DropService, *config.Store, error) {
	cfg := config.Load()

	configDir := cfg.App.ConfigDir
	if dir := c.String("config-dir"); dir != "" {
		configDir = dir
	}

	store, err := config.NewStore(configDir)
	if err != nil {
		return nil, nil, err
	}
	return service.NewDropService(store, cfg.App.OutputDir, cfg.App.MaxConcurrentDrops), store, nil
}

func dropCommand() *cli.Command {
	return &cli.Command{
		Name:      "drop",
		Usage:     "Process files and print the artifact path or public link",
		ArgsUsage: "FILE [FILE...]",
		Flags: []cli.Flag{
			newConfigDirFlag(),
			&cli.StringFlag{
				Name:    "output-dir",
				Usage:   "Directory for processed artifacts",
				EnvVars: []string{"APP_OUTPUT_DIR"},
			},
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Keep the artifact on disk instead of uploading",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Upload the artifact even when demo mode is on",
			},
		},
		Action: runDrop,
	}
}

func runDrop(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no files given, see 'droplink drop --help'", 2)
	}
	if c.Bool("local") && c.Bool("remote") {
		return cli.Exit("--local and --remote are mutually exclusive", 2)
	}

	mode := ""
	if c.Bool("local") {
		mode = domain.ModeLocal
	}
	if c.Bool("remote") {
		mode = domain.ModeRemote
	}

	svc, _, err := newDropService(c)
	if err != nil {
		return err
	}

	result, err := svc.Drop(c.Context, c.Args().Slice(), service.DropOptions{
		OutputDir: c.String("output-dir"),
		Mode:      mode,
	})
	if err != nil {
		return err
	}

	if result.Upload != nil {
		fmt.Println(result.Upload.URL)
	} else {
		fmt.Println(result.Artifact.Path)
	}
	return nil
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check that the saved storage credentials can write to the bucket",
		Flags: []cli.Flag{newConfigDirFlag()},
		Action: func(c *cli.Context) error {
			svc, _, err := newDropService(c)
			if err != nil {
				return err
			}
			if err := svc.ValidateStorage(c.Context); err != nil {
				return err
			}
			fmt.Println("storage credentials are valid")
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage storage credentials",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Save bucket credentials",
				Flags: []cli.Flag{
					newConfigDirFlag(),
					&cli.StringFlag{
						Name:     "access-key",
						Usage:    "R2 access key id",
						Required: true,
						EnvVars:  []string{"R2_ACCESS_KEY_ID"},
					},
					&cli.StringFlag{
						Name:     "secret-key",
						Usage:    "R2 secret access key",
						Required: true,
						EnvVars:  []string{"R2_SECRET_ACCESS_KEY"},
					},
					&cli.StringFlag{
						Name:     "bucket",
						Usage:    "Bucket name",
						Required: true,
						EnvVars:  []string{"R2_BUCKET"},
					},
					&cli.StringFlag{
						Name:    "account-id",
						Usage:   "Cloudflare account id",
						EnvVars: []string{"R2_ACCOUNT_ID"},
					},
					&cli.StringFlag{
						Name:     "public-url",
						Usage:    "Public base URL serving the bucket",
						Required: true,
						EnvVars:  []string{"R2_PUBLIC_URL"},
					},
					&cli.StringFlag{
						Name:    "endpoint",
						Usage:   "Custom S3-compatible endpoint",
						EnvVars: []string{"R2_ENDPOINT"},
					},
				},
				Action: func(c *cli.Context) error {
					_, store, err := newDropService(c)
					if err != nil {
						return err
					}
					err = store.SaveStorageConfig(config.StorageConfig{
						AccessKey:     c.String("access-key"),
						SecretKey:     c.String("secret-key"),
						Bucket:        c.String("bucket"),
						AccountID:     c.String("account-id"),
						PublicBaseURL: c.String("public-url"),
						Endpoint:      c.String("endpoint"),
					})
					if err != nil {
						return err
					}
					fmt.Println("storage configuration saved")
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show the saved configuration without the secret",
				Flags: []cli.Flag{newConfigDirFlag()},
				Action: func(c *cli.Context) error {
					_, store, err := newDropService(c)
					if err != nil {
						return err
					}
					status, err := store.Status()
					if err != nil {
						return err
					}
					out, err := json.MarshalIndent(status, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "Remove saved credentials",
				Flags: []cli.Flag{newConfigDirFlag()},
				Action: func(c *cli.Context) error {
					_, store, err := newDropService(c)
					if err != nil {
						return err
					}
					if err := store.ClearStorageConfig(); err != nil {
						return err
					}
					fmt.Println("storage configuration cleared")
					return nil
				},
			},
		},
	}
}

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:      "demo",
		Usage:     "Turn demo mode on or off (demo keeps drops local)",
		ArgsUsage: "on|off",
		Flags:     []cli.Flag{newConfigDirFlag()},
		Action: func(c *cli.Context) error {
			var enabled bool
			switch c.Args().First() {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return cli.Exit("expected exactly one argument: on or off", 2)
			}

			_, store, err := newDropService(c)
			if err != nil {
				return err
			}
			if err := store.SaveSettings(config.Settings{DemoMode: enabled}); err != nil {
				return err
			}
			fmt.Println("demo mode", c.Args().First())
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an uploaded object by key",
		ArgsUsage: "KEY",
		Flags:     []cli.Flag{newConfigDirFlag()},
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return cli.Exit("object key is required", 2)
			}

			svc, _, err := newDropService(c)
			if err != nil {
				return err
			}
			if err := svc.DeleteObject(c.Context, key); err != nil {
				return err
			}
			fmt.Println("deleted", key)
			return nil
		},
	}
}

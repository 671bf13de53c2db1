package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/cmd/flags"
	"github.com/plukevdh/go-keydir/cryptoutils"
	"github.com/plukevdh/go-keydir/directory"
	"github.com/plukevdh/go-keydir/discovery"
	"github.com/plukevdh/go-keydir/interfaces"
	"github.com/plukevdh/go-keydir/keyring"
)

var globalFlags = append([]cli.Flag{
	flags.ServerAddrFlag,
	flags.DNSResolverFlag,
	flags.ConfigFlag,
}, flags.LogFlags...)

func main() {
	app := &cli.App{
		Name:  "keydir",
		Usage: "Client for the keydir identity directory",
		Flags: globalFlags,
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			lookupCommand(),
			keyCommand(),
			postAuthCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// clientEnv bundles what every command needs: the logger, the resolved
// configuration, the transport, and the config directory holding the
// session pointer.
type clientEnv struct {
	log       *slog.Logger
	cfg       Config
	transport *api.Client
	configDir string
}

func newClientEnv(cCtx *cli.Context) (*clientEnv, error) {
	logger := flags.SetupLogger(cCtx)

	configDir, err := defaultConfigDir()
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(cCtx.String(flags.ConfigFlag.Name), configDir)
	if err != nil {
		return nil, err
	}

	// Flags override file values.
	if cCtx.IsSet(flags.ServerAddrFlag.Name) || cfg.Server == "" {
		cfg.Server = cCtx.String(flags.ServerAddrFlag.Name)
	}
	if cCtx.IsSet(flags.DNSResolverFlag.Name) {
		cfg.DNSResolver = cCtx.String(flags.DNSResolverFlag.Name)
	}

	serverAddr, err := resolveServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &clientEnv{
		log:       logger,
		cfg:       cfg,
		transport: &api.Client{ServerAddr: serverAddr},
		configDir: configDir,
	}, nil
}

// resolveServer turns the configured server value into a base address,
// discovering through DNS SRV when it carries the srv: prefix.
func resolveServer(cfg Config, logger *slog.Logger) (string, error) {
	domain, ok := strings.CutPrefix(cfg.Server, "srv:")
	if !ok {
		return cfg.Server, nil
	}

	resolver := discovery.NewResolver(cfg.DNSResolver)
	endpoints, err := resolver.Resolve(domain)
	if err != nil {
		return "", fmt.Errorf("could not discover directory servers for %s: %w", domain, err)
	}
	if len(endpoints) == 0 {
		return "", fmt.Errorf("no directory servers advertised for %s", domain)
	}

	logger.Debug("discovered directory server", "domain", domain, "addr", endpoints[0].Addr())
	return endpoints[0].Addr(), nil
}

// sessionStore opens the configured session keyring store.
func (env *clientEnv) sessionStore() (interfaces.ArtifactStore, error) {
	location, err := interfaces.NewKeyringLocation(env.cfg.SessionStore)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidStoreURI, err)
	}
	return keyring.NewStoreFactory(env.log).StoreFor(location)
}

// keyStore opens the configured keyring stores as one replicated
// multi-store for cached key artifacts.
func (env *clientEnv) keyStore() (interfaces.ArtifactStore, error) {
	locations := make([]interfaces.KeyringLocation, 0, len(env.cfg.KeyringStores))
	for _, uri := range env.cfg.KeyringStores {
		location, err := interfaces.NewKeyringLocation(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidStoreURI, err)
		}
		locations = append(locations, location)
	}
	return keyring.NewStoreFactory(env.log).CreateMultiStore(locations)
}

func (env *clientEnv) sessionPointerPath() string {
	return filepath.Join(env.configDir, "session.id")
}

// saveSession persists the session through the keyring store and
// records the artifact ID so later invocations can resume it.
func (env *clientEnv) saveSession(ctx context.Context, s *directory.Session) error {
	store, err := env.sessionStore()
	if err != nil {
		return err
	}

	id, err := s.SaveSession(ctx, store)
	if err != nil {
		return err
	}

	return os.WriteFile(env.sessionPointerPath(), []byte(id.String()), 0600)
}

// resumeSession rebuilds the session saved by a previous invocation.
func (env *clientEnv) resumeSession(ctx context.Context) (*directory.Session, error) {
	pointer, err := os.ReadFile(env.sessionPointerPath())
	if err != nil {
		return nil, fmt.Errorf("%w: no saved session, run `keydir login` first", interfaces.ErrSession)
	}

	id, err := interfaces.NewArtifactIDFromHex(strings.TrimSpace(string(pointer)))
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt session pointer: %v", interfaces.ErrSession, err)
	}

	store, err := env.sessionStore()
	if err != nil {
		return nil, err
	}

	return directory.ResumeSession(ctx, env.transport, env.log, store, id)
}

// readPassphrase gets the login passphrase without echoing it. The
// environment variable is the non-interactive escape hatch.
func readPassphrase() (string, error) {
	if passphrase := os.Getenv("KEYDIR_PASSPHRASE"); passphrase != "" {
		return passphrase, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("stdin is not a terminal: set KEYDIR_PASSPHRASE")
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("could not read passphrase: %w", err)
	}
	return string(raw), nil
}

// readInput loads a payload from a file, or stdin when path is "-" or
// empty.
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Authenticate against the directory and persist the session",
		ArgsUsage: "<username-or-email>",
		Action: func(cCtx *cli.Context) error {
			identifier := cCtx.Args().First()
			if identifier == "" {
				return fmt.Errorf("%w: username or email argument is required", interfaces.ErrInput)
			}

			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			passphrase, err := readPassphrase()
			if err != nil {
				return err
			}

			session := directory.NewSession(env.transport, env.log)
			user, err := session.Login(cCtx.Context, identifier, passphrase)
			if err != nil {
				return err
			}

			if err := env.saveSession(cCtx.Context, session); err != nil {
				return fmt.Errorf("logged in, but could not persist the session: %w", err)
			}

			fmt.Printf("Logged in as %s (%s)\n", user.Basics.Username, user.ID)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Terminate all directory sessions for the account",
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			session, err := env.resumeSession(cCtx.Context)
			if err != nil {
				return err
			}

			if err := session.Logout(cCtx.Context); err != nil {
				return err
			}

			if err := os.Remove(env.sessionPointerPath()); err != nil && !os.IsNotExist(err) {
				env.log.Warn("could not remove session pointer", "err", err)
			}

			fmt.Println("Logged out")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Print the account of the saved session",
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			session, err := env.resumeSession(cCtx.Context)
			if err != nil {
				return err
			}

			fmt.Println(session.Username())
			return nil
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Fetch the public directory record of a user",
		ArgsUsage: "<username>",
		Action: func(cCtx *cli.Context) error {
			username := cCtx.Args().First()
			if username == "" {
				return fmt.Errorf("%w: username argument is required", interfaces.ErrInput)
			}

			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			session := directory.NewSession(env.transport, env.log)
			user, err := session.Lookup(cCtx.Context, username)
			if err != nil {
				return err
			}

			return printJSON(user)
		},
	}
}

func keyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Keyring operations",
		Subcommands: []*cli.Command{
			keyFetchCommand(),
			keyAddCommand(),
			keyAddPrivateCommand(),
			keyRevokeCommand(),
			keyBackupCommand(),
			keyRestoreCommand(),
			keyCacheCommand(),
			keyShowCommand(),
		},
	}
}

func keyFetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch key records by kid",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "kid",
				Required: true,
				Usage:    "key ID to fetch; repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "ops",
				Value: cli.NewStringSlice("verify"),
				Usage: "requested operations: encrypt, decrypt, verify, sign; repeatable",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			kids := make([]interfaces.KeyID, 0, len(cCtx.StringSlice("kid")))
			for _, raw := range cCtx.StringSlice("kid") {
				kid, err := interfaces.NewKeyIDFromHex(raw)
				if err != nil {
					return fmt.Errorf("%w: bad kid %q: %v", interfaces.ErrInput, raw, err)
				}
				kids = append(kids, kid)
			}

			ops := make([]interfaces.KeyOp, 0, len(cCtx.StringSlice("ops")))
			for _, name := range cCtx.StringSlice("ops") {
				op, err := interfaces.ParseKeyOp(name)
				if err != nil {
					return err
				}
				ops = append(ops, op)
			}

			session := directory.NewSession(env.transport, env.log)
			records, err := session.FetchKeys(cCtx.Context, kids, ops)
			if err != nil {
				return err
			}

			return printJSON(records)
		},
	}
}

func keyAddCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Publish an armored public key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "armored key file; stdin when omitted",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			armored, err := readInput(cCtx.String("file"))
			if err != nil {
				return fmt.Errorf("could not read key: %w", err)
			}

			session, err := env.resumeSession(cCtx.Context)
			if err != nil {
				return err
			}

			kid, err := session.AddPublicKey(cCtx.Context, string(armored))
			if err != nil {
				return err
			}

			fmt.Println(kid.String())
			return nil
		},
	}
}

func keyAddPrivateCommand() *cli.Command {
	return &cli.Command{
		Name:  "add-private",
		Usage: "Upload an encoded private-key bundle (publish the public half first)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "encoded bundle file; stdin when omitted",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			encoded, err := readInput(cCtx.String("file"))
			if err != nil {
				return fmt.Errorf("could not read bundle: %w", err)
			}

			session, err := env.resumeSession(cCtx.Context)
			if err != nil {
				return err
			}

			kid, err := session.AddPrivateKey(cCtx.Context, encoded)
			if err != nil {
				return err
			}

			fmt.Println(kid.String())
			return nil
		},
	}
}

func keyRevokeCommand() *cli.Command {
	return &cli.Command{
		Name:  "revoke",
		Usage: "Destructively delete a key from the account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "kid",
				Required: true,
				Usage:    "key ID to revoke",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			kid, err := interfaces.NewKeyIDFromHex(cCtx.String("kid"))
			if err != nil {
				return fmt.Errorf("%w: bad kid: %v", interfaces.ErrInput, err)
			}

			session, err := env.resumeSession(cCtx.Context)
			if err != nil {
				return err
			}

			if err := session.RevokeKey(cCtx.Context, kid); err != nil {
				return err
			}

			fmt.Println("Revoked", kid.String())
			return nil
		},
	}
}

func keyBackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Split a private-key bundle into Shamir backup shares",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "encoded bundle file; stdin when omitted",
			},
			&cli.IntFlag{
				Name:  "shares",
				Value: 5,
				Usage: "number of shares to produce",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Value: 3,
				Usage: "shares required to reconstruct",
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Value: ".",
				Usage: "directory to write share files into",
			},
		},
		Action: func(cCtx *cli.Context) error {
			bundle, err := readInput(cCtx.String("file"))
			if err != nil {
				return fmt.Errorf("could not read bundle: %w", err)
			}

			shares, err := cryptoutils.SplitKeyShares(bundle, cCtx.Int("shares"), cCtx.Int("threshold"))
			if err != nil {
				return err
			}

			outDir := cCtx.String("out-dir")
			for i, share := range shares {
				path := filepath.Join(outDir, fmt.Sprintf("keydir-share-%d.hex", i+1))
				if err := os.WriteFile(path, []byte(hex.EncodeToString(share)+"\n"), 0600); err != nil {
					return fmt.Errorf("could not write share %d: %w", i+1, err)
				}
				fmt.Println(path)
			}
			return nil
		},
	}
}

func keyRestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Reconstruct a private-key bundle from Shamir shares",
		ArgsUsage: "<share-file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Required: true,
				Usage:    "file to write the reconstructed bundle to",
			},
		},
		Action: func(cCtx *cli.Context) error {
			if cCtx.Args().Len() == 0 {
				return fmt.Errorf("%w: at least one share file is required", interfaces.ErrInput)
			}

			parts := make([][]byte, 0, cCtx.Args().Len())
			for _, path := range cCtx.Args().Slice() {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("could not read share %s: %w", path, err)
				}
				share, err := hex.DecodeString(strings.TrimSpace(string(raw)))
				if err != nil {
					return fmt.Errorf("%w: share %s is not hex: %v", interfaces.ErrInput, path, err)
				}
				parts = append(parts, share)
			}

			bundle, err := cryptoutils.CombineKeyShares(parts)
			if err != nil {
				return err
			}

			if err := os.WriteFile(cCtx.String("out"), bundle, 0600); err != nil {
				return fmt.Errorf("could not write bundle: %w", err)
			}

			fmt.Println("Restored", cCtx.String("out"))
			return nil
		},
	}
}

func keyCacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Seal a private-key bundle and replicate it across the keyring stores",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "encoded bundle file; stdin when omitted",
			},
			&cli.StringFlag{
				Name:     "sealing-key",
				Required: true,
				Usage:    "64-hex-char AES-256 sealing key",
				EnvVars:  []string{"KEYDIR_SEALING_KEY"},
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			bundle, err := readInput(cCtx.String("file"))
			if err != nil {
				return fmt.Errorf("could not read bundle: %w", err)
			}

			sealingKey, err := hex.DecodeString(cCtx.String("sealing-key"))
			if err != nil {
				return fmt.Errorf("%w: sealing key is not hex: %v", interfaces.ErrInput, err)
			}

			sealed, err := cryptoutils.SealKeyBundle(sealingKey, bundle)
			if err != nil {
				return err
			}

			store, err := env.keyStore()
			if err != nil {
				return err
			}

			id, err := store.Store(cCtx.Context, sealed, interfaces.KeyArtifact)
			if err != nil {
				return err
			}

			fmt.Println(id.String())
			return nil
		},
	}
}

func keyShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Fetch a sealed bundle from the keyring stores and open it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Required: true,
				Usage:    "artifact ID returned by `key cache`",
			},
			&cli.StringFlag{
				Name:     "sealing-key",
				Required: true,
				Usage:    "64-hex-char AES-256 sealing key",
				EnvVars:  []string{"KEYDIR_SEALING_KEY"},
			},
			&cli.StringFlag{
				Name:     "out",
				Required: true,
				Usage:    "file to write the opened bundle to",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			id, err := interfaces.NewArtifactIDFromHex(cCtx.String("id"))
			if err != nil {
				return fmt.Errorf("%w: bad artifact ID: %v", interfaces.ErrInput, err)
			}

			sealingKey, err := hex.DecodeString(cCtx.String("sealing-key"))
			if err != nil {
				return fmt.Errorf("%w: sealing key is not hex: %v", interfaces.ErrInput, err)
			}

			store, err := env.keyStore()
			if err != nil {
				return err
			}

			sealed, err := store.Fetch(cCtx.Context, id, interfaces.KeyArtifact)
			if err != nil {
				return err
			}

			bundle, err := cryptoutils.OpenKeyBundle(sealingKey, sealed)
			if err != nil {
				return err
			}

			if err := os.WriteFile(cCtx.String("out"), bundle, 0600); err != nil {
				return fmt.Errorf("could not write bundle: %w", err)
			}

			fmt.Println("Wrote", cCtx.String("out"))
			return nil
		},
	}
}

func postAuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "postauth",
		Usage: "Post a signed authentication certificate and print the auth token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "signature payload file; stdin when omitted",
			},
		},
		Action: func(cCtx *cli.Context) error {
			env, err := newClientEnv(cCtx)
			if err != nil {
				return err
			}

			payload, err := readInput(cCtx.String("file"))
			if err != nil {
				return fmt.Errorf("could not read payload: %w", err)
			}

			session, err := env.resumeSession(cCtx.Context)
			if err != nil {
				return err
			}

			token, err := session.PostAuth(cCtx.Context, payload)
			if err != nil {
				return err
			}

			fmt.Println(token.String())
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fydp-portal/internal/auth"
	"github.com/fydp-portal/internal/config"
	"github.com/fydp-portal/internal/logger"
	"github.com/fydp-portal/internal/model"
	"github.com/fydp-portal/internal/portal"
	"github.com/fydp-portal/internal/startup"
	"github.com/fydp-portal/internal/storage"
	"github.com/fydp-portal/internal/storage/devstore"
	"github.com/fydp-portal/internal/storage/memory"
)

const usage = `usage: portal <command> [flags]

commands:
  signup  -user ID -password PW [-role student]   register an account
  login   -user ID -password PW                   sign in and store credentials
  logout                                          forget stored credentials
  chat    [-user ID -password PW]                 AI assistant chat
  group   [-user ID -password PW]                 group formation
`

func main() {
	logger.SetPrefix("portal")
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	user := fs.String("user", "", "gsuite id")
	password := fs.String("password", "", "password")
	role := fs.String("role", string(model.UserRoleStudent), "role for signup")
	profile := fs.String("profile", cfg.Profile, "credential profile")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := portal.NewClient(cfg.APIBaseURL, nil, &http.Client{Timeout: cfg.HTTPTimeout})

	switch cmd {
	case "signup":
		if *user == "" || *password == "" {
			return errors.New("signup requires -user and -password")
		}
		id, err := client.SignUp(ctx, *user, *password, model.UserRole(*role))
		if err != nil {
			return errors.New(portal.Message(err, "Sign up failed."))
		}
		fmt.Fprintf(out, "registered %s (id %s)\n", *user, id)
		return nil
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case "login":
		if *user == "" || *password == "" {
			return errors.New("login requires -user and -password")
		}
		sess, err := auth.Login(ctx, client, store, *profile, *user, *password)
		if err != nil {
			return errors.New(portal.Message(err, "Sign in failed."))
		}
		fmt.Fprintf(out, "signed in as %s (%s)\n", sess.Subject(), sess.Role())
		if cfg.CredentialStore == "memory" {
			fmt.Fprintln(out, "note: credential_store=memory, credentials are not kept after exit")
		}
		return nil
	case "logout":
		if err := auth.Logout(ctx, store, *profile); err != nil {
			return err
		}
		fmt.Fprintln(out, "signed out")
		return nil
	case "chat", "group":
		sess, err := session(ctx, client, store, *profile, *user, *password)
		if err != nil {
			return err
		}
		if err := sess.Require(model.UserRoleStudent); err != nil {
			return err
		}
		client = client.WithTokens(sess)
		if cmd == "chat" {
			return runChat(ctx, client, in, out)
		}
		return runGroup(ctx, client, cfg, in, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// session входит по -user/-password, если они заданы, иначе берёт сохранённые учётные данные.
func session(ctx context.Context, client *portal.Client, store storage.CredentialStore, profile, user, password string) (*auth.Session, error) {
	if user != "" {
		sess, err := auth.Login(ctx, client, store, profile, user, password)
		if err != nil {
			return nil, errors.New(portal.Message(err, "Sign in failed."))
		}
		return sess, nil
	}
	sess, err := auth.Restore(ctx, store, profile)
	if errors.Is(err, auth.ErrNotLoggedIn) {
		return nil, errors.New("not logged in: run `portal login` or pass -user and -password")
	}
	return sess, err
}

func openStore(cfg *config.Config) (storage.CredentialStore, error) {
	switch cfg.CredentialStore {
	case "redis":
		return startup.ConnectRedisWithRetry(cfg.RedisURL, cfg.CredentialTTL, 10*time.Second)
	case "file":
		return devstore.New(cfg.CredentialFile, cfg.CredentialTTL), nil
	default:
		return memory.New(cfg.CredentialTTL), nil
	}
}

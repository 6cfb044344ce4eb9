// Command client is a small interactive shell over the session runtime,
// mainly for exercising a deployment by hand.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/konekta/identity/internal/client"
	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
	"github.com/konekta/identity/internal/infrastructure/config"
	"github.com/konekta/identity/pkg/logger"
)

func main() {
	cfg := config.LoadClient()

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})

	rt, err := client.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("runtime start failed")
	}
	defer func() { _ = rt.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.StartSync(ctx)

	fmt.Println("konekta session shell (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("konekta %s > ", prompt(ctx, rt))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Println("commands: signup <first> <last> <email> [password], login <email> [password],")
			fmt.Println("          set-password <password>, onboard <interest,...>|skip,")
			fmt.Println("          profile <username> [full name], status, route, logout, exit")

		case "signup":
			if len(args) < 3 {
				fmt.Println("usage: signup <first> <last> <email> [password]")
				continue
			}
			input := ports.SignupInput{FirstName: args[0], LastName: args[1], Email: args[2]}
			if len(args) > 3 {
				input.Secret = args[3]
			}
			report(rt.Sessions().Signup(ctx, input))

		case "login":
			if len(args) < 1 {
				fmt.Println("usage: login <email> [password]")
				continue
			}
			secret := ""
			if len(args) > 1 {
				secret = args[1]
			}
			report(rt.Sessions().Login(ctx, args[0], secret))

		case "set-password":
			if len(args) != 1 {
				fmt.Println("usage: set-password <password>")
				continue
			}
			report(rt.Sessions().SetPassword(ctx, args[0]))

		case "onboard":
			if len(args) == 1 && args[0] == "skip" {
				report(rt.Sessions().CompleteOnboarding(ctx, nil, true))
				continue
			}
			if len(args) != 1 {
				fmt.Println("usage: onboard <interest,interest,...> | onboard skip")
				continue
			}
			report(rt.Sessions().CompleteOnboarding(ctx, strings.Split(args[0], ","), false))

		case "profile":
			if len(args) < 1 {
				fmt.Println("usage: profile <username> [full name]")
				continue
			}
			report(rt.Sessions().CompleteProfileSetup(ctx, ports.ProfileSetupInput{
				Username: args[0],
				FullName: strings.Join(args[1:], " "),
			}))

		case "status":
			report(rt.Sessions().Current(ctx))

		case "route":
			fmt.Println(rt.Route(ctx))

		case "logout":
			if err := rt.Sessions().Logout(ctx); err != nil {
				fmt.Println("error:", err)
			}

		case "exit", "quit":
			return

		default:
			fmt.Println("unknown command:", cmd)
		}
	}
}

func prompt(ctx context.Context, rt *client.Runtime) string {
	sess, err := rt.Sessions().Current(ctx)
	if err != nil || sess == nil || sess.User == nil {
		return "(anonymous)"
	}
	return sess.User.Email
}

func report(sess *domain.Session, err error) {
	if err != nil {
		fmt.Printf("error: %v (%s)\n", err, domain.ReasonCode(err))
		return
	}
	if sess == nil || sess.User == nil {
		fmt.Println("no session")
		return
	}
	fmt.Printf("%s  stage=%s pendingSync=%v\n", sess.User.Email, sess.Stage, sess.PendingSync)
}

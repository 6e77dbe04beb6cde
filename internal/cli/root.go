package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"storefront/internal/authstate"
)

func (a *App) getStatus(ctx context.Context) string {
	if user := a.session.CurrentUser(ctx); user != nil && a.isLoggedIn(ctx) {
		return fmt.Sprintf("(%s)", user.Email)
	}
	return "(guest)"
}

// Root runs the command loop until EOF or an explicit exit. Command handlers
// print their own errors; the loop only routes.
func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to the storefront CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	// Notify on session changes driven by the background refresh loop, not
	// just by typed commands.
	a.coord.AddListener(func(snap authstate.Snapshot) {
		if !snap.Authenticated {
			fmt.Println("\nSession ended, please log in again")
		}
	})

	if email := a.session.RememberedEmail(ctx); email != "" {
		fmt.Printf("Welcome back, %s\n", email)
	}

	for {
		fmt.Printf("sf %s> ", a.getStatus(ctx))
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				fmt.Println("Available commands: whoami, profile, update, avatar, changepw, addresses, addaddr, editaddr, deladdr, setdefault, delaccount, logout, exit")
			} else {
				fmt.Println("Available commands: register, verify, resend, login, forgot, reset, exit")
			}

		case "register":
			a.register(ctx)
		case "verify":
			a.verify(ctx)
		case "resend":
			a.resend(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "forgot":
			a.forgotPassword(ctx)
		case "reset":
			a.resetPassword(ctx)
		case "changepw":
			a.changePassword(ctx)
		case "whoami":
			a.whoami(ctx)
		case "profile":
			a.showProfile(ctx)
		case "update":
			a.updateProfile(ctx)
		case "avatar":
			a.uploadAvatar(ctx)
		case "delaccount":
			a.deleteAccount(ctx)
		case "addresses", "list":
			a.listAddresses(ctx)
		case "addaddr":
			a.addAddress(ctx)
		case "editaddr":
			if len(args) == 0 {
				fmt.Println("Usage: editaddr <id>")
				continue
			}
			a.editAddress(ctx, args[0])
		case "deladdr":
			if len(args) == 0 {
				fmt.Println("Usage: deladdr <id>")
				continue
			}
			a.deleteAddress(ctx, args[0])
		case "setdefault":
			if len(args) == 0 {
				fmt.Println("Usage: setdefault <id>")
				continue
			}
			a.setDefaultAddress(ctx, args[0])
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"storefront/internal/gateway"
	"storefront/internal/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", os.Stdout)
	if err != nil {
		return err
	}
	firstName, err := getSimpleText(a.reader, "Enter first name", os.Stdout)
	if err != nil {
		return err
	}
	lastName, err := getSimpleText(a.reader, "Enter last name", os.Stdout)
	if err != nil {
		return err
	}
	phone, err := getSimpleText(a.reader, "Enter phone (optional)", os.Stdout)
	if err != nil {
		return err
	}

	pending, err := a.session.Register(ctx, gateway.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
		Phone:     phone,
	})
	if err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}

	fmt.Printf("A verification code was sent to %s. Run 'verify' to finish.\n", pending.Email)
	return nil
}

func (a *App) verify(ctx context.Context) error {
	pending := a.session.PendingRegistration()
	if pending == nil {
		fmt.Println("No registration awaiting verification; run 'register' first")
		return nil
	}

	code, err := getSimpleText(a.reader, "Enter the 6-digit verification code", os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.session.VerifyOTP(ctx, pending.UserID, code)
	if err != nil {
		fmt.Println("Verification failed:", err)
		return err
	}

	fmt.Printf("Welcome, %s! You are now logged in.\n", user.FirstName)
	return nil
}

func (a *App) resend(ctx context.Context) error {
	pending := a.session.PendingRegistration()
	if pending == nil {
		fmt.Println("No registration awaiting verification; run 'register' first")
		return nil
	}

	if err := a.session.ResendOTP(ctx, pending.UserID); err != nil {
		fmt.Println("Resend failed:", err)
		return err
	}
	fmt.Printf("A new code was sent to %s\n", pending.Email)
	return nil
}

func (a *App) login(ctx context.Context) error {
	prompt := "Enter email"
	if remembered := a.session.RememberedEmail(ctx); remembered != "" {
		prompt = fmt.Sprintf("Enter email (Enter for %s)", remembered)
	}
	email, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return err
	}
	if email == "" {
		email = a.session.RememberedEmail(ctx)
	}

	password, err := getPassword("Enter password", os.Stdout)
	if err != nil {
		return err
	}

	remember, err := getSimpleText(a.reader, "Remember email? (y/N)", os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, email, password, remember == "y" || remember == "Y")
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fmt.Println("Invalid email or password")
		} else {
			fmt.Println("Login failed:", err)
		}
		return err
	}

	fmt.Printf("Welcome back, %s!\n", user.FirstName)
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		fmt.Println("Logout failed:", err)
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func (a *App) forgotPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter account email", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.ForgotPassword(ctx, email); err != nil {
		fmt.Println("Request failed:", err)
		return err
	}
	fmt.Printf("If %s is registered, a reset link was sent. Run 'reset' with the token from the email.\n", email)
	return nil
}

func (a *App) resetPassword(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter the reset token", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter new password", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.ResetPassword(ctx, token, password); err != nil {
		fmt.Println("Reset failed:", err)
		return err
	}
	fmt.Println("Password updated, you can log in now")
	return nil
}

func (a *App) changePassword(ctx context.Context) error {
	current, err := getPassword("Enter current password", os.Stdout)
	if err != nil {
		return err
	}
	next, err := getPassword("Enter new password", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.session.ChangePassword(ctx, current, next); err != nil {
		fmt.Println("Change failed:", err)
		return err
	}
	fmt.Println("Password changed")
	return nil
}

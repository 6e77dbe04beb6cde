package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"storefront/internal/models"
)

// whoami answers from the local cache only; no network round-trip.
func (a *App) whoami(ctx context.Context) error {
	user := a.session.CurrentUser(ctx)
	if user == nil || !a.session.IsAuthenticated(ctx) {
		fmt.Println("Not logged in")
		return nil
	}
	fmt.Printf("%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}

func (a *App) showProfile(ctx context.Context) error {
	user, stale, err := a.profile.GetProfile(ctx)
	if err != nil {
		fmt.Println("Cannot load profile:", err)
		return err
	}
	if stale {
		fmt.Println("(server unreachable, showing cached data)")
	}

	fmt.Printf("Email:      %s\n", user.Email)
	fmt.Printf("Name:       %s %s\n", user.FirstName, user.LastName)
	if user.Phone != "" {
		fmt.Printf("Phone:      %s\n", user.Phone)
	}
	if user.DateOfBirth != "" {
		fmt.Printf("Birth date: %s\n", user.DateOfBirth)
	}
	if user.Gender != "" {
		fmt.Printf("Gender:     %s\n", user.Gender)
	}
	if user.AvatarURL != "" {
		fmt.Printf("Avatar:     %s\n", user.AvatarURL)
	}
	return nil
}

// updateProfile prompts for each editable field; an empty answer leaves the
// field unchanged (it is simply not sent).
func (a *App) updateProfile(ctx context.Context) error {
	var upd models.ProfileUpdate

	fields := []struct {
		prompt string
		dst    **string
	}{
		{"First name (Enter to keep)", &upd.FirstName},
		{"Last name (Enter to keep)", &upd.LastName},
		{"Email (Enter to keep)", &upd.Email},
		{"Phone (Enter to keep)", &upd.Phone},
		{"Date of birth YYYY-MM-DD (Enter to keep)", &upd.DateOfBirth},
		{"Gender (Enter to keep)", &upd.Gender},
	}
	for _, f := range fields {
		value, err := getSimpleText(a.reader, f.prompt, os.Stdout)
		if err != nil {
			return err
		}
		if value != "" {
			v := value
			*f.dst = &v
		}
	}

	user, err := a.profile.UpdateProfile(ctx, upd)
	if err != nil {
		fmt.Println("Update failed:", err)
		return err
	}
	fmt.Printf("Profile updated for %s %s\n", user.FirstName, user.LastName)
	return nil
}

func (a *App) uploadAvatar(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Path to image file", os.Stdout)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("Cannot read file:", err)
		return err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))

	url, err := a.profile.UpdateAvatar(ctx, data, contentType)
	if err != nil {
		fmt.Println("Upload failed:", err)
		return err
	}
	fmt.Println("Avatar updated:", url)
	return nil
}

func (a *App) deleteAccount(ctx context.Context) error {
	confirm, err := getSimpleText(a.reader, "This permanently deletes your account. Type 'yes' to continue", os.Stdout)
	if err != nil {
		return err
	}
	if confirm != "yes" {
		fmt.Println("Cancelled")
		return nil
	}

	password, err := getPassword("Enter password to confirm", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.profile.DeleteAccount(ctx, password); err != nil {
		fmt.Println("Deletion failed:", err)
		return err
	}
	fmt.Println("Account deleted")
	return nil
}

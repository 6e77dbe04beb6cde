package cli

import (
	"context"
	"fmt"
	"os"

	"storefront/internal/models"
)

func formatAddress(a models.Address) string {
	line := fmt.Sprintf("%s  %s, %s", a.ID, a.FullName, a.AddressLine1)
	if a.AddressLine2 != "" {
		line += ", " + a.AddressLine2
	}
	line += fmt.Sprintf(", %s %s %s, %s [%s]", a.City, a.State, a.ZipCode, a.Country, a.Type)
	if a.IsDefault {
		line += " *default*"
	}
	return line
}

func (a *App) listAddresses(ctx context.Context) error {
	list, stale, err := a.profile.ListAddresses(ctx)
	if err != nil {
		fmt.Println("Cannot load addresses:", err)
		return err
	}
	if stale {
		fmt.Println("(server unreachable, showing cached data)")
	}
	if len(list) == 0 {
		fmt.Println("No addresses yet; run 'addaddr' to create one")
		return nil
	}
	for _, addr := range list {
		fmt.Println(formatAddress(addr))
	}
	return nil
}

func (a *App) promptAddress(current *models.Address) (models.AddressInput, error) {
	var in models.AddressInput

	keep := func(prompt, existing string) string {
		if current != nil && existing != "" {
			return fmt.Sprintf("%s (Enter for %s)", prompt, existing)
		}
		return prompt
	}
	read := func(prompt, existing string) (string, error) {
		value, err := getSimpleText(a.reader, keep(prompt, existing), os.Stdout)
		if err != nil {
			return "", err
		}
		if value == "" && current != nil {
			return existing, nil
		}
		return value, nil
	}

	var cur models.Address
	if current != nil {
		cur = *current
	}

	var err error
	if in.FullName, err = read("Full name", cur.FullName); err != nil {
		return in, err
	}
	if in.Phone, err = read("Phone", cur.Phone); err != nil {
		return in, err
	}
	if in.AddressLine1, err = read("Address line 1", cur.AddressLine1); err != nil {
		return in, err
	}
	if in.AddressLine2, err = read("Address line 2 (optional)", cur.AddressLine2); err != nil {
		return in, err
	}
	if in.City, err = read("City", cur.City); err != nil {
		return in, err
	}
	if in.State, err = read("State", cur.State); err != nil {
		return in, err
	}
	if in.ZipCode, err = read("Zip code", cur.ZipCode); err != nil {
		return in, err
	}
	if in.Country, err = read("Country", cur.Country); err != nil {
		return in, err
	}

	kind, err := read("Type (home/work/other)", string(cur.Type))
	if err != nil {
		return in, err
	}
	switch kind {
	case "work":
		in.Type = models.AddressWork
	case "other":
		in.Type = models.AddressOther
	default:
		in.Type = models.AddressHome
	}
	return in, nil
}

func (a *App) addAddress(ctx context.Context) error {
	in, err := a.promptAddress(nil)
	if err != nil {
		return err
	}

	addr, err := a.profile.AddAddress(ctx, in)
	if err != nil {
		fmt.Println("Cannot add address:", err)
		return err
	}
	fmt.Println("Added:", formatAddress(*addr))
	return nil
}

func (a *App) editAddress(ctx context.Context, id string) error {
	current, err := a.profile.GetAddress(ctx, id)
	if err != nil {
		fmt.Println("Cannot load address:", err)
		return err
	}

	in, err := a.promptAddress(current)
	if err != nil {
		return err
	}

	addr, err := a.profile.UpdateAddress(ctx, id, in)
	if err != nil {
		fmt.Println("Cannot update address:", err)
		return err
	}
	fmt.Println("Updated:", formatAddress(*addr))
	return nil
}

func (a *App) deleteAddress(ctx context.Context, id string) error {
	if err := a.profile.DeleteAddress(ctx, id); err != nil {
		fmt.Println("Cannot delete address:", err)
		return err
	}
	fmt.Println("Deleted", id)
	return nil
}

func (a *App) setDefaultAddress(ctx context.Context, id string) error {
	if err := a.profile.SetDefaultAddress(ctx, id); err != nil {
		fmt.Println("Cannot set default:", err)
		return err
	}
	fmt.Println("Default address is now", id)
	return nil
}

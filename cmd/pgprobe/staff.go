package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pgprobe/internal/staff"
)

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts on the target database",
		Long: `Manage rows of the dvdrental staff table over the configured
target connection. Passwords are always prompted, never taken as
flags or arguments.`,
	}

	cmd.AddCommand(
		newStaffRegisterCmd(),
		newStaffLoginCmd(),
		newStaffShowCmd(),
		newStaffUpdateCmd(),
		newStaffPasswdCmd(),
		newStaffDeleteCmd(),
	)
	return cmd
}

func openStore(ctx context.Context) (*staff.Store, error) {
	target, err := cfg.TargetByName(targetName)
	if err != nil {
		return nil, err
	}
	return staff.Connect(ctx, target.DSN())
}

func newStaffRegisterCmd() *cobra.Command {
	var p staff.RegisterParams

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			p.Password = password

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			m, err := st.Register(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s %s with staff_id %d\n", m.FirstName, m.LastName, m.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&p.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&p.Username, "username", "", "login name")
	cmd.Flags().StringVar(&p.Email, "email", "", "email address")
	cmd.Flags().Int32Var(&p.AddressID, "address-id", 0, "address row for the member")
	cmd.Flags().Int32Var(&p.StoreID, "store-id", 0, "store the member works in")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("address-id")
	_ = cmd.MarkFlagRequired("store-id")
	return cmd
}

func newStaffLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Verify staff credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			m, err := st.Authenticate(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			fmt.Printf("Welcome, %s %s\n", m.FirstName, m.LastName)
			printMember(m)
			return nil
		},
	}
}

func newStaffShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "Show a staff member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			m, err := st.GetByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			printMember(m)
			return nil
		},
	}
}

func newStaffUpdateCmd() *cobra.Command {
	var (
		firstName, lastName, email, username string
		addressID, storeID                   int32
		active                               bool
	)

	cmd := &cobra.Command{
		Use:   "update <staff-id>",
		Short: "Update staff member fields",
		Long:  `Update a staff member. Only the fields passed as flags change.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid staff id %q", args[0])
			}

			var p staff.UpdateParams
			flags := cmd.Flags()
			if flags.Changed("first-name") {
				p.FirstName = &firstName
			}
			if flags.Changed("last-name") {
				p.LastName = &lastName
			}
			if flags.Changed("email") {
				p.Email = &email
			}
			if flags.Changed("username") {
				p.Username = &username
			}
			if flags.Changed("address-id") {
				p.AddressID = &addressID
			}
			if flags.Changed("store-id") {
				p.StoreID = &storeID
			}
			if flags.Changed("active") {
				p.Active = &active
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			m, err := st.Update(cmd.Context(), int32(id), p)
			if err != nil {
				return err
			}
			printMember(m)
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&username, "username", "", "new login name")
	cmd.Flags().Int32Var(&addressID, "address-id", 0, "new address row")
	cmd.Flags().Int32Var(&storeID, "store-id", 0, "new store")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	return cmd
}

func newStaffPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username>",
		Short: "Change a staff password",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := promptPassword("Current password: ")
			if err != nil {
				return err
			}
			next, err := promptPassword("New password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm new password: ")
			if err != nil {
				return err
			}
			if next != confirm {
				return errors.New("passwords do not match")
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			if err := st.ChangePassword(cmd.Context(), args[0], current, next); err != nil {
				return err
			}
			fmt.Println("Password changed")
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}

func newStaffDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a staff member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			m, err := st.GetByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printMember(m)

			if !yes && !confirm("Delete this staff member? (y/N): ") {
				fmt.Println("Aborted")
				return nil
			}

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func printMember(m *staff.Member) {
	fmt.Printf("Staff ID:    %d\n", m.ID)
	fmt.Printf("Name:        %s %s\n", m.FirstName, m.LastName)
	fmt.Printf("Username:    %s\n", m.Username)
	fmt.Printf("Email:       %s\n", m.Email)
	fmt.Printf("Address ID:  %d\n", m.AddressID)
	fmt.Printf("Store ID:    %d\n", m.StoreID)
	fmt.Printf("Active:      %v\n", m.Active)
	fmt.Printf("Last update: %s\n", m.LastUpdate.Format(time.RFC3339))
}

// promptPassword reads a password with terminal echo disabled.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprintln(os.Stderr) // Print newline after password input

	password := string(passwordBytes)
	if password == "" {
		return "", errors.New("empty password entered")
	}
	return password, nil
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

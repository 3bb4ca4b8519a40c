// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/session/profile"
	"github.com/taibuivan/clouds/internal/users/auth"
	"github.com/taibuivan/clouds/internal/users/state"
)

// # Command Table

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":      {"Sign in with email and password", runLogin},
	"register":   {"Create an account and sign in", runRegister},
	"logout":     {"Sign out and forget local credentials", runLogout},
	"whoami":     {"Show the signed-in user", runWhoami},
	"refresh":    {"Obtain a new access token", runRefresh},
	"profile":    {"Update profile fields", runProfile},
	"sessions":   {"List signed-in devices", runSessions},
	"revoke":     {"End one session", runRevoke},
	"revoke-all": {"End every other session", runRevokeAll},
}

// errNotSignedIn is reported by commands that need a session.
var errNotSignedIn = errors.New("not signed in")

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: clouds <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	_ = tw.Flush()
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("clouds "+name, flag.ContinueOnError)
}

// # Authentication

func runLogin(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("login")
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if !a.auth.Login(ctx, *email, *password) {
		return errors.New(a.auth.State().Error)
	}

	printSignedIn(a.stdout, a.auth.State().User)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("register")
	var input auth.RegisterInput
	flags.StringVar(&input.Username, "username", "", "3-30 letters, digits, underscores or dots")
	flags.StringVar(&input.Email, "email", "", "account email")
	flags.StringVar(&input.Password, "password", "", "6-72 characters")
	flags.StringVar(&input.DisplayName, "display-name", "", "optional display name")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if !a.auth.Register(ctx, input) {
		return errors.New(a.auth.State().Error)
	}

	printSignedIn(a.stdout, a.auth.State().User)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.auth.Logout(ctx)
	fmt.Fprintln(a.stdout, "Signed out.")
	return nil
}

func runRefresh(ctx context.Context, a *app, _ []string) error {
	if !a.identity.RefreshAccessToken(ctx) {
		return describe(apperr.SessionExpired(nil))
	}
	fmt.Fprintln(a.stdout, "Access token refreshed.")
	return nil
}

// # Profile

func runWhoami(ctx context.Context, a *app, _ []string) error {
	resolution := a.auth.CheckAuth(ctx)
	if resolution.User == nil {
		return errNotSignedIn
	}

	user := resolution.User
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\t%s\n", user.Name())
	fmt.Fprintf(tw, "Username\t%s\n", user.Username)
	fmt.Fprintf(tw, "Email\t%s\n", user.Email)
	printOptional(tw, "Bio", user.Bio)
	printOptional(tw, "Birthday", user.Birthday)
	printOptional(tw, "Phone", user.PhoneNumber)
	printOptional(tw, "Address", user.Address)
	fmt.Fprintf(tw, "Friends\t%d\n", user.FriendsCount)
	fmt.Fprintf(tw, "Posts\t%d\n", user.PostsCount)
	fmt.Fprintf(tw, "Source\t%s\n", resolution.Source)
	if resolution.Source == state.SourceStaleCache {
		fmt.Fprintln(tw, "Note\tserver unreachable, showing the last known profile")
	}
	return tw.Flush()
}

func runProfile(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("profile")
	values := map[string]*string{
		"display-name": flags.String("display-name", "", "display name (max 50)"),
		"bio":          flags.String("bio", "", "biography"),
		"avatar":       flags.String("avatar", "", "avatar URL"),
		"cover":        flags.String("cover", "", "cover image URL"),
		"birthday":     flags.String("birthday", "", "birthday"),
		"phone":        flags.String("phone", "", "phone number"),
		"address":      flags.String("address", "", "address"),
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Only flags given on the command line are sent, so "-bio=" clears the bio.
	set := map[string]*string{}
	flags.Visit(func(f *flag.Flag) {
		set[f.Name] = values[f.Name]
	})

	user, err := a.identity.UpdateProfile(ctx, auth.ProfileUpdate{
		DisplayName: set["display-name"],
		Bio:         set["bio"],
		Avatar:      set["avatar"],
		Cover:       set["cover"],
		Birthday:    set["birthday"],
		PhoneNumber: set["phone"],
		Address:     set["address"],
	})
	if err != nil {
		return describe(err)
	}

	fmt.Fprintf(a.stdout, "Profile updated for %s.\n", user.Name())
	return nil
}

// # Sessions

func runSessions(ctx context.Context, a *app, _ []string) error {
	sessions, err := a.sessions.List(ctx)
	if err != nil {
		return describe(err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tBROWSER\tOS\tIP\tLAST ACTIVE\t")
	for _, session := range sessions {
		marker := ""
		if session.IsCurrent {
			marker = "(current)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			session.ID, session.Device, session.Browser, session.OS, session.IP, session.LastActiveAt, marker)
	}
	return tw.Flush()
}

func runRevoke(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("revoke")
	id := flags.String("id", "", "session id (see: clouds sessions)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := a.sessions.Revoke(ctx, *id); err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.stdout, "Session %s revoked.\n", *id)
	return nil
}

func runRevokeAll(ctx context.Context, a *app, _ []string) error {
	if err := a.sessions.RevokeAll(ctx); err != nil {
		return describe(err)
	}
	fmt.Fprintln(a.stdout, "All other sessions revoked.")
	return nil
}

// # Output Helpers

func printSignedIn(w io.Writer, user *profile.User) {
	if user == nil {
		fmt.Fprintln(w, "Signed in.")
		return
	}
	fmt.Fprintf(w, "Signed in as %s (%s).\n", user.Name(), user.Email)
}

func printOptional(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "%s\t%s\n", label, value)
	}
}

// describe turns session failures into a hint and appends field details.
func describe(err error) error {
	ae := apperr.As(err)
	if ae == nil {
		return err
	}

	switch ae.Code {
	case apperr.CodeSessionExpired, apperr.CodeUnauthorized:
		return fmt.Errorf("%s (run: clouds login)", ae.Message)
	case apperr.CodeValidation:
		message := ae.Message
		for _, detail := range ae.Details {
			message += fmt.Sprintf("\n  %s: %s", detail.Field, detail.Message)
		}
		return errors.New(message)
	}
	return err
}

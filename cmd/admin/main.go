// Command main provides moderation admin utilities that work directly against the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"marketgate/internal/cache"
	"marketgate/internal/config"
	"marketgate/internal/database"
	"marketgate/internal/models"
	"marketgate/internal/repository"
	"marketgate/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin blacklist-add -type <word|phrase|email|phone> -value <v> [-reason <r>] [-as <admin_id>]")
	fmt.Println("  admin blacklist-list [-limit <n>]")
	fmt.Println("  admin settings-set -key <key> -value <v> [-as <admin_id>]")
	fmt.Println("  admin unban <user_id> [-as <admin_id>]")
	fmt.Println("  admin reset-strikes <user_id> [-as <admin_id>]")
	os.Exit(1)
}

type app struct {
	blacklist   *service.BlacklistService
	settings    *service.SettingsService
	enforcement *service.EnforcementService
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	rdb := cache.Connect(cfg.RedisURL)

	audit := service.NewAuditService(repository.NewAuditRepository(db))
	a := &app{
		blacklist: service.NewBlacklistService(repository.NewBlacklistRepository(db), audit),
		// Settings changes must drop the snapshot the API servers read.
		settings:    service.NewSettingsService(repository.NewSettingRepository(db), cache.NewSettingsCache(rdb, cfg.SettingsCacheTTL()), audit),
		enforcement: service.NewEnforcementService(repository.NewUserRepository(db), audit, nil),
	}

	ctx := context.Background()
	args := os.Args[2:]
	switch os.Args[1] {
	case "blacklist-add":
		err = a.blacklistAdd(ctx, args)
	case "blacklist-list":
		err = a.blacklistList(ctx, args)
	case "settings-set":
		err = a.settingsSet(ctx, args)
	case "unban":
		err = a.userAction(ctx, "unban", args, a.enforcement.Unban)
	case "reset-strikes":
		err = a.userAction(ctx, "reset-strikes", args, a.enforcement.ResetStrikes)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func (a *app) blacklistAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("blacklist-add", flag.ExitOnError)
	kind := fs.String("type", "", "entry type")
	value := fs.String("value", "", "value to block")
	reason := fs.String("reason", "", "why the value is blocked")
	adminID := fs.Uint("as", 0, "admin user ID recorded in the audit log; omit to record an operator action")
	_ = fs.Parse(args)

	entry, err := a.blacklist.Add(ctx, uint(*adminID), service.AddBlacklistInput{
		Type:   models.BlacklistType(*kind),
		Value:  *value,
		Reason: *reason,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %s entry %q (ID: %d)\n", entry.Type, entry.Value, entry.ID)
	return nil
}

func (a *app) blacklistList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("blacklist-list", flag.ExitOnError)
	limit := fs.Int("limit", 100, "maximum entries")
	_ = fs.Parse(args)

	entries, err := a.blacklist.List(ctx, *limit, 0)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tVALUE\tACTIVE\tREASON")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", e.ID, e.Type, e.Value, e.IsActive, e.Reason)
	}
	return w.Flush()
}

func (a *app) settingsSet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("settings-set", flag.ExitOnError)
	key := fs.String("key", "", "setting key")
	value := fs.String("value", "", "new value")
	adminID := fs.Uint("as", 0, "admin user ID recorded in the audit log; omit to record an operator action")
	_ = fs.Parse(args)

	setting, err := a.settings.Update(ctx, uint(*adminID), *key, *value)
	if err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", setting.Key, setting.Value)
	return nil
}

// userAction runs an enforcement operation against the user ID in args[0].
func (a *app) userAction(ctx context.Context, name string, args []string, op func(ctx context.Context, adminID, userID uint) error) error {
	if len(args) < 1 {
		usage()
	}
	userID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid user ID %q", args[0])
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	adminID := fs.Uint("as", 0, "admin user ID recorded in the audit log; omit to record an operator action")
	_ = fs.Parse(args[1:])

	if err := op(ctx, uint(*adminID), uint(userID)); err != nil {
		return err
	}
	fmt.Printf("%s: user %d done\n", name, userID)
	return nil
}

// Package main provides operator utilities for tagboard: admin management and
// reviewing bulk update requests from the command line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"tagboard/internal/bootstrap"
	"tagboard/internal/cache"
	"tagboard/internal/config"
	"tagboard/internal/importer"
	"tagboard/internal/models"
	"tagboard/internal/notifications"
	"tagboard/internal/repository"
	"tagboard/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin role <user_id> <member|builder|admin> - Change a user's role")
	fmt.Println("  go run ./cmd/admin list-admins                       - List all admins")
	fmt.Println("  go run ./cmd/admin pending                           - List pending bulk update requests")
	fmt.Println("  go run ./cmd/admin approve <request_id> <admin_id>   - Approve a bulk update request")
	fmt.Println("  go run ./cmd/admin reject <request_id> <admin_id>    - Reject a bulk update request")
	os.Exit(1)
}

func parseID(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		fmt.Printf("Invalid ID %q\n", raw)
		os.Exit(1)
	}
	return uint(id)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.Start(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close() }()
	db, rdb := rt.DB, rt.Redis

	users := service.NewUserService(repository.NewUserRepository(db), cfg.NotifyAllAdmins)
	notifier := notifications.NewNotifier(rdb)
	requests := service.NewBulkUpdateRequestService(service.BulkUpdateRequestDeps{
		Repo:    repository.NewBulkUpdateRequestRepository(db),
		Applier: importer.New(db),
		Users:   users,
		Forum:   service.NewForumService(repository.NewForumRepository(db), cfg.BulkForumCategoryID),
		Mail:    service.NewDmailService(repository.NewDmailRepository(db), notifier),
		Locker:  cache.NewLocker(rdb),
		Events:  notifier,
		LockTTL: cfg.ApprovalLockTTL,
	})

	needArgs := func(n int) {
		if len(os.Args) < n {
			usage()
		}
	}

	switch os.Args[1] {
	case "role":
		needArgs(4)
		role, ok := models.ParseRole(os.Args[3])
		if !ok {
			fmt.Printf("Unknown role %q\n", os.Args[3])
			usage()
		}
		user, err := users.ChangeRole(ctx, 0, parseID(os.Args[2]), role)
		if err != nil {
			log.Fatalf("Failed to update user: %v", err)
		}
		fmt.Printf("%s (ID: %d) is now %s\n", user.Username, user.ID, user.Role())

	case "list-admins":
		admins, err := repository.NewUserRepository(db).ListAdmins(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch admins: %v", err)
		}
		if len(admins) == 0 {
			fmt.Println("No admins found in the system")
			return
		}
		for _, admin := range admins {
			fmt.Printf("  %d\t%s\t%s\n", admin.ID, admin.Username, admin.Email)
		}

	case "pending":
		list, total, err := requests.Search(ctx, repository.BulkUpdateRequestSearchParams{Status: models.BulkUpdateRequestStatusPending}, 100, 0)
		if err != nil {
			log.Fatalf("Failed to list requests: %v", err)
		}
		fmt.Printf("%d pending bulk update requests\n", total)
		for _, req := range list {
			fmt.Printf("#%d by user %d\n%s\n\n", req.ID, req.UserID, req.Script)
		}

	case "approve":
		needArgs(4)
		req, err := requests.Get(ctx, parseID(os.Args[2]))
		if err != nil {
			log.Fatalf("Failed to load request: %v", err)
		}
		result := requests.Approve(ctx, req, parseID(os.Args[3]))
		fmt.Printf("bulk update request #%d: %s (compensated=%t)\n", req.ID, result.Outcome, result.Compensated)
		if result.Err != nil {
			fmt.Printf("error: %v\n", result.Err)
			os.Exit(1)
		}

	case "reject":
		needArgs(4)
		req, err := requests.Get(ctx, parseID(os.Args[2]))
		if err != nil {
			log.Fatalf("Failed to load request: %v", err)
		}
		if err := requests.Reject(ctx, req, parseID(os.Args[3])); err != nil {
			log.Fatalf("Failed to reject request: %v", err)
		}
		fmt.Printf("bulk update request #%d rejected\n", req.ID)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
}

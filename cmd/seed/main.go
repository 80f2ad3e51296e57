// Command seed fills the database with demo users, tagged posts and pending
// bulk update requests.
package main

import (
	"context"
	"flag"
	"log"

	"tagboard/internal/config"
	"tagboard/internal/database"
	"tagboard/internal/seed"
)

func main() {
	opts := seed.Options{BatchSize: 200}
	flag.IntVar(&opts.NumUsers, "users", 20, "Number of users to create (the first is an admin, the second a builder)")
	flag.IntVar(&opts.NumPosts, "posts", 500, "Number of tagged posts to create")
	flag.IntVar(&opts.NumRequests, "requests", 10, "Number of pending bulk update requests to create")
	flag.BoolVar(&opts.ShouldClean, "clean", true, "Clean database before seeding")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Build records without writing them")
	flag.BoolVar(&opts.SkipBcrypt, "fast", false, "Store the password unhashed (test databases only)")
	flag.Int64Var(&opts.RandomSeed, "seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	res, err := seed.Seed(context.Background(), db, opts)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	if len(res.Users) > 0 {
		log.Printf("admin account: %s", res.Users[0].Email)
	}
	log.Printf("every seeded account uses the password %q", seed.DefaultPassword)
}

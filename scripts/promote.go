// One-off: go run scripts/promote.go <username> [level]
// Raises a user's permission level (5+ makes them a DM). Registration always
// grants level 1, so this is the only way to mint a DM.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gwa2100/dndnotus/internal/domain"

	"github.com/jackc/pgx/v5"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run scripts/promote.go <username> [level]")
		os.Exit(1)
	}
	username := os.Args[1]
	level := domain.DMPermissionLevel
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			panic(err)
		}
		level = n
	}

	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "PG_DSN is required")
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		panic(err)
	}
	defer conn.Close(ctx)

	tag, err := conn.Exec(ctx,
		`UPDATE users SET permissions = $2 WHERE username = $1`, username, level)
	if err != nil {
		panic(err)
	}
	if tag.RowsAffected() == 0 {
		fmt.Fprintf(os.Stderr, "no such user: %s\n", username)
		os.Exit(1)
	}
	fmt.Printf("%s is now permission level %d\n", username, level)
}

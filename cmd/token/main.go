package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"workmap/internal/cli"
)

func main() {
	var (
		userID = flag.Int64("user-id", 0, "numeric ID of the user (subject)")
		role   = flag.String("role", "SEEKER", "User role: BROADCASTER | SEEKER (or trabajador | cliente)")
		secret = flag.String("secret", "", "JWT HMAC secret (HS256)")
	)
	flag.Parse()

	if *userID == 0 || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: token --user-id=<id> --role=SEEKER --secret='<secret>'")
		os.Exit(2)
	}

	token, claims, err := cli.GenerateUserToken(*secret, *userID, *role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("TOKEN:")
	fmt.Println(token)
	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:   %s\n", claims.Subject)
	fmt.Printf("  roles: %s\n", strings.Join(claims.Roles, ","))
	fmt.Printf("  iat:   %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:   %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}

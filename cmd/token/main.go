// Command token mints an access token for an actor, signed with the
// configured secret, for use as a Bearer credential against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"heritage-catalog/internal/auth"
	"heritage-catalog/internal/config"
)

func main() {
	user := flag.String("user", "", "actor id recorded in audit columns")
	roles := flag.String("roles", "", "comma-separated roles")
	ttl := flag.Duration("ttl", auth.AccessTokenTTL, "token lifetime")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: token -user <id> [-roles a,b] [-ttl 1h]")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var roleList []string
	if *roles != "" {
		roleList = strings.Split(*roles, ",")
	}
	token, err := auth.GenerateAccessToken(*user, roleList, cfg.JWTSecret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

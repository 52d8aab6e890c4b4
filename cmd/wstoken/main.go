// Command wstoken prints an access token the echo server accepts in token
// mode. Defaults come from the same ECHO_* variables the server reads.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rickgao/wsconsole/internal/auth"
	"github.com/rickgao/wsconsole/internal/config"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	user := flag.String("user", "", "user the token is minted for")
	ip := flag.String("ip", "127.0.0.1", "client IP the token is bound to")
	secret := flag.String("secret", cfg.Secret, "signing secret (ECHO_SECRET)")
	validity := flag.Duration("validity", cfg.TokenValidity, "token lifetime (ECHO_TOKEN_VALIDITY)")
	flag.Parse()

	token, err := auth.Mint(*secret, *user, *ip, *validity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wstoken: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(token)
}

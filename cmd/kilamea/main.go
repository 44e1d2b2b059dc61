// Command kilamea manages a local mail store: accounts, folders,
// messages and contacts, with IMAP receive and SMTP send.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/kilamea/internal/theme"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(context.Background()); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render("error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

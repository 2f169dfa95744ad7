package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lwan2205/chat-dapp/internal/config"
	"github.com/Lwan2205/chat-dapp/internal/ledgerclient"
	"github.com/Lwan2205/chat-dapp/internal/session"
	"github.com/Lwan2205/chat-dapp/internal/wallet"
)

type programRunner interface {
	Run() (tea.Model, error)
}

type programFactory func(tea.Model, ...tea.ProgramOption) programRunner

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, newProgram programFactory) error {
	fs := flag.NewFlagSet("chat-dapp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	gateway := fs.String("gateway", "", "gateway node url")
	walletPath := fs.String("wallet", "", "wallet key file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.LoadClientFromEnv()
	if *gateway != "" {
		cfg.GatewayURL = *gateway
	}
	if *walletPath != "" {
		cfg.WalletPath = *walletPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	path := cfg.WalletPath
	if path == "" {
		var err error
		path, err = wallet.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve wallet path: %w", err)
		}
	}
	w, err := wallet.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}

	contract := ledgerclient.New(cfg.GatewayURL, w)
	sess := session.New(contract, w)
	defer sess.Close()

	m := newRootModel(sess, cfg.GatewayURL)

	if newProgram == nil {
		newProgram = func(model tea.Model, options ...tea.ProgramOption) programRunner {
			return tea.NewProgram(model, options...)
		}
	}

	p := newProgram(m, tea.WithAltScreen(), tea.WithInput(stdin), tea.WithOutput(stdout))
	_, err = p.Run()
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
